package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// localInfix marks ids generated on a client before the server has
// acknowledged the entity. The server replaces these with canonical ids
// on the first successful push.
const localInfix = "-local-"

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "page-V1StGXR8_Z5jdHi6B-myT")
//
// NanoIDs are URL-friendly, compact (21 characters vs UUID's 36),
// and use a larger alphabet for better entropy per character.
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
// Use this only when you're certain the system entropy is available,
// or when failure should crash the program (e.g., during initialization).
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// GenerateLocal creates a provisional client-side ID for an entity that has
// not yet been pushed to the server (e.g., "page-local-V1StGXR8_Z5jdHi6B").
func GenerateLocal(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + localInfix + id, nil
}

// MustGenerateLocal is like GenerateLocal but panics on failure.
func MustGenerateLocal(prefix string) string {
	id, err := GenerateLocal(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate local ID: %v", err))
	}
	return id
}

// IsLocal reports whether id is a provisional client-generated id that the
// server has not yet replaced.
func IsLocal(id string) bool {
	return strings.Contains(id, localInfix)
}
