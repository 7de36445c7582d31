package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_VerifyRoundtrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.True(t, VerifyPassword(hash, "correct horse battery staple"))
	assert.False(t, VerifyPassword(hash, "wrong password"))
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same password")
	require.NoError(t, err)
	h2, err := HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, VerifyPassword(h1, "same password"))
	assert.True(t, VerifyPassword(h2, "same password"))
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", maxPasswordLength+1))
	assert.Error(t, err)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not a hash", "password123"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"},
		{"truncated", "$argon2id$v=19$m=65536"},
		{"bad base64", "$argon2id$v=19$m=65536,t=3,p=4$!!!$!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, VerifyPassword(tt.hash, "anything"))
		})
	}
}

func TestTokenService_Roundtrip(t *testing.T) {
	key := make([]byte, 32)
	svc, err := NewTokenService(key, time.Hour)
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken("laptop")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "laptop", claims.Subject)
	assert.Equal(t, "laptop", claims.Device)
	assert.Equal(t, "emperor-server", claims.Issuer)
	assert.Equal(t, "emperor-client", claims.Audience)
	assert.NotEmpty(t, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Expiration, time.Minute)
}

func TestTokenService_Expired(t *testing.T) {
	key := make([]byte, 32)
	svc, err := NewTokenService(key, -time.Minute)
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken("laptop")
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestTokenService_WrongKey(t *testing.T) {
	svc1, err := NewTokenService(make([]byte, 32), time.Hour)
	require.NoError(t, err)

	otherKey := make([]byte, 32)
	otherKey[0] = 1
	svc2, err := NewTokenService(otherKey, time.Hour)
	require.NoError(t, err)

	token, err := svc1.GenerateAccessToken("laptop")
	require.NoError(t, err)

	_, err = svc2.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestTokenService_GarbageToken(t *testing.T) {
	svc, err := NewTokenService(make([]byte, 32), time.Hour)
	require.NoError(t, err)

	for _, garbage := range []string{"", "not-a-token", "v4.local.AAAA"} {
		_, err := svc.VerifyAccessToken(garbage)
		assert.Error(t, err)
	}
}

func TestNewTokenService_InvalidKeyLength(t *testing.T) {
	_, err := NewTokenService(make([]byte, 16), time.Hour)
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	tmpDir := t.TempDir()

	key1, err := LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)
	assert.Len(t, key1, 32)

	// Second call loads the same key
	key2, err := LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	info, err := os.Stat(filepath.Join(tmpDir, "auth.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrGenerateKey_CorruptFile(t *testing.T) {
	tmpDir := t.TempDir()

	err := os.WriteFile(filepath.Join(tmpDir, "auth.key"), []byte("not hex"), 0o600)
	require.NoError(t, err)

	_, err = LoadOrGenerateKey(tmpDir)
	assert.Error(t, err)
}
