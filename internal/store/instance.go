package store

import (
	"context"
	"encoding/json/v2"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/errors"
)

// instanceKey is the singleton key for the server instance record.
var instanceKey = []byte("server:instance")

// GetInstance retrieves the singleton server instance record.
// Returns a SETUP_REQUIRED error when no instance exists yet.
func (s *Store) GetInstance(_ context.Context) (*domain.Instance, error) {
	var instance domain.Instance
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(instanceKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &instance)
		})
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil, errors.ErrSetupRequired
		}
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	return &instance, nil
}

// CreateInstance creates the singleton instance record with the given
// password hash. Returns an ALREADY_EXISTS error when setup already ran.
func (s *Store) CreateInstance(_ context.Context, passwordHash string) (*domain.Instance, error) {
	now := time.Now()
	instance := &domain.Instance{
		ID:           "emperor-001",
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	raw, err := json.Marshal(instance)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal instance: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(instanceKey)
		if err == nil {
			return errors.AlreadyExists("instance setup already completed")
		}
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check instance existence: %w", err)
		}
		return txn.Set(instanceKey, raw)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("server instance created", "id", instance.ID)
	return instance, nil
}
