package repositories

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/zalando/go-keyring"
)

// KeyringSettings implements [models.SettingsStore] on top of the OS keyring.
//
// Each setting is one keyring entry under the configured service name.
type KeyringSettings struct {
	service string
	staged  map[string]string
}

// NewKeyringSettings creates a keyring-backed store for service.
func NewKeyringSettings(service string) (*KeyringSettings, error) {
	if service == "" {
		return nil, fmt.Errorf("keyring_service is required for keyring settings")
	}
	return &KeyringSettings{service: service, staged: map[string]string{}}, nil
}

func (k *KeyringSettings) Get(key, fallback string) (string, error) {
	if v, ok := k.staged[key]; ok {
		if v == "" {
			return fallback, nil
		}
		return v, nil
	}

	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s from keyring: %w", key, err)
	}
	return v, nil
}

func (k *KeyringSettings) Set(key, value string) {
	k.staged[key] = value
}

// Commit writes staged values one by one. The keyring has no transactions, so a failure can leave a partial write.
func (k *KeyringSettings) Commit() error {
	for _, key := range slices.Sorted(maps.Keys(k.staged)) {
		value := k.staged[key]
		if value == "" {
			if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
				return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
			}
		} else if err := keyring.Set(k.service, key, value); err != nil {
			return fmt.Errorf("failed to store %s in keyring: %w", key, err)
		}
		delete(k.staged, key)
	}
	return nil
}
