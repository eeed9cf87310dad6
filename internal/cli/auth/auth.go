package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "taskwiz-cli"
)

// Secret kinds kept per server.
const (
	KindToken  = "token"
	KindCookie = "cookie"
)

// ErrNotFound is returned by Load when no secret is stored.
var ErrNotFound = errors.New("no stored credential")

// Store persists credentials between CLI invocations.
// This allows us to mock the keyring in tests.
type Store interface {
	Save(serverURL, kind, secret string) error
	Load(serverURL, kind string) (string, error)
	Delete(serverURL, kind string) error
}

// Default is the OS keychain/credential manager.
var Default Store = keyringStore{}

type keyringStore struct{}

// getKeyringKey returns a unique key per server and credential kind
func getKeyringKey(serverURL, kind string) string {
	return fmt.Sprintf("%s-%s", kind, serverURL)
}

func (keyringStore) Save(serverURL, kind, secret string) error {
	if err := keyring.Set(service, getKeyringKey(serverURL, kind), secret); err != nil {
		return fmt.Errorf("failed to save %s: %w", kind, err)
	}
	return nil
}

func (keyringStore) Load(serverURL, kind string) (string, error) {
	secret, err := keyring.Get(service, getKeyringKey(serverURL, kind))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load %s: %w", kind, err)
	}
	return secret, nil
}

func (keyringStore) Delete(serverURL, kind string) error {
	if err := keyring.Delete(service, getKeyringKey(serverURL, kind)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	return nil
}

// ClearServer removes every credential kind stored for serverURL.
func ClearServer(store Store, serverURL string) error {
	var errs []error
	for _, kind := range []string{KindToken, KindCookie} {
		if err := store.Delete(serverURL, kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
