// Package authstore persists CIRIS API credentials per server base URL, so
// a login from one process is picked up by the next. Records live in a
// BadgerDB under ~/.ciris by default and are encoded with msgpack.
package authstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const keyPrefix = "auth:"

// Record holds the stored credentials for one server.
type Record struct {
	// APIKey is a long-lived key, preferred over session tokens.
	APIKey          string    `msgpack:"api_key,omitempty"`
	APIKeyCreatedAt time.Time `msgpack:"api_key_created_at,omitempty"`

	// Session token obtained via login.
	AccessToken    string    `msgpack:"access_token,omitempty"`
	TokenType      string    `msgpack:"token_type,omitempty"`
	TokenExpiresAt time.Time `msgpack:"token_expires_at,omitempty"`
	RefreshToken   string    `msgpack:"refresh_token,omitempty"`
}

// TokenValid reports whether the record holds a session token that has not
// expired.
func (r Record) TokenValid() bool {
	if r.AccessToken == "" {
		return false
	}
	return r.TokenExpiresAt.IsZero() || time.Now().Before(r.TokenExpiresAt)
}

// Store is a credential store backed by BadgerDB. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// DefaultDir returns the default store location, ~/.ciris.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("authstore: resolve home dir: %w", err)
	}
	return filepath.Join(home, ".ciris"), nil
}

// Open opens (creating if needed) the store at dir. An empty dir selects
// DefaultDir. Credentials are private, so the directory is created 0700.
func Open(dir string) (*Store, error) {
	if dir == "" {
		var err error
		dir, err = DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("authstore: create dir: %w", err)
	}
	opts := badger.DefaultOptions(dir).WithLogger(nopLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("authstore: open db: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a non-persistent store, useful for tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nopLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("authstore: open db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores the record for baseURL, replacing any previous one.
func (s *Store) Put(baseURL string, rec Record) error {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("authstore: encode record: %w", err)
	}
	key := storeKey(baseURL)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// Get returns the record for baseURL. The second return is false when no
// record exists.
func (s *Store) Get(baseURL string) (Record, bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(baseURL))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("authstore: decode record: %w", err)
	}
	return rec, true, nil
}

// Clear removes the stored credentials for baseURL.
func (s *Store) Clear(baseURL string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(storeKey(baseURL))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// APIKey returns the credential to authenticate with against baseURL: the
// stored API key if present, otherwise an unexpired session token.
func (s *Store) APIKey(baseURL string) (string, bool, error) {
	rec, ok, err := s.Get(baseURL)
	if err != nil || !ok {
		return "", false, err
	}
	if rec.APIKey != "" {
		return rec.APIKey, true, nil
	}
	if rec.TokenValid() {
		return rec.AccessToken, true, nil
	}
	return "", false, nil
}

// StoreAPIKey records a long-lived API key for baseURL, keeping any session
// token already stored.
func (s *Store) StoreAPIKey(baseURL, apiKey string) error {
	rec, _, err := s.Get(baseURL)
	if err != nil {
		return err
	}
	rec.APIKey = apiKey
	rec.APIKeyCreatedAt = time.Now().UTC()
	return s.Put(baseURL, rec)
}

// StoreToken records a session token for baseURL, keeping any API key
// already stored.
func (s *Store) StoreToken(baseURL, token, tokenType string, expiresIn time.Duration, refreshToken string) error {
	rec, _, err := s.Get(baseURL)
	if err != nil {
		return err
	}
	rec.AccessToken = token
	rec.TokenType = tokenType
	rec.RefreshToken = refreshToken
	if expiresIn > 0 {
		rec.TokenExpiresAt = time.Now().UTC().Add(expiresIn)
	} else {
		rec.TokenExpiresAt = time.Time{}
	}
	return s.Put(baseURL, rec)
}

func storeKey(baseURL string) []byte {
	return []byte(keyPrefix + strings.TrimRight(baseURL, "/"))
}

// nopLogger silences badger's internal logging.
type nopLogger struct{}

func (nopLogger) Errorf(string, ...any)   {}
func (nopLogger) Warningf(string, ...any) {}
func (nopLogger) Infof(string, ...any)    {}
func (nopLogger) Debugf(string, ...any)   {}
