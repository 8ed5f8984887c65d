package cryptox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"filippo.io/age"
	"github.com/dmitrijs2005/exporter3/internal/common"
)

const keyFileExt = ".key"

// KeyStore resolves an app's private identity and decrypts payloads with it.
// Identities are loaded lazily from <dir>/<appID>.key and cached.
type KeyStore struct {
	dir string

	mu         sync.RWMutex
	identities map[string][]age.Identity
}

func NewKeyStore(dir string) *KeyStore {
	return &KeyStore{dir: dir, identities: make(map[string][]age.Identity)}
}

// Add registers a private key for appID, replacing any cached one.
func (s *KeyStore) Add(appID, privateKey string) error {
	ids, err := age.ParseIdentities(strings.NewReader(privateKey))
	if err != nil {
		return fmt.Errorf("parsing identity for app %s: %w", appID, err)
	}
	s.mu.Lock()
	s.identities[appID] = ids
	s.mu.Unlock()
	return nil
}

func (s *KeyStore) lookup(appID string) ([]age.Identity, error) {
	s.mu.RLock()
	ids, ok := s.identities[appID]
	s.mu.RUnlock()
	if ok {
		return ids, nil
	}

	if s.dir == "" || strings.ContainsAny(appID, `/\`) || appID == "" || appID == "." || appID == ".." {
		return nil, fmt.Errorf("no key for app %q: %w", appID, common.ErrorNotFound)
	}

	f, err := os.Open(filepath.Join(s.dir, appID+keyFileExt))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no key for app %q: %w", appID, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("open key for app %q: %w", appID, err)
	}
	defer f.Close()

	ids, err = age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parsing identity for app %s: %w", appID, err)
	}

	s.mu.Lock()
	s.identities[appID] = ids
	s.mu.Unlock()
	return ids, nil
}

// Decrypt unwraps ciphertext with appID's identity. Every failure, including
// a missing key, is reported as common.ErrDecryption: the attempt is fatal
// and needs operator attention before a redrive.
func (s *KeyStore) Decrypt(appID string, ciphertext []byte) ([]byte, error) {
	ids, err := s.lookup(appID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	plaintext, err := open(ciphertext, ids...)
	if err != nil {
		return nil, fmt.Errorf("%w: app %s: %v", common.ErrDecryption, appID, err)
	}
	return plaintext, nil
}
