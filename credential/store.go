package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// Store persists the refresh token across process restarts. Load returns ""
// with a nil error when nothing has been stored yet.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, refreshToken string) error
}

// NewStore builds the store selected by cfg.
func NewStore(cfg StoreConfig) (Store, error) {
	switch cfg.Type {
	case "", StoreMemory:
		return NewMemoryStore(""), nil
	case StoreFile:
		return NewFileStore(cfg.Path, cfg.Key)
	default:
		return nil, fmt.Errorf("credential: unknown store type %q", cfg.Type)
	}
}

// MemoryStore keeps the refresh token in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates a memory store seeded with token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Load implements Store.
func (s *MemoryStore) Load(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = refreshToken
	return nil
}

// FileStore seals the refresh token with ChaCha20-Poly1305 and writes it to
// a 0600 file. The passphrase is hashed with SHA-256 into the 32-byte key.
type FileStore struct {
	path string
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
	}
	mu sync.Mutex
}

// NewFileStore creates a sealed file store at path.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("credential: file store path is required")
	}
	if passphrase == "" {
		return nil, errors.New("credential: file store key is required")
	}

	key := sha256.Sum256([]byte(passphrase))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("credential: create cipher: %w", err)
	}
	return &FileStore{path: path, aead: aead}, nil
}

// Load implements Store.
func (s *FileStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credential: read token file: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("credential: token file is truncated")
	}
	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("credential: open token file: %w", err)
	}
	return string(plaintext), nil
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(_ context.Context, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("credential: generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(refreshToken), nil)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credential: create token dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("credential: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(sealed); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("credential: write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credential: write token file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("credential: chmod token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("credential: replace token file: %w", err)
	}
	return nil
}
