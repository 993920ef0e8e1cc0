package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// FileBackend keeps one JSON file per user in a directory
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// NewFileStore is a DocumentStore over a FileBackend
func NewFileStore(dir string) (*DocumentStore, error) {
	b, err := NewFileBackend(dir)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}

func (b *FileBackend) Name() string { return "file" }

// Path returns the file a user's record lives in. Ids that lose characters
// to SafeID get a hash suffix so distinct ids never share a file.
func (b *FileBackend) Path(userID string) string {
	name := SafeID(userID)
	if name != userID {
		sum := sha256.Sum256([]byte(userID))
		name += "-" + hex.EncodeToString(sum[:4])
	}
	return filepath.Join(b.dir, "user_"+name+"_data.json")
}

func (b *FileBackend) Get(_ context.Context, userID string) ([]byte, error) {
	data, err := os.ReadFile(b.Path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	return data, nil
}

// Put writes to a temporary file and renames it over the old record
func (b *FileBackend) Put(_ context.Context, userID string, doc []byte) error {
	path := b.Path(userID)
	tmp, err := os.CreateTemp(b.dir, ".tmp-user-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close record file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace record file: %w", err)
	}
	return nil
}

// SafeID keeps letters, digits, '_' and '-' so any id maps to a plain file name
func SafeID(userID string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			return r
		}
		return -1
	}, userID)
}
