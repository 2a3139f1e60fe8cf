package tokenstore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// TokenFileName is the fixed name of the token document inside the
// caller-supplied directory. Survives process restarts; the next client
// validates and replaces it lazily.
const TokenFileName = "access_token.json"

// FileStore keeps the token document in a single JSON file.
// Writes use temp file + rename so a crash never leaves a half-written token.
type FileStore struct {
	filePath string
}

// Compile-time check to ensure FileStore implements TokenStore
var _ TokenStore = (*FileStore)(nil)

// NewFileStore creates a FileStore under the given directory, creating it
// with 0700 permissions if it doesn't exist. The file name is fixed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("token directory cannot be empty")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	return &FileStore{
		filePath: filepath.Join(dir, TokenFileName),
	}, nil
}

// Path returns the full path of the token file.
func (f *FileStore) Path() string {
	return f.filePath
}

// Read returns the stored token document. Returns an error if the file
// doesn't exist or is empty.
func (f *FileStore) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty token file %s", f.filePath)
	}
	return data, nil
}

// Write atomically replaces the token document using temp file + rename.
// Sets file permissions to 0600 (owner read/write only).
func (f *FileStore) Write(ctx context.Context, document []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Create temp file in the same directory so the rename stays atomic
	dir := filepath.Dir(f.filePath)
	tempFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	// Cleanup deferred for all exit paths
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if _, err := tempFile.Write(document); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	if err := os.Rename(tempName, f.filePath); err != nil {
		return err
	}

	if err := os.Chmod(f.filePath, 0600); err != nil {
		return err
	}

	return nil
}
