package tokenstore

import "context"

// TokenStore reads and writes token documents to persistent storage.
//
// The refresh-token flow requires writable storage.
type TokenStore interface {
	// Read returns the stored token document. Returns an error if the document
	// is missing or empty.
	Read(ctx context.Context) ([]byte, error)

	// Write persists the token document, replacing any previous one wholesale.
	// Returns an error if the backend is read-only or the write fails.
	Write(ctx context.Context, document []byte) error
}
