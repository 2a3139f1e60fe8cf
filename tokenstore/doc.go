// Package tokenstore provides persistent storage for Zoho access token documents.
//
// A token document is the raw JSON object returned by the Zoho accounts server
// ({"access_token": ..., "expires_in": ..., ...}); it is always read and written
// wholesale, never patched in place.
//
// Supported backends:
//   - File: one JSON file with a fixed well-known name under a caller-supplied
//     directory, replaced atomically on every write
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential
//     Manager, Linux Secret Service)
//   - Env: read-only environment variable access, for pre-issued tokens only
//
// The refresh-token flow requires a writable backend (file or keyring).
//
// No cross-process coordination exists: two clients pointed at the same file
// can race on writes. Assign one token file per client lifetime.
package tokenstore
