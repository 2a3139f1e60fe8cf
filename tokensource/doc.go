// Package tokensource manages the short-lived Zoho access token.
//
// Zoho signals token expiry only via 401 responses, not through expires_in
// bookkeeping, so the Manager does not refresh on a timer. Instead it:
//   - loads the persisted token document at startup and validates it with a
//     cheap authenticated probe call, refreshing on 401
//   - performs the OAuth2 refresh-token grant on demand, replacing the
//     persisted document wholesale on every successful exchange
//
// # Usage
//
//	store, _ := tokenstore.NewFileStore(dir)
//	mgr, _ := tokensource.NewManager(creds, store)
//	tok, err := mgr.Load(ctx, probe)
//
// Manager implements oauth2.TokenSource for the currently loaded token.
//
// Refreshes within one Manager are serialized by a mutex; refreshes from
// multiple processes sharing a token file are not coordinated (refresh is
// idempotent, last write wins).
package tokensource
