// Package credential manages the bearer credential used by every brokerkit
// request.
//
// A Manager caches one access token, refreshes it shortly before it expires,
// and guarantees that at most one refresh is in flight at a time: concurrent
// callers that find the token stale all wait on the same refresh.
//
//	tokens, err := credential.NewTokenClient(cfg.Auth)
//	mgr, err := credential.NewManager(cfg.Auth, tokens,
//	    credential.WithStore(store),
//	    credential.WithLogger(log),
//	)
//
//	token, err := mgr.Token(ctx)
//
// Refresh failures are typed: errors.IsRefreshRejected reports a refresh
// token the server refused, which no retry will fix.
package credential
