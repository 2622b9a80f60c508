// Package testutil provides fake brokerage endpoints for tests.
//
// Server wraps httptest.Server with hit counting, canned JSON responses
// carrying rate-limit headers, and chunked NDJSON streams. TokenEndpoint is
// a scripted OAuth token endpoint that records each request's form.
//
//	srv := testutil.NewServer()
//	tokens := testutil.NewTokenEndpoint(testutil.OK("A1", "R2", 3600))
//	srv.Handle("/oauth/token", tokens)
//	srv.NDJSON("/stream/quotes", false, `{"a":1}`+"\n"+`{"b"`, `:2}`+"\n")
//	testutil.T(t).Setup(srv)
package testutil
