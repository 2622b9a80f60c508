// Package rest provides generic typed JSON helpers on top of httpclient.
//
// The helpers take any Doer, so they work with a bare *httpclient.Client as
// well as with the brokerkit client, which adds credentials and throttling:
//
//	type Account struct {
//	    ID     string `json:"id"`
//	    Status string `json:"status"`
//	}
//
//	acct, err := rest.Get[Account](ctx, client, "/v2/account")
//	order, err := rest.Post[Order](ctx, client, "/v2/orders", req)
package rest
