package stream

import "net/url"

// Key identifies a logical stream: the endpoint plus its parameters
// serialized in sorted, URL-encoded form. Two requests with the same
// parameters in a different order share a key.
type Key struct {
	Endpoint string
	Query    string
}

// NewKey builds the key for endpoint and params.
func NewKey(endpoint string, params map[string]string) Key {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return Key{Endpoint: endpoint, Query: values.Encode()}
}

// String renders the key as endpoint?query.
func (k Key) String() string {
	if k.Query == "" {
		return k.Endpoint
	}
	return k.Endpoint + "?" + k.Query
}
