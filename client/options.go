package client

import (
	"github.com/kbukum/brokerkit/credential"
	"github.com/kbukum/brokerkit/logger"
	"github.com/kbukum/brokerkit/observability"
	"github.com/kbukum/brokerkit/stream"
)

// Option customizes a Client beyond its Config.
type Option func(*options)

type options struct {
	log         *logger.Logger
	metrics     *observability.Metrics
	refresher   credential.Refresher
	store       credential.Store
	opener      stream.Opener
	credentials []credential.Option
}

// WithLogger replaces the logger built from Config.Logging.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics replaces the instruments created on the global meter.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRefresher replaces the token endpoint client.
func WithRefresher(r credential.Refresher) Option {
	return func(o *options) { o.refresher = r }
}

// WithStore replaces the refresh token store selected by Config.Auth.Store.
func WithStore(s credential.Store) Option {
	return func(o *options) { o.store = s }
}

// WithStreamOpener replaces the HTTP stream opener. Connects still get the
// client's 429 and 401 handling.
func WithStreamOpener(op stream.Opener) Option {
	return func(o *options) { o.opener = op }
}

// WithCredentialOptions passes options through to the credential manager,
// e.g. credential.WithAcquirer or credential.WithCredential.
func WithCredentialOptions(opts ...credential.Option) Option {
	return func(o *options) { o.credentials = append(o.credentials, opts...) }
}
