package client

import (
	"context"
	"fmt"

	"github.com/kbukum/brokerkit/component"
	"github.com/kbukum/brokerkit/logger"
)

// Component wraps Client and implements component.Component so a host
// application can manage it alongside its other services.
type Component struct {
	client *Client
	cfg    Config
	opts   []Option
	log    *logger.Logger
}

// NewComponent creates a client component. The client is built on Start.
func NewComponent(cfg Config, log *logger.Logger, opts ...Option) *Component {
	return &Component{
		cfg:  cfg,
		opts: append([]Option{WithLogger(log)}, opts...),
		log:  log.WithComponent("client"),
	}
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Client returns the underlying *Client, or nil if not started.
func (c *Component) Client() *Client {
	return c.client
}

// Name returns the component name.
func (c *Component) Name() string { return "brokerage" }

// Start builds the client and obtains a first credential.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(ctx, c.cfg, c.opts...)
	if err != nil {
		return fmt.Errorf("brokerage start: %w", err)
	}
	if _, err := client.Credentials().Token(ctx); err != nil {
		_ = client.Close(ctx)
		return fmt.Errorf("brokerage start credential: %w", err)
	}

	c.client = client
	c.log.Info("brokerage component started")
	return nil
}

// Stop closes every stream and flushes telemetry.
func (c *Component) Stop(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	c.log.Info("brokerage component stopping")
	return c.client.Close(ctx)
}

// Health is unhealthy when no credential can be obtained and degraded when
// the stream ceiling is reached.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.client == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "client not initialized",
		}
	}

	if _, err := c.client.Credentials().Token(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("credential unavailable: %v", err),
		}
	}

	open, limit := len(c.client.ActiveStreams()), c.client.cfg.Streams.MaxConcurrent
	if open >= limit {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusDegraded,
			Message: fmt.Sprintf("stream ceiling reached (%d/%d)", open, limit),
		}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("streams %d/%d", open, limit),
	}
}

// Describe returns summary info for startup displays.
func (c *Component) Describe() component.Description {
	limit := c.cfg.Streams.MaxConcurrent
	if limit == 0 {
		limit = 10
	}
	return component.Description{
		Name:    "Brokerage API",
		Type:    "brokerage",
		Details: fmt.Sprintf("%s env=%s streams<=%d", c.cfg.HTTP.BaseURL, c.cfg.Environment, limit),
	}
}
