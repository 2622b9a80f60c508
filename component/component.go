package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed service.
type Component interface {
	// Name returns the unique name of the component.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop shuts the component down and releases its resources.
	Stop(ctx context.Context) error

	// Health reports whether the component can currently serve calls.
	Health(ctx context.Context) Health
}

// Description is a component's self-reported summary.
type Description struct {
	// Name is the human-readable display name. Defaults to Name().
	Name string
	// Type categorizes the component, e.g. "brokerage".
	Type string
	// Details is a one-liner such as "https://api.example.com streams<=10".
	Details string
}

// Describable is optionally implemented by components that can summarize
// their configuration.
type Describable interface {
	Describe() Description
}
