package testutil

import (
	"context"
	"testing"
)

// TestComponent is a fake dependency with a start/stop lifecycle.
type TestComponent interface {
	// Name identifies the component in failure messages.
	Name() string
	// Start brings the component up.
	Start(ctx context.Context) error
	// Stop tears the component down.
	Stop(ctx context.Context) error
	// Reset restores the component to its initial state without restarting it.
	Reset(ctx context.Context) error
}

// THelper provides testing.T integration for easier test setup.
type THelper struct {
	t   testing.TB
	ctx context.Context
}

// T wraps a testing.TB so components are cleaned up when the test ends.
//
//	func TestClient(t *testing.T) {
//	    srv := testutil.NewServer()
//	    testutil.T(t).Setup(srv)
//	}
func T(t testing.TB) *THelper {
	return &THelper{t: t, ctx: context.Background()}
}

// WithContext sets a custom context for the helper.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Setup starts a component and registers cleanup with testing.T.
func (h *THelper) Setup(component TestComponent) {
	h.t.Helper()
	if err := component.Start(h.ctx); err != nil {
		h.t.Fatalf("failed to start component %s: %v", component.Name(), err)
	}

	h.t.Cleanup(func() {
		if err := component.Stop(h.ctx); err != nil {
			h.t.Errorf("failed to stop component %s: %v", component.Name(), err)
		}
	})
}

// Reset resets a component to its initial state.
func (h *THelper) Reset(component TestComponent) {
	h.t.Helper()
	if err := component.Reset(h.ctx); err != nil {
		h.t.Fatalf("failed to reset component %s: %v", component.Name(), err)
	}
}
