package health

import "context"

type check struct {
	name     string
	optional bool
	fn       func(ctx context.Context) error
}

// NewCheck wraps a probe function as a Checker. Optional checks degrade
// rather than fail overall health.
func NewCheck(name string, optional bool, fn func(ctx context.Context) error) Checker {
	return &check{name: name, optional: optional, fn: fn}
}

func (c *check) Name() string                    { return c.name }
func (c *check) Optional() bool                  { return c.optional }
func (c *check) Check(ctx context.Context) error { return c.fn(ctx) }

type signal struct {
	name string
	fn   func(ctx context.Context) (float64, error)
}

// NewSignal wraps an indicator function as a Signal for the detailed
// health view.
func NewSignal(name string, fn func(ctx context.Context) (float64, error)) Signal {
	return &signal{name: name, fn: fn}
}

func (s *signal) Name() string                               { return s.name }
func (s *signal) Value(ctx context.Context) (float64, error) { return s.fn(ctx) }
