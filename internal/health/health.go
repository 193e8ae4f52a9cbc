// Package health exposes liveness of the server's dependencies over HTTP,
// alongside the Prometheus metrics endpoint.
package health

import (
	"context"
	"time"
)

// Status represents component health.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// Checker probes one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Optional marks a checker whose failure degrades rather than breaks the
// service (cache, audit store).
type Optional interface {
	Optional() bool
}

// ComponentHealth is the result of one probe.
type ComponentHealth struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Signal computes one numeric indicator for the detailed health view,
// such as the recent query failure rate from the audit store.
type Signal interface {
	Name() string
	Value(ctx context.Context) (float64, error)
}

// SignalValue is one computed indicator in the detailed report.
type SignalValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Error string  `json:"error,omitempty"`
}

// Monitor runs all registered checkers.
type Monitor struct {
	checkers []Checker
	signals  []Signal
}

// NewMonitor creates a monitor over the given checkers.
func NewMonitor(checkers ...Checker) *Monitor {
	return &Monitor{checkers: checkers}
}

// AddSignals registers indicators for the detailed health view.
func (m *Monitor) AddSignals(signals ...Signal) {
	m.signals = append(m.signals, signals...)
}

// CheckHealth probes every dependency with a shared timeout.
func (m *Monitor) CheckHealth(ctx context.Context) []ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	report := make([]ComponentHealth, 0, len(m.checkers))
	for _, checker := range m.checkers {
		c := ComponentHealth{
			Name:      checker.Name(),
			Status:    StatusHealthy,
			CheckedAt: time.Now().UTC(),
		}
		if err := checker.Check(ctx); err != nil {
			c.Error = err.Error()
			c.Status = StatusCritical
			if opt, ok := checker.(Optional); ok && opt.Optional() {
				c.Status = StatusDegraded
			}
		}
		report = append(report, c)
	}
	return report
}

// ReadSignals computes every registered indicator with a shared timeout.
// A failing signal reports its error instead of a value.
func (m *Monitor) ReadSignals(ctx context.Context) []SignalValue {
	if len(m.signals) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	values := make([]SignalValue, 0, len(m.signals))
	for _, signal := range m.signals {
		sv := SignalValue{Name: signal.Name()}
		value, err := signal.Value(ctx)
		if err != nil {
			sv.Error = err.Error()
		} else {
			sv.Value = value
		}
		values = append(values, sv)
	}
	return values
}
