package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/draftflow/internal/domain/draft"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Caller is the authorization context supplied with every call.
// Identity and permission evaluation happen upstream.
type Caller struct {
	UserID           string
	OrganizationCode string
	AuditAccess      bool
}

// Validate checks that the caller identity is usable
func (c Caller) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: caller user id is required", draft.ErrAccessDenied)
	}
	if c.OrganizationCode == "" && !c.AuditAccess {
		return fmt.Errorf("%w: caller organization is required", draft.ErrAccessDenied)
	}
	return nil
}

// Metrics observes workflow operations
type Metrics interface {
	ObserveOperation(operation string, err error, duration time.Duration)
	ObserveStatusChange(from, to draft.Status)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, error, time.Duration) {}
func (noopMetrics) ObserveStatusChange(draft.Status, draft.Status) {}

type options struct {
	metrics Metrics
	now     func() time.Time
}

// Option configures the application services
type Option func(*options)

// WithMetrics records operation outcomes and status changes
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		metrics: noopMetrics{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// detached keeps request values but drops cancellation so subscribers outlive the request
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
