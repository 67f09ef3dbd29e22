package folio

import "time"

// NoopMetrics is a no-operation implementation of Metrics
type NoopMetrics struct{}

// NewNoopMetrics creates a new no-operation metrics sink
func NewNoopMetrics() Metrics {
	return &NoopMetrics{}
}

// ObserveOperation does nothing
func (n *NoopMetrics) ObserveOperation(op string, duration time.Duration, err error) {}

// ObserveUpload does nothing
func (n *NoopMetrics) ObserveUpload(bytes int64, err error) {}
