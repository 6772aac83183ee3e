// Package metrics provides metrics recording for the pipeline. It uses
// the null object pattern to avoid nil checks throughout the codebase.
package metrics

import "time"

// Recorder defines the interface for recording pipeline metrics.
type Recorder interface {
	// RecordReceived increments the count of received messages.
	RecordReceived()

	// RecordProcessed records a successfully processed unit with its latency.
	RecordProcessed(latency time.Duration)

	// RecordPublished increments the count of published emissions.
	RecordPublished()

	// RecordError increments the error counter.
	RecordError()

	// IncrementCustom increments a named counter.
	IncrementCustom(name string)
}

// NoOp is a Recorder that discards all metrics. Use this when metrics
// collection is not configured.
type NoOp struct{}

// NewNoOp creates a new no-op metrics recorder.
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) RecordReceived()                 {}
func (n *NoOp) RecordProcessed(_ time.Duration) {}
func (n *NoOp) RecordPublished()                {}
func (n *NoOp) RecordError()                    {}
func (n *NoOp) IncrementCustom(_ string)        {}

// Ensure NoOp implements Recorder
var _ Recorder = (*NoOp)(nil)
