package types

// This file defines how a cell reports what it is doing.

/*
Metrics is an interface that defines what a cell wants to measure.
Each method represents an event in the lifecycle of one memoized value and
receives the name of the property it happened on.
*/
type Metrics interface {

	// Hit is called when a fresh value is returned without computing.
	Hit(property string)

	// Miss is called when no entry exists and the value has to be computed.
	Miss(property string)

	// Expire is called when an entry was found but its TTL had elapsed.
	Expire(property string)

	// Compute is called after the user computation returned successfully.
	Compute(property string)

	// StoreError is called when writing to the durable store failed.
	StoreError(property string)
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

Cells that are not given a Metrics implementation use this one, so the rest
of the code never needs a nil check.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit(string)        {}
func (NoopMetrics) Miss(string)       {}
func (NoopMetrics) Expire(string)     {}
func (NoopMetrics) Compute(string)    {}
func (NoopMetrics) StoreError(string) {}
