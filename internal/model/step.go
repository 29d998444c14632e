package model

import (
	"fmt"
	"strings"
	"time"
)

// StepKind is the action recorded by a supply-chain step.
type StepKind string

const (
	StepRegistration StepKind = "REGISTRATION"
	StepHarvest      StepKind = "HARVEST"
	StepProcessing   StepKind = "PROCESSING"
	StepTransport    StepKind = "TRANSPORT"
	StepDistribution StepKind = "DISTRIBUTION"
	StepUnknown      StepKind = "UNKNOWN"
)

// ParseStepKind maps a producer-supplied action name onto the fixed vocabulary.
// Unrecognised names become StepUnknown so newer producers do not break readers.
func ParseStepKind(s string) StepKind {
	switch k := StepKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case StepRegistration, StepHarvest, StepProcessing, StepTransport, StepDistribution:
		return k
	default:
		return StepUnknown
	}
}

// SupplyChainStep is one entry of a product's append-only custody log.
type SupplyChainStep struct {
	StepID    string    `json:"stepId" db:"step_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Seq       int64     `json:"seq" db:"seq"`
	Kind      StepKind  `json:"action" db:"kind"`
	Location  string    `json:"location" db:"location"`
	Timestamp time.Time `json:"timestamp" db:"occurred_at"`
	Actor     Identity  `json:"actor" db:"actor"`
	Details   string    `json:"details" db:"details"`
	EventID   string    `json:"eventId,omitempty" db:"event_id"`
}

// StepID formats the identifier of the step at position seq.
func StepID(productID string, seq int64) string {
	return fmt.Sprintf("%s-%d", productID, seq)
}

// StepInput is a step as submitted by an external producer.
type StepInput struct {
	ProductID string    `json:"productId" yaml:"productId"`
	Action    string    `json:"action" yaml:"action"`
	Location  string    `json:"location" yaml:"location"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Actor     Identity  `json:"actor" yaml:"actor"`
	Details   string    `json:"details" yaml:"details"`
	EventID   string    `json:"eventId,omitempty" yaml:"eventId"`
}
