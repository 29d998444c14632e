package tracing

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanRegister          = "registry.Register"
	SpanTransfer          = "registry.Transfer"
	SpanSetVerified       = "registry.SetVerified"
	SpanCommit            = "ledger.Commit"
	SpanListIdentifiers   = "query.ListIdentifiers"
	SpanGet               = "query.Get"
	SpanDeriveSupplyChain = "query.DeriveSupplyChain"
	SpanList              = "query.List"
	SpanStats             = "query.Stats"
	SpanRecordStep        = "steps.RecordStep"
)

// Attribute keys.
const (
	AttrProductID   = "product.id"
	AttrActor       = "registry.actor"
	AttrOperation   = "registry.operation"
	AttrOperationID = "registry.operation_id"
	AttrOutcome     = "registry.outcome"
	AttrStepKind    = "step.kind"
	AttrEventID     = "step.event_id"
)

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
