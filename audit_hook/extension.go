// Package audithook bridges sale ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/plugin"
	"github.com/xraph/saleledger/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnTokensMinted         = (*Extension)(nil)
	_ plugin.OnMintRejected         = (*Extension)(nil)
	_ plugin.OnRefundIssued         = (*Extension)(nil)
	_ plugin.OnSaleFinished         = (*Extension)(nil)
	_ plugin.OnWithdrawn            = (*Extension)(nil)
	_ plugin.OnDeposit              = (*Extension)(nil)
	_ plugin.OnRoyaltyUpdated       = (*Extension)(nil)
	_ plugin.OnOwnershipTransferred = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a backend-neutral audit record.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges sale ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Sale hooks
// ──────────────────────────────────────────────────

// OnTokensMinted implements plugin.OnTokensMinted.
func (e *Extension) OnTokensMinted(ctx context.Context, entry *journal.Entry) error {
	return e.record(ctx, ActionTokensMinted, SeverityInfo, OutcomeSuccess,
		ResourceToken, entry.ID.String(), CategorySale, nil,
		"sale_id", entry.SaleID.String(),
		"buyer", entry.Actor.String(),
		"quantity", entry.Quantity,
		"first_token", entry.FirstToken,
		"last_token", entry.LastToken,
		"spent_wei", entry.Amount.String(),
	)
}

// OnMintRejected implements plugin.OnMintRejected.
func (e *Extension) OnMintRejected(ctx context.Context, caller types.Address, payment types.Amount, reason error) error {
	return e.record(ctx, ActionMintRejected, SeverityWarning, OutcomeFailure,
		ResourceToken, "", CategorySale, reason,
		"caller", caller.String(),
		"payment_wei", payment.String(),
	)
}

// OnRefundIssued implements plugin.OnRefundIssued.
func (e *Extension) OnRefundIssued(ctx context.Context, entry *journal.Entry) error {
	return e.record(ctx, ActionRefundIssued, SeverityInfo, OutcomeSuccess,
		ResourceRefund, entry.ID.String(), CategoryTreasury, nil,
		"sale_id", entry.SaleID.String(),
		"recipient", entry.Counterparty.String(),
		"amount_wei", entry.Amount.String(),
		"mint_id", entry.Metadata["mint_id"],
	)
}

// OnSaleFinished implements plugin.OnSaleFinished.
func (e *Extension) OnSaleFinished(ctx context.Context, saleID id.SaleID, totalIssued uint64) error {
	return e.record(ctx, ActionSaleFinished, SeverityInfo, OutcomeSuccess,
		ResourceSale, saleID.String(), CategorySale, nil,
		"total_issued", totalIssued,
	)
}

// ──────────────────────────────────────────────────
// Treasury hooks
// ──────────────────────────────────────────────────

// OnWithdrawn implements plugin.OnWithdrawn.
func (e *Extension) OnWithdrawn(ctx context.Context, entry *journal.Entry) error {
	return e.record(ctx, ActionBalanceWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceBalance, entry.ID.String(), CategoryTreasury, nil,
		"sale_id", entry.SaleID.String(),
		"owner", entry.Actor.String(),
		"amount_wei", entry.Amount.String(),
	)
}

// OnDeposit implements plugin.OnDeposit.
func (e *Extension) OnDeposit(ctx context.Context, entry *journal.Entry) error {
	return e.record(ctx, ActionDepositReceived, SeverityInfo, OutcomeSuccess,
		ResourceBalance, entry.ID.String(), CategoryTreasury, nil,
		"sale_id", entry.SaleID.String(),
		"sender", entry.Actor.String(),
		"amount_wei", entry.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Administration hooks
// ──────────────────────────────────────────────────

// OnRoyaltyUpdated implements plugin.OnRoyaltyUpdated.
func (e *Extension) OnRoyaltyUpdated(ctx context.Context, entry *journal.Entry) error {
	if entry.Kind == journal.KindRoyaltyToken {
		return e.record(ctx, ActionRoyaltyTokenSet, SeverityInfo, OutcomeSuccess,
			ResourceRoyalty, entry.ID.String(), CategoryAdmin, nil,
			"sale_id", entry.SaleID.String(),
			"token_id", entry.FirstToken,
			"bps", entry.Bps,
		)
	}
	return e.record(ctx, ActionRoyaltyDefaultSet, SeverityInfo, OutcomeSuccess,
		ResourceRoyalty, entry.ID.String(), CategoryAdmin, nil,
		"sale_id", entry.SaleID.String(),
		"bps", entry.Bps,
	)
}

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (e *Extension) OnOwnershipTransferred(ctx context.Context, entry *journal.Entry) error {
	return e.record(ctx, ActionOwnershipTransferred, SeverityCritical, OutcomeSuccess,
		ResourceOwner, entry.ID.String(), CategoryAdmin, nil,
		"sale_id", entry.SaleID.String(),
		"from", entry.Actor.String(),
		"to", entry.Counterparty.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
