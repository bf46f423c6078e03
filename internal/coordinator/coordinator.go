// Package coordinator implements the interpretation coordinator: the
// single entry point that turns one ingested Event into one
// InterpretationOutcome, orchestrating schema validation, policy selection,
// meaning building, intent expansion, journal writing, and audit emission
// within a single transactional boundary — one caller-supplied context
// driving every storage call, rolled back together on error.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerforge/kernel/internal/audit"
	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/intent"
	"github.com/ledgerforge/kernel/internal/journal"
	"github.com/ledgerforge/kernel/internal/kernelerr"
	"github.com/ledgerforge/kernel/internal/ledger"
	"github.com/ledgerforge/kernel/internal/meaning"
	"github.com/ledgerforge/kernel/internal/metrics"
	"github.com/ledgerforge/kernel/internal/payload"
	"github.com/ledgerforge/kernel/internal/policy"
	"github.com/ledgerforge/kernel/internal/schema"
	"github.com/ledgerforge/kernel/internal/storage"
	"github.com/ledgerforge/kernel/internal/valuation"
)

// FailureType classifies a FAILED outcome's root cause (failure
// policy).
type FailureType string

const (
	FailureGuard FailureType = "GUARD"
	FailureEngine FailureType = "ENGINE"
	FailureReconciliation FailureType = "RECONCILIATION"
	FailureSnapshot FailureType = "SNAPSHOT"
	FailureAuthority FailureType = "AUTHORITY"
	FailureContract FailureType = "CONTRACT"
	FailureSystem FailureType = "SYSTEM"
)

// PeriodCheck reports whether effectiveDate falls in an open accounting
// period; returning false supplies the reason_code an outcome is rejected
// with. No FiscalPeriod registry exists in this kernel slice (see
// DESIGN.md), so the default always reports the period open.
type PeriodCheck func(ctx context.Context, effectiveDate time.Time) (open bool, reasonCode string)

// AlwaysOpen is the default PeriodCheck.
func AlwaysOpen(context.Context, time.Time) (bool, string) { return true, "" }

// ReferenceSnapshot freezes the config-pack versions a decision was made
// under, captured once per interpretation so later replay can tell which
// rules applied.
type ReferenceSnapshot struct {
	ConfigVersion string
	ChartOfAccountsVersion string
	DimensionSchemaVersion string
	CurrencyRegistryVersion string
	FxPolicyVersion string
}

// Coordinator wires the registries and storage seam the pipeline depends
// on. Registries are populated at startup and never mutated afterward
//; Coordinator itself is safe for concurrent use across requests.
type Coordinator struct {
	Schemas *schema.Registry
	Selector *policy.Selector
	Ledgers *ledger.Registry
	Valuations *valuation.Registry
	Store storage.Store

	Tolerances journal.Tolerances
	Snapshot ReferenceSnapshot
	Period PeriodCheck

	// RunInTx wraps the steps that must commit or roll back together
	//. Defaults to running
	// fn directly against the caller's ctx, which is correct for
	// internal/storage/memory (already mutex-serialized) and wrong for
	// Postgres, where callers should set this to (*postgres.Store).WithTx.
	RunInTx func(ctx context.Context, fn func(ctx context.Context) error) error

	Clock func() time.Time
}

// New builds a Coordinator with AlwaysOpen period checking and a no-op
// transaction runner; callers wire Store-specific transaction behavior by
// setting RunInTx after construction.
func New(schemas *schema.Registry, selector *policy.Selector, ledgers *ledger.Registry, valuations *valuation.Registry, store storage.Store) *Coordinator {
	return &Coordinator{
		Schemas: schemas,
		Selector: selector,
		Ledgers: ledgers,
		Valuations: valuations,
		Store: store,
		Period: AlwaysOpen,
		RunInTx: func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) },
		Clock: time.Now,
	}
}

// chain threads the running audit hash/seq through one Interpret call so
// each emission links to the one before it without a round-trip per link.
type chain struct {
	prevHash string
	seq int64
}

func (c *Coordinator) startChain(ctx context.Context) (chain, error) {
	hash, seq, err := c.Store.TailHash(ctx)
	if err != nil {
		return chain{}, kernelerr.Wrap(kernelerr.StorageUnavailable, "coordinator: read audit tail", err)
	}
	return chain{prevHash: hash, seq: seq}, nil
}

func (c *Coordinator) emit(ctx context.Context, ch *chain, action audit.Action, entityID uuid.UUID, payloadHash string, actorID uuid.UUID, now time.Time) error {
	ch.seq++
	e := audit.New(ch.seq, action, entityID, payloadHash, ch.prevHash, actorID, now)
	if err := c.Store.AppendAuditEvent(ctx, e); err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "coordinator: append audit event", err)
	}
	ch.prevHash = e.Hash
	metrics.RecordAuditEvent(string(action))
	return nil
}

// Interpret runs the full algorithm for one event against one
// candidate scope (the policy selector's scope filter), producing the
// event's terminal-or-resumable InterpretationOutcome. Interpret never
// returns a bare error for an expected business condition (no matching
// policy, a guard firing, an unsupported schema version) — those surface
// as a non-POSTED outcome. It returns an error only on a storage failure:
// reading a prior outcome, saving the event, or recording the outcome and
// its audit trail.
func (c *Coordinator) Interpret(ctx context.Context, event domain.Event, scope string) (domain.InterpretationOutcome, error) {
	start := time.Now()
	outcome, err := c.interpret(ctx, event, scope)
	state := string(outcome.State)
	if err != nil {
		state = "ERROR"
	}
	metrics.RecordInterpretation(state, outcome.ReasonCode, time.Since(start))
	return outcome, err
}

func (c *Coordinator) interpret(ctx context.Context, event domain.Event, scope string) (domain.InterpretationOutcome, error) {
	now := c.Clock()

	// A duplicate event_id (retry, at-least-once delivery, or a
	// re-promoted staging record) must not post twice or grow the audit
	// chain again: return the prior outcome untouched before anything
	// else runs.
	if existing, found, err := c.Store.GetOutcome(ctx, event.EventID); err != nil {
		return domain.InterpretationOutcome{}, kernelerr.Wrap(kernelerr.StorageUnavailable, "coordinator: get outcome", err)
	} else if found {
		return *existing, nil
	}

	// Persist the raw ingested event up front, independent of how
	// interpretation resolves — the trace selector reconstructs
	// its origin-event section from this regardless of outcome.
	if err := c.Store.SaveEvent(ctx, event); err != nil {
		return domain.InterpretationOutcome{}, kernelerr.Wrap(kernelerr.StorageUnavailable, "coordinator: save event", err)
	}

	if open, reasonCode := c.Period(ctx, event.EffectiveDate); !open {
		return c.finalize(ctx, event, now, domain.InterpretationOutcome{
			EventID: event.EventID, State: domain.OutcomeRejected,
			ReasonCode: reasonCode, Detail: "effective_date falls in a closed or nonexistent period",
		})
	}

	supported := schema.SupportedSchemaVersions
	if errs := schema.ValidateEvent(event.EventType, event.Payload, event.SchemaVersion, supported); len(errs) > 0 {
		return c.finalize(ctx, event, now, domain.InterpretationOutcome{
			EventID: event.EventID, State: domain.OutcomeRejected,
			ReasonCode: "SCHEMA_VALIDATION_FAILED", Detail: errs[0].String(),
		})
	}
	if s, ok := c.Schemas.Get(event.EventType, event.SchemaVersion); ok {
		if errs := schema.ValidatePayloadAgainstSchema(event.Payload, s); len(errs) > 0 {
			return c.finalize(ctx, event, now, domain.InterpretationOutcome{
				EventID: event.EventID, State: domain.OutcomeRejected,
				ReasonCode: "SCHEMA_VALIDATION_FAILED", Detail: errs[0].String(),
			})
		}
	}

	matched, err := c.Selector.Select(event.EventType, event.Payload, event.EffectiveDate, scope)
	if err != nil {
		switch err.(type) {
		case *policy.NotFoundError:
			return c.finalize(ctx, event, now, domain.InterpretationOutcome{
				EventID: event.EventID, State: domain.OutcomeNonPosting,
				ReasonCode: "NO_MATCHING_POLICY", Detail: err.Error(),
			})
		case *policy.MultipleMatchError:
			return c.finalizeFailed(ctx, event, now, "AMBIGUOUS_POLICY", err.Error(), FailureEngine)
		default:
			return c.finalizeFailed(ctx, event, now, "POLICY_SELECTION_ERROR", err.Error(), FailureEngine)
		}
	}

	profileHash := policy.ProfileHash(matched)
	traceID := event.EventID.String()

	// Reference snapshot capture: frozen at decision time so
	// a later replay can tell exactly which config-pack versions applied.
	_ = c.Snapshot

	meaningResult := meaning.Build(&event, matched, profileHash, traceID, now)
	if len(meaningResult.ValidationErrors) > 0 {
		return c.finalizeFailed(ctx, event, now, "MEANING_BUILD_INVALID", meaningResult.ValidationErrors[0], FailureContract)
	}
	switch meaningResult.Guard.Outcome {
	case meaning.GuardRejected:
		return c.finalize(ctx, event, now, domain.InterpretationOutcome{
			EventID: event.EventID, State: domain.OutcomeRejected,
			ReasonCode: meaningResult.Guard.ReasonCode, Detail: meaningResult.Guard.Detail,
			PolicyName: matched.Name, PolicyHash: profileHash,
		})
	case meaning.GuardBlocked:
		return c.finalize(ctx, event, now, domain.InterpretationOutcome{
			EventID: event.EventID, State: domain.OutcomeBlocked,
			ReasonCode: meaningResult.Guard.ReasonCode, Detail: meaningResult.Guard.Detail,
			PolicyName: matched.Name, PolicyHash: profileHash,
		})
	}

	var amount decimal.Decimal
	var currency string
	if matched.UsesPayloadLines {
		currency, err = c.resolveCurrency(event.Payload)
	} else {
		amount, currency, err = c.resolveAmount(matched, event.Payload)
	}
	if err != nil {
		return c.finalizeFailed(ctx, event, now, "VALUATION_FAILED", err.Error(), FailureEngine)
	}

	var outcome domain.InterpretationOutcome
	var txErr error

	runErr := c.RunInTx(ctx, func(txCtx context.Context) error {
		ch, chErr := c.startChain(txCtx)
		if chErr != nil {
			return chErr
		}
		if err := c.emit(txCtx, &ch, audit.EventIngested, event.EventID, event.PayloadHash, event.ActorID, now); err != nil {
			return err
		}

		built, err := c.buildIntent(event, profileHash, matched, amount, currency)
		if err != nil {
			txErr = kernelerr.Wrap(kernelerr.IntentUnbalanced, "coordinator: intent build", err)
			return txErr
		}

		entries, err := journal.Write(txCtx, c.Store, c.Ledgers, built, c.Tolerances, now)
		if err != nil {
			txErr = err
			return err
		}

		ids := make([]uuid.UUID, 0, len(entries))
		for i := range entries {
			ids = append(ids, entries[i].JournalEntryID)
			if err := c.emit(txCtx, &ch, audit.JournalPosted, entries[i].JournalEntryID, event.PayloadHash, event.ActorID, now); err != nil {
				return err
			}
			metrics.RecordJournalEntryPosted()
		}

		outcome = domain.InterpretationOutcome{
			EventID: event.EventID, State: domain.OutcomePosted,
			PolicyName: matched.Name, PolicyHash: profileHash,
			JournalIDs: ids, RecordedAt: now,
		}
		if err := c.Store.RecordOutcome(txCtx, outcome); err != nil {
			txErr = kernelerr.Wrap(kernelerr.StorageUnavailable, "coordinator: record outcome", err)
			return txErr
		}
		return c.emit(txCtx, &ch, audit.OutcomeRecorded, event.EventID, event.PayloadHash, event.ActorID, now)
	})

	if runErr != nil {
		failureType := classifyFailure(txErr, runErr)
		msg := runErr.Error()
		if txErr != nil {
			msg = txErr.Error()
		}
		return c.finalizeFailed(ctx, event, now, failureCode(txErr, runErr), msg, failureType)
	}
	return outcome, nil
}

// buildIntent dispatches to the payload.lines constructor for a policy
// flagged UsesPayloadLines (an imported historical journal, each line
// already carrying its own account_key and amount) or the usual
// ledger-effects/line-mappings expansion otherwise.
func (c *Coordinator) buildIntent(event domain.Event, profileHash string, matched *policy.AccountingPolicy, amount decimal.Decimal, currency string) (*domain.AccountingIntent, error) {
	if !matched.UsesPayloadLines {
		return intent.Build(event.EventID, profileHash, matched, event.Payload, amount, currency)
	}
	if len(matched.LedgerEffects) == 0 {
		return nil, fmt.Errorf("policy %s: uses_payload_lines requires at least one ledger_effect naming the target ledger", matched.Name)
	}
	return intent.BuildFromPayloadLines(event.EventID, matched.Name, event.Payload, matched.LedgerEffects[0].LedgerID, currency, c.Ledgers.RoleForAccountCode)
}

// resolveCurrency reads the event-level currency for a policy that builds
// its intent from payload.lines: each line carries its own debit/credit
// amount already, so only the currency they share needs resolving here.
func (c *Coordinator) resolveCurrency(tree map[string]any) (string, error) {
	currencyVal, ok := payload.Get(tree, "currency")
	if !ok {
		return "", fmt.Errorf("uses_payload_lines policy requires a payload currency field")
	}
	currency, _ := currencyVal.(string)
	if currency == "" {
		return "", fmt.Errorf("uses_payload_lines policy requires a non-empty payload currency field")
	}
	return currency, nil
}

// resolveAmount derives (amount, currency) ahead of intent expansion: via
// the policy's named valuation model if it declares one, else straight off
// the payload's amount/currency fields.
func (c *Coordinator) resolveAmount(p *policy.AccountingPolicy, tree map[string]any) (decimal.Decimal, string, error) {
	if p.ValuationModel != "" {
		res := c.Valuations.Resolve(p.ValuationModel, tree, p.ValuationModelVersion)
		if !res.Success {
			return decimal.Decimal{}, "", fmt.Errorf("valuation model %s: %s", p.ValuationModel, res.Error)
		}
		return res.Value, res.Currency, nil
	}

	amountVal, ok := payload.Get(tree, "amount")
	if !ok {
		return decimal.Decimal{}, "", fmt.Errorf("no valuation model configured and payload has no amount field")
	}
	currencyVal, ok := payload.Get(tree, "currency")
	if !ok {
		return decimal.Decimal{}, "", fmt.Errorf("no valuation model configured and payload has no currency field")
	}
	currency, _ := currencyVal.(string)
	amount, err := toDecimal(amountVal)
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	return amount, currency, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case string:
		return decimal.NewFromString(val)
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case float64:
		return decimal.NewFromFloat(val), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("cannot coerce %T to decimal", v)
	}
}

// finalize persists a non-error outcome (REJECTED, BLOCKED, NON_POSTING)
// and its audit trail outside of the transactional pipeline proper — these
// are expected business conclusions, not step 6-8 failures, so they don't
// need the abort-and-rewrite dance finalizeFailed does.
func (c *Coordinator) finalize(ctx context.Context, event domain.Event, now time.Time, outcome domain.InterpretationOutcome) (domain.InterpretationOutcome, error) {
	outcome.RecordedAt = now
	ch, err := c.startChain(ctx)
	if err != nil {
		return outcome, err
	}
	if err := c.emit(ctx, &ch, audit.EventIngested, event.EventID, event.PayloadHash, event.ActorID, now); err != nil {
		return outcome, err
	}
	if err := c.Store.RecordOutcome(ctx, outcome); err != nil {
		return outcome, kernelerr.Wrap(kernelerr.StorageUnavailable, "coordinator: record outcome", err)
	}
	if err := c.emit(ctx, &ch, audit.OutcomeRecorded, event.EventID, event.PayloadHash, event.ActorID, now); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// finalizeFailed writes the FAILED outcome 's failure policy prescribes
// for an exception in steps 6-8: the pipeline's own transaction has already
// rolled back by the time this runs (RunInTx propagated the error), so no
// journal entries persist; this writes the outcome and its audit trail as
// a fresh, independent unit of work.
func (c *Coordinator) finalizeFailed(ctx context.Context, event domain.Event, now time.Time, reasonCode, detail string, failureType FailureType) (domain.InterpretationOutcome, error) {
	outcome := domain.InterpretationOutcome{
		EventID: event.EventID, State: domain.OutcomeFailed,
		ReasonCode: reasonCode, Detail: fmt.Sprintf("[%s] %s", failureType, detail),
		RecordedAt: now,
	}
	return c.finalize(ctx, event, now, outcome)
}

func classifyFailure(txErr, runErr error) FailureType {
	target := txErr
	if target == nil {
		target = runErr
	}
	ke, ok := target.(*kernelerr.KernelError)
	if !ok {
		return FailureSystem
	}
	switch ke.Code {
	case kernelerr.JournalUnbalanced, kernelerr.IntentUnbalanced:
		return FailureReconciliation
	case kernelerr.UnresolvableRole, kernelerr.MissingRequiredRoles:
		return FailureEngine
	case kernelerr.StorageUnavailable:
		return FailureSystem
	default:
		return FailureSystem
	}
}

func failureCode(txErr, runErr error) string {
	target := txErr
	if target == nil {
		target = runErr
	}
	if ke, ok := target.(*kernelerr.KernelError); ok {
		return string(ke.Code)
	}
	return "INTERPRETATION_FAILED"
}
