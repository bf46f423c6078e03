// Package journal implements the journal writer: resolves roles to
// account codes, assigns a monotonic per-ledger sequence, balances each
// ledger's lines, and transitions entries from draft to posted — the
// writer and the outcome recorder share one transaction at the coordinator
// layer, so every method here takes a caller-supplied ctx that is
// expected to already carry that transaction.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/kernelerr"
	"github.com/ledgerforge/kernel/internal/ledger"
	"github.com/ledgerforge/kernel/internal/money"
)

// Store is the persistence seam the writer depends on; internal/storage
// implementations satisfy it over Postgres or in-memory for tests.
type Store interface {
	// FindByIdempotencyKey returns the existing entry for a key, if any.
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.JournalEntry, bool, error)
	// InsertDraft persists a new draft entry with its lines.
	InsertDraft(ctx context.Context, entry *domain.JournalEntry) error
	// NextSeq atomically assigns the next monotonic seq for a ledger under
	// a row-level lock.
	NextSeq(ctx context.Context, ledgerID string) (int64, error)
	// Post transitions a draft entry to posted, recording seq and posted_at.
	Post(ctx context.Context, entryID uuid.UUID, seq int64, postedAt time.Time) error
}

// Tolerances maps ledger_id -> the per-ledger rounding threshold used by
// the balance check.
type Tolerances map[string]decimal.Decimal

// DefaultTolerance is used for ledgers absent from a Tolerances map.
var DefaultTolerance = decimal.NewFromFloat(0.01)

func (t Tolerances) forLedger(ledgerID string) decimal.Decimal {
	if v, ok := t[ledgerID]; ok {
		return v
	}
	return DefaultTolerance
}

// Write posts one JournalEntry per ledger present in the intent's
// LinesByLedger, in ledger-key order is not guaranteed but each ledger is
// independent. Resolution, balance-check, and seq assignment failures
// return a *kernelerr.KernelError; the caller (coordinator) is responsible
// for aborting its transaction on error so that no entry is left posted
// while a sibling ledger fails.
func Write(ctx context.Context, store Store, roles *ledger.Registry, intent *domain.AccountingIntent, tolerances Tolerances, now time.Time) ([]domain.JournalEntry, error) {
	if tolerances == nil {
		tolerances = Tolerances{}
	}

	entries := make([]domain.JournalEntry, 0, len(intent.LinesByLedger))
	for ledgerID, lines := range intent.LinesByLedger {
		entry, err := writeLedgerIntent(ctx, store, roles, intent.EventID, ledgerID, lines, tolerances.forLedger(ledgerID), now)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func writeLedgerIntent(ctx context.Context, store Store, roles *ledger.Registry, eventID uuid.UUID, ledgerID string, lines []domain.IntentLine, tolerance decimal.Decimal, now time.Time) (*domain.JournalEntry, error) {
	resolved, err := resolveLines(roles, lines)
	if err != nil {
		return nil, err
	}

	idempotencyKey := domain.IdempotencyKeyFor(eventID, ledgerID, 1)
	if existing, ok, err := store.FindByIdempotencyKey(ctx, idempotencyKey); err != nil {
		return nil, kernelerr.Wrap(kernelerr.StorageUnavailable, "journal: idempotency lookup", err)
	} else if ok {
		return existing, nil
	}

	entry := &domain.JournalEntry{
		JournalEntryID: uuid.New(),
		LedgerID: ledgerID,
		EventID: eventID,
		IdempotencyKey: idempotencyKey,
		Status: domain.JournalDraft,
		Lines: resolved,
	}

	if err := balanceEntry(entry, tolerance, roles); err != nil {
		return nil, err
	}

	if err := store.InsertDraft(ctx, entry); err != nil {
		return nil, kernelerr.Wrap(kernelerr.StorageUnavailable, "journal: insert draft", err)
	}

	seq, err := store.NextSeq(ctx, ledgerID)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.StorageUnavailable, "journal: seq assignment", err)
	}
	postedAt := now
	if err := store.Post(ctx, entry.JournalEntryID, seq, postedAt); err != nil {
		return nil, kernelerr.Wrap(kernelerr.StorageUnavailable, "journal: post transition", err)
	}

	entry.Seq = seq
	entry.Status = domain.JournalPosted
	entry.PostedAt = &postedAt
	return entry, nil
}

// resolveLines resolves each IntentLine's role to an account_code,
// numbering the resulting JournalLines in input order.
func resolveLines(roles *ledger.Registry, lines []domain.IntentLine) ([]domain.JournalLine, error) {
	resolved := make([]domain.JournalLine, 0, len(lines))
	for i, l := range lines {
		code, ok := roles.ResolveAccountCode(l.Role)
		if !ok {
			return nil, kernelerr.New(kernelerr.UnresolvableRole, fmt.Sprintf("no account_code bound for role %q", l.Role)).
				WithDetails(map[string]any{"role": l.Role, "ledger": l.Ledger})
		}
		resolved = append(resolved, domain.JournalLine{
			LineNumber: i + 1,
			AccountCode: code,
			Side: l.Side,
			Amount: l.Amount,
			Dimensions: map[string]string{},
		})
	}
	return resolved, nil
}

// RoundingRole is the role a rounding line's amount is posted against when
// a ledger's balance is off by less than its tolerance.
const RoundingRole = "RoundingAccount"

// balanceEntry groups an entry's lines by currency and checks debit ==
// credit within tolerance; a difference inside tolerance gets a single
// rounding line, above tolerance fails the entry.
func balanceEntry(entry *domain.JournalEntry, tolerance decimal.Decimal, roles *ledger.Registry) error {
	type totals struct {
		debit, credit decimal.Decimal
	}
	byCurrency := make(map[string]*totals)
	order := make([]string, 0, 2)
	for _, l := range entry.Lines {
		t, ok := byCurrency[l.Amount.Currency]
		if !ok {
			t = &totals{debit: decimal.Zero, credit: decimal.Zero}
			byCurrency[l.Amount.Currency] = t
			order = append(order, l.Amount.Currency)
		}
		switch l.Side {
		case "debit":
			t.debit = t.debit.Add(l.Amount.Value)
		case "credit":
			t.credit = t.credit.Add(l.Amount.Value)
		default:
			return kernelerr.New(kernelerr.JournalUnbalanced, fmt.Sprintf("line has unknown side %q", l.Side))
		}
	}

	nextLineNumber := len(entry.Lines) + 1
	for _, currency := range order {
		t := byCurrency[currency]
		diff := t.debit.Sub(t.credit)
		if diff.IsZero() {
			continue
		}
		absDiff := diff.Abs()
		if absDiff.GreaterThan(tolerance) {
			return kernelerr.New(kernelerr.JournalUnbalanced, fmt.Sprintf("ledger %s currency %s off by %s, exceeds tolerance %s", entry.LedgerID, currency, absDiff.String(), tolerance.String())).
				WithDetails(map[string]any{"debit": t.debit.String(), "credit": t.credit.String()})
		}
		side := "credit"
		if diff.Sign() < 0 {
			side = "debit"
		}
		roundingCode, _ := roles.ResolveAccountCode(RoundingRole)
		entry.Lines = append(entry.Lines, domain.JournalLine{
			LineNumber: nextLineNumber,
			AccountCode: roundingCode,
			Side: side,
			Amount: money.Amount{Value: absDiff, Currency: currency},
			Dimensions: map[string]string{},
			IsRounding: true,
		})
		nextLineNumber++
	}
	return nil
}
