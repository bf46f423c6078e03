package trace

import (
	"fmt"
	"sort"
	"strings"
)

// RenderNarrative formats a Bundle into an auditor-readable decision
// narrative for a CLI/TUI trace view, one plain-text section per bundle
// part: origin event, journal entries, interpretation outcome, decision
// journal, integrity, missing facts. No posting-context party/fiscal-
// period lookups or lifecycle links, since no Party/FiscalPeriod
// registries exist here (see DESIGN.md).
func RenderNarrative(b Bundle) string {
	var out strings.Builder

	section(&out, "ORIGIN EVENT")
	if b.Origin != nil {
		o := b.Origin
		fmt.Fprintf(&out, " event_id: %s\n", o.EventID)
		fmt.Fprintf(&out, " event_type: %s\n", o.EventType)
		fmt.Fprintf(&out, " occurred_at: %s\n", o.OccurredAt)
		fmt.Fprintf(&out, " effective_date: %s\n", o.EffectiveDate)
		fmt.Fprintf(&out, " producer: %s\n", o.Producer)
		fmt.Fprintf(&out, " schema_version: %d\n", o.SchemaVersion)
		fmt.Fprintf(&out, " payload_hash: %s\n", o.PayloadHash)
	} else {
		out.WriteString(" (origin event not found)\n")
	}

	section(&out, fmt.Sprintf("JOURNAL ENTRIES (%d)", len(b.JournalEntries)))
	if len(b.JournalEntries) == 0 {
		out.WriteString(" (none — event did not produce journal entries)\n")
	}
	for _, je := range b.JournalEntries {
		ledgerID := ledgerFromIdempotencyKey(je.IdempotencyKey)
		fmt.Fprintf(&out, " entry_id: %s\n", je.JournalEntryID)
		fmt.Fprintf(&out, " ledger: %s\n", orDash(ledgerID))
		fmt.Fprintf(&out, " status: %s seq: %d\n", je.Status, je.Seq)
		fmt.Fprintf(&out, " idempotency: %s\n", je.IdempotencyKey)
		if je.ReversalOfID != nil {
			fmt.Fprintf(&out, " reversal_of: %s\n", *je.ReversalOfID)
		}
		out.WriteString("\n")
		fmt.Fprintf(&out, " %4s %-7s %12s %-4s %-12s %s\n", "seq", "side", "amount", "curr", "account", "rounding")
		for _, line := range je.Lines {
			fmt.Fprintf(&out, " %4d %-7s %12s %-4s %-12s %v\n",
				line.LineNumber, line.Side, line.Amount.Value.String(), line.Amount.Currency, line.AccountCode, line.IsRounding)
			if len(line.Dimensions) > 0 {
				out.WriteString(" dims: " + formatDimensions(line.Dimensions) + "\n")
			}
		}
		out.WriteString("\n")
	}

	section(&out, "INTERPRETATION OUTCOME")
	if b.Outcome != nil {
		o := b.Outcome
		fmt.Fprintf(&out, " status: %s\n", o.State)
		if o.PolicyName != "" {
			fmt.Fprintf(&out, " policy: %s\n", o.PolicyName)
		}
		if o.PolicyHash != "" {
			fmt.Fprintf(&out, " policy_hash: %s...\n", truncate(o.PolicyHash, 16))
		}
		if o.ReasonCode != "" {
			fmt.Fprintf(&out, " reason_code: %s\n", o.ReasonCode)
		}
		if o.Detail != "" {
			fmt.Fprintf(&out, " detail: %s\n", o.Detail)
		}
		if len(o.JournalIDs) > 0 {
			fmt.Fprintf(&out, " journal_ids: %v\n", o.JournalIDs)
		}
	} else {
		out.WriteString(" (no interpretation outcome recorded)\n")
	}

	section(&out, fmt.Sprintf("DECISION JOURNAL (%d entries)", len(b.Timeline)))
	for i, t := range b.Timeline {
		fmt.Fprintf(&out, " [%2d] %-22s entity=%s at=%s\n", i, t.Action, truncate(t.EntityID.String(), 8), t.RecordedAt)
	}
	if len(b.Timeline) == 0 {
		out.WriteString(" (no audit events keyed to this event)\n")
	}

	section(&out, "INTEGRITY")
	fmt.Fprintf(&out, " payload_hash_verified: %v\n", b.Integrity.PayloadHashVerified)
	fmt.Fprintf(&out, " balance_verified: %v\n", b.Integrity.BalanceVerified)
	fmt.Fprintf(&out, " audit_chain_valid: %v\n", b.Integrity.AuditChainSegmentValid)
	allOK := b.Integrity.PayloadHashVerified && b.Integrity.BalanceVerified && b.Integrity.AuditChainSegmentValid
	result := "ALL CHECKS PASSED"
	if !allOK {
		result = "ISSUES DETECTED"
	}
	fmt.Fprintf(&out, " result: %s\n", result)

	if len(b.MissingFacts) > 0 {
		section(&out, fmt.Sprintf("MISSING FACTS (%d)", len(b.MissingFacts)))
		for _, mf := range b.MissingFacts {
			fmt.Fprintf(&out, " [%s] %s\n", mf.Fact, mf.ExpectedSource)
		}
	} else {
		out.WriteString("\n Trace is complete — 0 missing facts.\n")
	}

	return out.String()
}

func section(out *strings.Builder, title string) {
	out.WriteString("\n--- " + title + " ---\n\n")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ledgerFromIdempotencyKey extracts ledger_id from the journal writer's
// "{event_id}:{ledger_id}:{version}" idempotency key.
func ledgerFromIdempotencyKey(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func formatDimensions(dims map[string]string) string {
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, dims[k]))
	}
	return strings.Join(parts, " ")
}
