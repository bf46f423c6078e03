// Package audit implements the append-only, hash-chained AuditEvent
// record. Every audit event is written inside the same
// transaction as the mutation it describes; the chain's integrity is
// verified by recomputing every link in seq order.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action enumerates the audit actions the kernel emits.
type Action string

const (
	EventIngested Action = "EVENT_INGESTED"
	JournalPosted Action = "JOURNAL_POSTED"
	OutcomeRecorded Action = "OUTCOME_RECORDED"
	ImportRecordPromoted Action = "IMPORT_RECORD_PROMOTED"
	ImportBatchCompleted Action = "IMPORT_BATCH_COMPLETED"
)

// Event is one link in the hash chain.
type Event struct {
	Seq int64
	Action Action
	EntityID uuid.UUID
	PayloadHash string
	PrevHash string
	Hash string
	ActorID uuid.UUID
	RecordedAt time.Time
}

// ComputeHash computes hash = sha256(seq || action || entity_id ||
// payload_hash || prev_hash), chaining each entry to the one before it.
func ComputeHash(seq int64, action Action, entityID uuid.UUID, payloadHash, prevHash string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s", seq, action, entityID.String(), payloadHash, prevHash)
	return hex.EncodeToString(h.Sum(nil))
}

// New builds the next Event in the chain given the previous link's hash
// (the empty string for seq 1).
func New(seq int64, action Action, entityID uuid.UUID, payloadHash, prevHash string, actorID uuid.UUID, recordedAt time.Time) Event {
	e := Event{
		Seq: seq, Action: action, EntityID: entityID,
		PayloadHash: payloadHash, PrevHash: prevHash,
		ActorID: actorID, RecordedAt: recordedAt,
	}
	e.Hash = ComputeHash(seq, action, entityID, payloadHash, prevHash)
	return e
}

// ChainBrokenError reports the first seq at which the recomputed hash
// diverges from the stored one.
type ChainBrokenError struct {
	Seq int64
}

func (e *ChainBrokenError) Error() string {
	return fmt.Sprintf("audit chain broken at seq %d", e.Seq)
}

// VerifyChain walks events in seq order (caller guarantees the order) and
// recomputes every link, returning ChainBrokenError on the first mismatch.
func VerifyChain(events []Event) error {
	for i, e := range events {
		prev := ""
		if i > 0 {
			prev = events[i-1].Hash
		}
		if e.PrevHash != prev {
			return &ChainBrokenError{Seq: e.Seq}
		}
		recomputed := ComputeHash(e.Seq, e.Action, e.EntityID, e.PayloadHash, e.PrevHash)
		if recomputed != e.Hash {
			return &ChainBrokenError{Seq: e.Seq}
		}
	}
	return nil
}

// HashPayload computes the canonical sha-256 payload hash stored on
// Event.PayloadHash and on the originating Event's PayloadHash field.
func HashPayload(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
