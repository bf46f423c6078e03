// Package ids centralizes id generation so every identifier in the kernel
// comes from one place: random UUIDv4 for externally-supplied-or-generated
// entity ids, deterministic UUIDv5 for ids that must be reproducible from
// their inputs (journal-promotion event ids).
package ids

import "github.com/google/uuid"

// namespace is the kernel's UUIDv5 namespace, fixed so deterministic ids
// are stable across process restarts.
var namespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// New generates a random UUIDv4.
func New() uuid.UUID { return uuid.New() }

// Deterministic derives a UUIDv5 from a name, for ids that must be
// reproducible given the same inputs (e.g. one journal-promotion event per
// canonicalized record content, so re-promoting the same staged record
// yields the same event_id instead of a fresh one).
func Deterministic(name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(name))
}
