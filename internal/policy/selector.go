package policy

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// AlreadyRegisteredError is returned when a (name, version) pair is
// registered twice.
type AlreadyRegisteredError struct{ Key string }

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("policy already registered: %s", e.Key)
}

// OverlapError is returned when a new policy could match the same event as
// an already-registered one and the precedence rules can't resolve which
// one wins.
type OverlapError struct {
	New, Existing string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("policy %q overlaps %q with unresolvable precedence", e.New, e.Existing)
}

// NotFoundError is returned when no registered policy matches a selection
// request.
type NotFoundError struct{ EventType string }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no policy matches event_type %q", e.EventType)
}

// MultipleMatchError is returned when more than one policy survives
// filtering and precedence cannot resolve a winner.
type MultipleMatchError struct {
	EventType string
	Names []string
}

func (e *MultipleMatchError) Error() string {
	return fmt.Sprintf("multiple policies match event_type %q: %s", e.EventType, strings.Join(e.Names, ", "))
}

// Selector is the registry keyed by event_type, read-mostly after startup.
type Selector struct {
	mu sync.RWMutex
	byKey map[string]*AccountingPolicy
	byEvent map[string][]*AccountingPolicy
}

// NewSelector builds an empty policy selector.
func NewSelector() *Selector {
	return &Selector{
		byKey: make(map[string]*AccountingPolicy),
		byEvent: make(map[string][]*AccountingPolicy),
	}
}

// Register validates and adds a policy, rejecting duplicate (name, version)
// and unresolvable overlaps with existing policies sharing the event_type.
func (s *Selector) Register(p *AccountingPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.ProfileKey()
	if _, exists := s.byKey[key]; exists {
		return &AlreadyRegisteredError{Key: key}
	}

	for _, existing := range s.byEvent[p.Trigger.EventType] {
		if overlaps(p, existing) {
			if _, resolved := resolvePrecedence([]*AccountingPolicy{p, existing}); !resolved {
				return &OverlapError{New: p.Name, Existing: existing.Name}
			}
		}
	}

	s.byKey[key] = p
	s.byEvent[p.Trigger.EventType] = append(s.byEvent[p.Trigger.EventType], p)
	return nil
}

// dateRangesOverlap reports whether two [from, to) ranges intersect.
func dateRangesOverlap(aFrom time.Time, aTo *time.Time, bFrom time.Time, bTo *time.Time) bool {
	if aTo != nil && !aTo.After(bFrom) {
		return false
	}
	if bTo != nil && !bTo.After(aFrom) {
		return false
	}
	return true
}

func scopesOverlap(a, b string) bool {
	if a == "*" || b == "*" {
		return true
	}
	aPrefix, aIsPrefix := strings.CutSuffix(a, ":*")
	bPrefix, bIsPrefix := strings.CutSuffix(b, ":*")
	switch {
	case aIsPrefix && bIsPrefix:
		return strings.HasPrefix(aPrefix, bPrefix) || strings.HasPrefix(bPrefix, aPrefix)
	case aIsPrefix:
		return strings.HasPrefix(b, aPrefix)
	case bIsPrefix:
		return strings.HasPrefix(a, bPrefix)
	default:
		return a == b
	}
}

func overlaps(a, b *AccountingPolicy) bool {
	if a.Trigger.EventType != b.Trigger.EventType {
		return false
	}
	if !dateRangesOverlap(a.EffectiveFrom, a.EffectiveTo, b.EffectiveFrom, b.EffectiveTo) {
		return false
	}
	return scopesOverlap(a.Scope, b.Scope)
}

// scopeSpecificity ranks a scope by how exact it is: exact > prefix > "*".
func scopeSpecificity(scope string) int {
	if scope == "*" {
		return 0
	}
	if strings.HasSuffix(scope, ":*") {
		return 1 + len(scope)
	}
	return 1000 + len(scope)
}

// resolvePrecedence applies the four-step tie-break and returns the winner,
// or (nil, false) if ambiguous.
func resolvePrecedence(candidates []*AccountingPolicy) (*AccountingPolicy, bool) {
	if len(candidates) == 1 {
		return candidates[0], true
	}

	// explicit override: one names the other.
	for _, c := range candidates {
		overridesAllOthers := true
		for _, other := range candidates {
			if other == c {
				continue
			}
			named := false
			for _, n := range c.Precedence.ExplicitOverride {
				if n == other.Name {
					named = true
					break
				}
			}
			if !named {
				overridesAllOthers = false
				break
			}
		}
		if overridesAllOthers && len(candidates) > 1 {
			return c, true
		}
	}

	// scope specificity
	maxSpec := -1
	var bySpec []*AccountingPolicy
	for _, c := range candidates {
		spec := scopeSpecificity(c.Scope)
		if spec > maxSpec {
			maxSpec = spec
			bySpec = []*AccountingPolicy{c}
		} else if spec == maxSpec {
			bySpec = append(bySpec, c)
		}
	}
	if len(bySpec) == 1 {
		return bySpec[0], true
	}

	// priority
	maxPriority := bySpec[0].Precedence.Priority
	var byPriority []*AccountingPolicy
	for _, c := range bySpec {
		if c.Precedence.Priority > maxPriority {
			maxPriority = c.Precedence.Priority
			byPriority = []*AccountingPolicy{c}
		} else if c.Precedence.Priority == maxPriority {
			byPriority = append(byPriority, c)
		}
	}
	if len(byPriority) == 1 {
		return byPriority[0], true
	}

	// OVERRIDE mode beats NORMAL
	var overrideMode []*AccountingPolicy
	for _, c := range byPriority {
		if c.Precedence.Mode == Override {
			overrideMode = append(overrideMode, c)
		}
	}
	if len(overrideMode) == 1 {
		return overrideMode[0], true
	}

	return nil, false
}

// Select returns the unique policy applicable to an event, applying the
// gather → where-clause filter → scope filter → precedence-resolution
// procedure.
func (s *Selector) Select(eventType string, payload map[string]any, effectiveDate time.Time, scope string) (*AccountingPolicy, error) {
	s.mu.RLock()
	all := append([]*AccountingPolicy(nil), s.byEvent[eventType]...)
	s.mu.RUnlock()

	var candidates []*AccountingPolicy
	for _, p := range all {
		if !p.IsEffectiveOn(effectiveDate) {
			continue
		}
		if !matchesWhere(p.Trigger.Where, payload) {
			continue
		}
		if !p.MatchesScope(scope) {
			continue
		}
		candidates = append(candidates, p)
	}

	switch len(candidates) {
	case 0:
		return nil, &NotFoundError{EventType: eventType}
	case 1:
		return candidates[0], nil
	}

	winner, ok := resolvePrecedence(candidates)
	if !ok {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Name
		}
		sort.Strings(names)
		return nil, &MultipleMatchError{EventType: eventType, Names: names}
	}
	return winner, nil
}

func matchesWhere(where map[string]string, payload map[string]any) bool {
	for path, expected := range where {
		actual, ok := resolveDotPath(payload, strings.TrimPrefix(path, "payload."))
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", actual) != expected {
			return false
		}
	}
	return true
}

func resolveDotPath(payload map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = payload
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
