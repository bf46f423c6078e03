package domain

import "time"

// EconomicEvent ("meaning") is the output of the meaning builder: an
// event's payload interpreted through a matched policy into an economic
// fact with quantity and dimensions.
type EconomicEvent struct {
	EconomicType string
	Quantity     *string // decimal string; nil if meaning.quantity_field absent
	Dimensions   map[string]string
	PolicyName   string
	PolicyHash   string
	Snapshot     map[string]any
	TraceID      string
	CreatedAt    time.Time
}
