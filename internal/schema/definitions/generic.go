// Package definitions holds the concrete EventSchema registrations the
// kernel ships with. Each file registers one event family's schema(s)
// into a shared registry at startup.
package definitions

import "github.com/ledgerforge/kernel/internal/schema"

// GenericPosting builds the "generic.posting" v1 schema: a direct journal
// posting event for callers that bypass policy-driven interpretation
// entirely and specify debit/credit lines explicitly.
func GenericPosting() (*schema.EventSchema, error) {
	minZero := "0"
	maxDesc := 500
	maxMemoLine := 200
	maxMemo := 1000
	maxRef := 100
	return schema.New("generic.posting", 1, []schema.FieldSchema{
		{Name: "description", Type: schema.FieldString, Required: true, MaxLength: &maxDesc, Description: "Description of the journal entry"},
		{Name: "currency", Type: schema.FieldCurrency, Required: true, Description: "Currency for all line amounts"},
		{
			Name: "lines", Type: schema.FieldArray, Required: true, ItemType: schema.FieldObject,
			Description: "Journal entry lines (must balance)",
			ItemSchema: []schema.FieldSchema{
				{Name: "account_code", Type: schema.FieldString, Required: true, Description: "Account code for this line"},
				{Name: "debit", Type: schema.FieldDecimal, Required: false, Nullable: true, MinValue: &minZero, Description: "Debit amount (mutually exclusive with credit)"},
				{Name: "credit", Type: schema.FieldDecimal, Required: false, Nullable: true, MinValue: &minZero, Description: "Credit amount (mutually exclusive with debit)"},
				{Name: "memo", Type: schema.FieldString, Required: false, Nullable: true, MaxLength: &maxMemoLine, Description: "Optional line-level memo"},
			},
		},
		{Name: "reference", Type: schema.FieldString, Required: false, Nullable: true, MaxLength: &maxRef, Description: "External reference number"},
		{Name: "memo", Type: schema.FieldString, Required: false, Nullable: true, MaxLength: &maxMemo, Description: "Additional notes"},
	})
}
