package definitions

import "github.com/ledgerforge/kernel/internal/schema"

// RegisterAll registers every schema this kernel ships with into r. It
// does not seal the registry; the caller (bootstrap.BuildSchemaRegistry)
// does. Additional modules (the remaining seventeen
// finance_modules/ profile packs referenced in SPEC_FULL.md) register
// their own event schemas the same way before the registry is sealed in a
// real deployment's boot sequence; RegisterAll covers the kernel's own
// built-ins (generic posting, AP, inventory).
func RegisterAll(r *schema.Registry) error {
	builders := []func() (*schema.EventSchema, error){
		GenericPosting,
		APInvoiceReceived,
		APPaymentIssued,
		InventoryReceipt,
		InventoryIssue,
	}
	for _, build := range builders {
		s, err := build()
		if err != nil {
			return err
		}
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}
