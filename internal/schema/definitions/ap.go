package definitions

import "github.com/ledgerforge/kernel/internal/schema"

// APInvoiceReceived builds the "ap.invoice_received" v1 schema: a PO-matched
// or non-PO vendor invoice arriving from accounts payable.
func APInvoiceReceived() (*schema.EventSchema, error) {
	minZero := "0"
	maxVendor := 64
	maxPO := 64
	return schema.New("ap.invoice_received", 1, []schema.FieldSchema{
		{Name: "amount", Type: schema.FieldDecimal, Required: true, MinValue: &minZero, Description: "Invoice total"},
		{Name: "currency", Type: schema.FieldCurrency, Required: true},
		{Name: "vendor_code", Type: schema.FieldString, Required: true, MaxLength: &maxVendor},
		{Name: "po_number", Type: schema.FieldString, Required: false, Nullable: true, MaxLength: &maxPO, Description: "Purchase order number, absent for non-PO invoices"},
		{Name: "cost_center", Type: schema.FieldString, Required: false, Nullable: true},
	})
}

// APPaymentIssued builds the "ap.payment_issued" v1 schema: cash disbursed
// against one or more open vendor invoices.
func APPaymentIssued() (*schema.EventSchema, error) {
	minZero := "0"
	return schema.New("ap.payment_issued", 1, []schema.FieldSchema{
		{Name: "amount", Type: schema.FieldDecimal, Required: true, MinValue: &minZero},
		{Name: "currency", Type: schema.FieldCurrency, Required: true},
		{Name: "vendor_code", Type: schema.FieldString, Required: true},
		{Name: "payment_method", Type: schema.FieldString, Required: false, Nullable: true},
	})
}
