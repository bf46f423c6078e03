package definitions

import "github.com/ledgerforge/kernel/internal/schema"

// InventoryReceipt builds "inventory.receipt" v1: goods received against a
// purchase order, increasing on-hand inventory.
func InventoryReceipt() (*schema.EventSchema, error) {
	minZero := "0"
	return schema.New("inventory.receipt", 1, []schema.FieldSchema{
		{Name: "quantity", Type: schema.FieldDecimal, Required: true, MinValue: &minZero},
		{Name: "unit_price", Type: schema.FieldDecimal, Required: true, MinValue: &minZero},
		{Name: "currency", Type: schema.FieldCurrency, Required: true},
		{Name: "sku", Type: schema.FieldString, Required: true},
		{Name: "po_number", Type: schema.FieldString, Required: false, Nullable: true},
		{Name: "warehouse", Type: schema.FieldString, Required: false, Nullable: true},
	})
}

// InventoryIssue builds "inventory.issue" v1: goods consumed from on-hand
// inventory, recognized as cost of goods sold.
func InventoryIssue() (*schema.EventSchema, error) {
	minZero := "0"
	return schema.New("inventory.issue", 1, []schema.FieldSchema{
		{Name: "quantity", Type: schema.FieldDecimal, Required: true, MinValue: &minZero},
		{Name: "unit_cost", Type: schema.FieldDecimal, Required: true, MinValue: &minZero},
		{Name: "currency", Type: schema.FieldCurrency, Required: true},
		{Name: "sku", Type: schema.FieldString, Required: true},
		{Name: "cost_center", Type: schema.FieldString, Required: false, Nullable: true},
	})
}
