package shared

import "fmt"

// Display-code prefixes per entity.
const (
	CodePrefixVendor  = "VEN"
	CodePrefixProduct = "PRD"
	CodePrefixPO      = "PO"
	CodePrefixGRN     = "GRN"
	CodePrefixInvoice = "INV"
)

// FormatCode renders a sequence value as a display code, zero-padded to three
// digits (VEN001, PO042). Values past 999 widen naturally (PO1000). Values
// come from database sequences so concurrent writers never collide.
func FormatCode(prefix string, n int64) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}
