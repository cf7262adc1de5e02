package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatCode(t *testing.T) {
	require.Equal(t, "VEN001", FormatCode(CodePrefixVendor, 1))
	require.Equal(t, "PRD042", FormatCode(CodePrefixProduct, 42))
	require.Equal(t, "PO999", FormatCode(CodePrefixPO, 999))
	require.Equal(t, "GRN1000", FormatCode(CodePrefixGRN, 1000), "codes widen past three digits instead of truncating")
	require.Equal(t, "INV008", FormatCode(CodePrefixInvoice, 8))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 25)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 10, p.PerPage)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 0, p.Offset())

	p = NewPagination(3, 10, 25)
	require.Equal(t, 20, p.Offset())
	require.Equal(t, 3, p.TotalPages)

	p = NewPagination(1, 10, 0)
	require.Equal(t, 0, p.TotalPages)
}
