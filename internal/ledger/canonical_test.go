package ledger_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalField_Aliases(t *testing.T) {
	tests := map[string]ledger.Field{
		"Customer_Name":  ledger.FieldCustomerName,
		"customer":       ledger.FieldCustomerName,
		"cost":           ledger.FieldAmount,
		"Payment_Method": ledger.FieldPaymentMethod,
		"payment":        ledger.FieldPaymentMethod,
		"createdat":      ledger.FieldCreatedAt,
		"Created_At":     ledger.FieldCreatedAt,
		"ID":             ledger.FieldID,
	}
	for name, want := range tests {
		got, ok := ledger.CanonicalField(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := ledger.CanonicalField("favourite_colour")
	assert.False(t, ok)
}

func TestRecordFromMap_CanonicalSpellingWins(t *testing.T) {
	rec, malformed := ledger.RecordFromMap(map[string]any{
		"cost":     "10",
		"amount":   "25",
		"customer": "Ava",
		"payment":  "Cash",
	})

	assert.Empty(t, malformed)
	assertMoney(t, "25", rec.Amount)
	assert.Equal(t, "Ava", rec.CustomerName)
	assert.Equal(t, "Cash", rec.PaymentMethod)
}

func TestRecordFromMap_JSONNumbers(t *testing.T) {
	dec := json.NewDecoder(strings.NewReader(`{"amount": 15.5, "tip": 2, "worker": "Sam"}`))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))

	rec, malformed := ledger.RecordFromMap(m)
	assert.Empty(t, malformed)
	assertMoney(t, "15.5", rec.Amount)
	assertMoney(t, "2", rec.Tip)
	assert.Equal(t, "Sam", rec.Worker)
}

func TestRecordFromMap_NegativeMoneyIsMalformed(t *testing.T) {
	rec, malformed := ledger.RecordFromMap(map[string]any{"amount": "-5", "tip": "x"})
	assert.Equal(t, []string{"amount", "tip"}, malformed)
	assert.True(t, rec.Amount.IsZero())
}

func TestLayoutFor_LegacyHeader(t *testing.T) {
	rows := [][]string{
		{"ID", "Date", "Customer_Name", "Service", "Worker", "Amount", "Payment_Method", "Notes", "Created_At", "Updated_At"},
		{"TXN-1", "01/06/2024", "Ava", "Cut", "Maria", "15", "Cash", "", "2024-06-01T06:00:00Z", ""},
	}

	layout := ledger.LayoutFor(rows)
	rec := ledger.RecordFromRow(rows[1], layout)

	assert.Equal(t, "TXN-1", rec.ID)
	assert.Equal(t, "Maria", rec.Worker)
	assertMoney(t, "15", rec.Amount)
	assert.True(t, rec.Tip.IsZero())
	assert.Equal(t, "Cash", rec.PaymentMethod)
	assert.Equal(t, "2024-06-01T06:00:00Z", rec.CreatedAt)
}

func TestLayoutFromHeader_BlankFirstLabelHoldsIDs(t *testing.T) {
	rows := [][]string{
		{"", "Date", "Customer", "Service", "Worker", "Amount"},
		{"TXN-1", "01/06/2024", "Ava", "Cut", "Maria", "15"},
	}

	assert.Equal(t, 0, ledger.IDColumn(rows))
	assert.Equal(t, "TXN-1", ledger.RecordFromRow(rows[1], ledger.LayoutFor(rows)).ID)
}

func TestIDColumn_FollowsHeader(t *testing.T) {
	moved := [][]string{{"Notes", "Date", "Transaction ID"}, {"", "01/06/2024", "TXN-1"}}
	assert.Equal(t, 2, ledger.IDColumn(moved))

	none := [][]string{{"Note", "Date", "Customer", "Service"}}
	assert.Equal(t, -1, ledger.IDColumn(none))

	assert.Equal(t, 0, ledger.IDColumn([][]string{{"TXN-1", "01/06/2024"}}))
}

func TestRowRoundTrip_CurrentLayout(t *testing.T) {
	rec := domain.TransactionRecord{
		ID: "TXN-1", Date: "01/06/2024", CustomerName: "Ava", Service: "Cut, Shave",
		Worker: "Maria", Amount: money("35"), Tip: money("5"), PaymentMethod: "Card",
		Phone: "0501234567", Category: "Hair, Beard", CreatedAt: "2024-06-01T06:00:00Z",
	}

	row := ledger.RowFromRecord(rec, ledger.CurrentLayout)
	require.Len(t, row, len(ledger.HeaderRow))
	assert.True(t, ledger.IsHeaderRow(ledger.HeaderRow))
	assert.Equal(t, ledger.CurrentLayout, ledger.LayoutFromHeader(ledger.HeaderRow))

	back := ledger.RecordFromRow(row, ledger.CurrentLayout)
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.Service, back.Service)
	assertMoney(t, "35", back.Amount)
	assertMoney(t, "5", back.Tip)
}

func TestParseMoney(t *testing.T) {
	d, ok := ledger.ParseMoney(" AED 1,250.50 ")
	assert.True(t, ok)
	assertMoney(t, "1250.5", d)

	_, ok = ledger.ParseMoney("")
	assert.False(t, ok)

	_, ok = ledger.ParseMoney("twelve")
	assert.False(t, ok)
}
