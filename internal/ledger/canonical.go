package ledger

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/shopspring/decimal"
)

// Field is a canonical transaction field.
type Field string

const (
	FieldID            Field = "id"
	FieldDate          Field = "date"
	FieldCustomerName  Field = "customerName"
	FieldService       Field = "service"
	FieldWorker        Field = "worker"
	FieldAmount        Field = "amount"
	FieldTip           Field = "tip"
	FieldPaymentMethod Field = "paymentMethod"
	FieldNotes         Field = "notes"
	FieldPhone         Field = "phone"
	FieldCategory      Field = "category"
	FieldTimestamp     Field = "timestamp"
	FieldCreatedAt     Field = "createdAt"
	FieldUpdatedAt     Field = "updatedAt"
)

// Every spelling a field has had in sheets, tables and client payloads,
// keyed by its folded form (lower case, letters and digits only).
var fieldAliases = map[string]Field{
	"id":            FieldID,
	"transactionid": FieldID,
	"txnid":         FieldID,
	"date":          FieldDate,
	"customername":  FieldCustomerName,
	"customer":      FieldCustomerName,
	"client":        FieldCustomerName,
	"clientname":    FieldCustomerName,
	"service":       FieldService,
	"servicename":   FieldService,
	"worker":        FieldWorker,
	"workername":    FieldWorker,
	"staff":         FieldWorker,
	"amount":        FieldAmount,
	"cost":          FieldAmount,
	"price":         FieldAmount,
	"tip":           FieldTip,
	"tips":          FieldTip,
	"paymentmethod": FieldPaymentMethod,
	"payment":       FieldPaymentMethod,
	"notes":         FieldNotes,
	"note":          FieldNotes,
	"phone":         FieldPhone,
	"phonenumber":   FieldPhone,
	"mobile":        FieldPhone,
	"category":      FieldCategory,
	"categories":    FieldCategory,
	"timestamp":     FieldTimestamp,
	"createdat":     FieldCreatedAt,
	"created":       FieldCreatedAt,
	"updatedat":     FieldUpdatedAt,
	"updated":       FieldUpdatedAt,
}

// Layout is the column order of a transaction row log.
type Layout []Field

// CurrentLayout is the column order written by this service.
var CurrentLayout = Layout{
	FieldID, FieldDate, FieldCustomerName, FieldService, FieldWorker,
	FieldAmount, FieldTip, FieldPaymentMethod, FieldNotes, FieldPhone,
	FieldCategory, FieldCreatedAt, FieldUpdatedAt,
}

// HeaderRow is the header written above CurrentLayout.
var HeaderRow = []string{
	"ID", "Date", "Customer_Name", "Service", "Worker",
	"Amount", "Tip", "Payment_Method", "Notes", "Phone",
	"Category", "Created_At", "Updated_At",
}

func foldKey(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// CanonicalField resolves any known spelling of a field name.
func CanonicalField(name string) (Field, bool) {
	f, ok := fieldAliases[foldKey(name)]
	return f, ok
}

// LayoutFromHeader derives the column order from a header row. Unknown
// columns map to "" and are ignored on read. A header whose first label is
// blank and that names no ID column elsewhere keeps its IDs in column 0.
func LayoutFromHeader(header []string) Layout {
	layout := make(Layout, len(header))
	for i, label := range header {
		if f, ok := CanonicalField(label); ok {
			layout[i] = f
		}
	}
	if len(layout) > 0 && strings.TrimSpace(header[0]) == "" && layout.Index(FieldID) < 0 {
		layout[0] = FieldID
	}
	return layout
}

// LayoutFor returns the layout of a row log: from its header when present,
// CurrentLayout otherwise.
func LayoutFor(rows [][]string) Layout {
	if DataStartIndex(rows) == 1 {
		return LayoutFromHeader(rows[0])
	}
	return CurrentLayout
}

// IDColumn returns the column holding transaction IDs in rows, or -1 when
// the header names none.
func IDColumn(rows [][]string) int {
	return LayoutFor(rows).Index(FieldID)
}

// Index returns the column of f, or -1.
func (l Layout) Index(f Field) int {
	for i, c := range l {
		if c == f {
			return i
		}
	}
	return -1
}

// RecordFromRow reads a stored row. Unreadable or negative money reads as
// zero.
func RecordFromRow(row []string, layout Layout) domain.TransactionRecord {
	var rec domain.TransactionRecord
	for i, f := range layout {
		if f == "" {
			continue
		}
		setField(&rec, f, cell(row, i))
	}
	return rec
}

// RowFromRecord renders rec in layout's column order.
func RowFromRecord(rec domain.TransactionRecord, layout Layout) []string {
	row := make([]string, len(layout))
	for i, f := range layout {
		row[i] = fieldValue(rec, f)
	}
	return row
}

// RecordFromMap reads a record from a decoded JSON object whose keys may use
// any known alias. When a field appears under several spellings the
// canonical one wins. The second return lists money fields that were present
// but unreadable or negative; they read as zero.
func RecordFromMap(m map[string]any) (domain.TransactionRecord, []string) {
	type candidate struct {
		value     string
		canonical bool
	}
	picked := make(map[Field]candidate)

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := CanonicalField(k)
		if !ok {
			continue
		}
		isCanonical := foldKey(k) == foldKey(string(f))
		if prev, seen := picked[f]; seen && (prev.canonical || !isCanonical) {
			continue
		}
		picked[f] = candidate{value: stringify(m[k]), canonical: isCanonical}
	}

	var rec domain.TransactionRecord
	var malformed []string
	for f, c := range picked {
		if (f == FieldAmount || f == FieldTip) && strings.TrimSpace(c.value) != "" {
			if _, ok := ParseMoney(c.value); !ok {
				malformed = append(malformed, string(f))
			}
		}
		setField(&rec, f, c.value)
	}
	sort.Strings(malformed)
	return rec, malformed
}

// MapFromRecord renders rec with snake_case column names, the spelling used
// by relational tables.
func MapFromRecord(rec domain.TransactionRecord) map[string]any {
	return map[string]any{
		"id":             rec.ID,
		"date":           rec.Date,
		"customer_name":  rec.CustomerName,
		"service":        rec.Service,
		"worker":         rec.Worker,
		"amount":         rec.Amount,
		"tip":            rec.Tip,
		"payment_method": rec.PaymentMethod,
		"notes":          rec.Notes,
		"phone":          rec.Phone,
		"category":       rec.Category,
		"created_at":     rec.CreatedAt,
		"updated_at":     rec.UpdatedAt,
	}
}

// ParseMoney reads a non-negative amount, tolerating surrounding spaces,
// thousands separators and an AED prefix.
func ParseMoney(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(s), "AED"))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

func moneyOrZero(raw string) decimal.Decimal {
	d, _ := ParseMoney(raw)
	return d
}

func setField(rec *domain.TransactionRecord, f Field, v string) {
	switch f {
	case FieldID:
		rec.ID = strings.TrimSpace(v)
	case FieldDate:
		rec.Date = strings.TrimSpace(v)
	case FieldCustomerName:
		rec.CustomerName = v
	case FieldService:
		rec.Service = v
	case FieldWorker:
		rec.Worker = v
	case FieldAmount:
		rec.Amount = moneyOrZero(v)
	case FieldTip:
		rec.Tip = moneyOrZero(v)
	case FieldPaymentMethod:
		rec.PaymentMethod = v
	case FieldNotes:
		rec.Notes = v
	case FieldPhone:
		rec.Phone = v
	case FieldCategory:
		rec.Category = v
	case FieldTimestamp:
		rec.Timestamp = strings.TrimSpace(v)
	case FieldCreatedAt:
		rec.CreatedAt = strings.TrimSpace(v)
	case FieldUpdatedAt:
		rec.UpdatedAt = strings.TrimSpace(v)
	}
}

func fieldValue(rec domain.TransactionRecord, f Field) string {
	switch f {
	case FieldID:
		return rec.ID
	case FieldDate:
		return rec.Date
	case FieldCustomerName:
		return rec.CustomerName
	case FieldService:
		return rec.Service
	case FieldWorker:
		return rec.Worker
	case FieldAmount:
		return rec.Amount.String()
	case FieldTip:
		return rec.Tip.String()
	case FieldPaymentMethod:
		return rec.PaymentMethod
	case FieldNotes:
		return rec.Notes
	case FieldPhone:
		return rec.Phone
	case FieldCategory:
		return rec.Category
	case FieldTimestamp:
		return rec.Timestamp
	case FieldCreatedAt:
		return rec.CreatedAt
	case FieldUpdatedAt:
		return rec.UpdatedAt
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case decimal.Decimal:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
