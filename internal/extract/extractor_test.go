package extract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/docukit/recognizer/internal/classify"
)

const sampleText = "姓名：張三 地址：香港九龍某街1號 日期：2025-12-11 電話：91234567"

func TestExtractIsDeterministic(t *testing.T) {
	first := Extract(sampleText, classify.TypeOther)
	second := Extract(sampleText, classify.TypeOther)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different mappings:\n%v\n%v", first, second)
	}
}

func TestExtractNoMatches(t *testing.T) {
	fields := Extract("no-match-here", classify.TypeOther)

	baseFields := []string{
		FieldAddress, FieldName, FieldDate, FieldPhone,
		FieldAmount, FieldIDNumber, FieldAccountNumber,
	}
	for _, field := range baseFields {
		v, ok := fields[field]
		if !ok {
			t.Errorf("field %s missing from mapping", field)
			continue
		}
		if v != nil {
			t.Errorf("field %s = %q, want absent", field, *v)
		}
	}
}

func TestExtractSampleDocument(t *testing.T) {
	fields := Extract(sampleText, classify.TypeOther)

	if v, ok := fields.Value(FieldName); !ok || v != "張三" {
		t.Errorf("name = %q (present=%v), want 張三", v, ok)
	}
	if v, ok := fields.Value(FieldDate); !ok || v != "2025-12-11" {
		t.Errorf("date = %q (present=%v), want 2025-12-11", v, ok)
	}
	if v, ok := fields.Value(FieldPhone); !ok || v != "91234567" {
		t.Errorf("phone = %q (present=%v), want 91234567", v, ok)
	}

	addr, ok := fields.Value(FieldAddress)
	if !ok || !strings.Contains(addr, "香港") {
		t.Errorf("address = %q (present=%v), want value containing 香港", addr, ok)
	}
	if ok && !strings.ContainsAny(addr, "區道街路號") {
		t.Errorf("address = %q, want a street/unit suffix token", addr)
	}

	if _, ok := fields.Value(FieldIDNumber); ok {
		t.Errorf("id_number present for type other, want absent")
	}
	if _, ok := fields.Value(FieldAccountNumber); ok {
		t.Errorf("account_number present for type other, want absent")
	}
}

func TestExtractTypeConditionalFields(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		docType classify.DocumentType
		field   string
		want    string
		exact   bool
	}{
		{
			name:    "HKID on identity card",
			text:    "ID: A1234567(8)",
			docType: classify.TypeIdentityCard,
			field:   FieldIDNumber,
			want:    "A1234567(8)",
			exact:   true,
		},
		{
			name:    "balance on bank statement",
			text:    "餘額: HK$1,234.56",
			docType: classify.TypeBankStatement,
			field:   FieldAccountBalance,
			want:    "1,234.56",
		},
		{
			name:    "currency-prefixed balance keeps the full amount",
			text:    "餘額: HK$1,234.56",
			docType: classify.TypeBankStatement,
			field:   FieldAccountBalance,
			want:    "HK$1,234.56",
			exact:   true,
		},
		{
			name:    "balance with english label and no currency prefix",
			text:    "Balance: 5,000.00",
			docType: classify.TypeBankStatement,
			field:   FieldAccountBalance,
			want:    "5,000.00",
			exact:   true,
		},
		{
			name:    "bill period on utility bill",
			text:    "賬單週期: 2025-01-01 至 2025-01-31",
			docType: classify.TypeUtilityBill,
			field:   FieldBillPeriod,
			want:    "2025-01-01 至 2025-01-31",
			exact:   true,
		},
		{
			name:    "account number on bank statement",
			text:    "Account: 123456789",
			docType: classify.TypeBankStatement,
			field:   FieldAccountNumber,
			want:    "123456789",
			exact:   true,
		},
		{
			name:    "account number on utility bill",
			text:    "賬戶: 987654321",
			docType: classify.TypeUtilityBill,
			field:   FieldAccountNumber,
			want:    "987654321",
			exact:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := Extract(tt.text, tt.docType)
			got, ok := fields.Value(tt.field)
			if !ok {
				t.Fatalf("%s absent, want %q", tt.field, tt.want)
			}
			if tt.exact && got != tt.want {
				t.Errorf("%s = %q, want %q", tt.field, got, tt.want)
			}
			if !tt.exact && !strings.Contains(got, tt.want) {
				t.Errorf("%s = %q, want value containing %q", tt.field, got, tt.want)
			}
		})
	}
}

func TestExtractTypeGatingOffType(t *testing.T) {
	// The same text yields nothing for a document type outside the gate.
	fields := Extract("Account: 123456789", classify.TypeOther)
	if _, ok := fields.Value(FieldAccountNumber); ok {
		t.Errorf("account_number extracted for type other, want absent")
	}

	fields = Extract("賬單週期: 2025-01-01 至 2025-01-31", classify.TypeBankStatement)
	if _, ok := fields[FieldBillPeriod]; ok {
		t.Errorf("bill_period key present for bank statement, want missing")
	}
}

func TestExtractAmountPicksLastMatch(t *testing.T) {
	text := "Subtotal HK$100.00\nDelivery HK$20.00\nTotal HK$250.50"
	fields := Extract(text, classify.TypeOther)

	got, ok := fields.Value(FieldAmount)
	if !ok || !strings.Contains(got, "250.50") {
		t.Errorf("amount = %q (present=%v), want last amount 250.50", got, ok)
	}
}

func TestSensitiveValues(t *testing.T) {
	text := "姓名：張三 電話：91234567 ID: A1234567(8)"
	fields := Extract(text, classify.TypeIdentityCard)

	values := fields.SensitiveValues()
	want := map[string]bool{"張三": true, "91234567": true, "A1234567(8)": true}
	if len(values) != len(want) {
		t.Fatalf("sensitive values = %v, want %d entries", values, len(want))
	}
	for _, v := range values {
		if !want[v] {
			t.Errorf("unexpected sensitive value %q", v)
		}
	}
}
