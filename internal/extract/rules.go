/**
 * Extraction rule tables.
 *
 * Each field family is an ordered list of candidate patterns plus a selection
 * policy, consumed by the generic matcher in extractor.go. Type-conditional
 * families are driven by a document-type lookup, so new document types only
 * need a new table entry.
 */

package extract

import (
	"regexp"

	"github.com/docukit/recognizer/internal/classify"
)

// Field names as they appear in the extracted-info mapping.
const (
	FieldAddress        = "address"
	FieldName           = "name"
	FieldDate           = "date"
	FieldPhone          = "phone"
	FieldAmount         = "amount"
	FieldIDNumber       = "id_number"
	FieldAccountNumber  = "account_number"
	FieldBillPeriod     = "bill_period"
	FieldAccountBalance = "account_balance"
)

type selection int

const (
	firstMatch selection = iota
	// lastMatch picks the final occurrence; documents typically list a
	// running total last.
	lastMatch
)

// rule is one field family: ordered candidate patterns, a capture group, a
// selection policy, and optionally the document types it applies to (empty
// means every type).
type rule struct {
	field    string
	patterns []*regexp.Regexp
	group    int
	pick     selection
	types    []classify.DocumentType
}

// hkidPattern matches Hong Kong identity card numbers:
// letter + 6-7 digits + bracketed check digit or "A".
var hkidPattern = regexp.MustCompile(`[A-Z]\d{6,7}\([0-9A]\)`)

// baseRules is always attempted regardless of document type; type-gated
// entries resolve to an absent value for other types.
var baseRules = []rule{
	{
		field: FieldAddress,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[香港九龍新界].*?(?:區|道|街|路|號|大廈|樓|室)`),
			regexp.MustCompile(`(?i)[A-Za-z].*?(?:Road|Street|Avenue|Lane|Building|Flat|Room)`),
		},
	},
	{
		field: FieldName,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:姓名|Name)[:：\s]+([A-Za-z\s]+|[\x{4e00}-\x{9fa5}]+)`),
			regexp.MustCompile(`(?i)([A-Z][a-z]+\s+[A-Z][a-z]+)`),
		},
		group: 1,
	},
	{
		field: FieldDate,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}`),
			regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{4}`),
			regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`),
		},
	},
	{
		field: FieldPhone,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\d{4}\s?\d{4}`),
			regexp.MustCompile(`\+852\s?\d{4}\s?\d{4}`),
		},
	},
	{
		field: FieldAmount,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:HK\$|\$)\s?\d+(?:,\d{3})*(?:\.\d+)?`),
			regexp.MustCompile(`\d+(?:,\d{3})*\.\d{2}`),
		},
		pick: lastMatch,
	},
	{
		field:    FieldIDNumber,
		patterns: []*regexp.Regexp{hkidPattern},
		types:    []classify.DocumentType{classify.TypeIdentityCard},
	},
	{
		field: FieldAccountNumber,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:賬戶|Account|A/C)[:：\s]*(\d{8,})`),
		},
		group: 1,
		types: []classify.DocumentType{classify.TypeBankStatement, classify.TypeUtilityBill},
	},
}

// typeRules adds or overwrites fields after the base pass, keyed by the
// classified document type.
var typeRules = map[classify.DocumentType][]rule{
	classify.TypeIdentityCard: {
		{
			field:    FieldIDNumber,
			patterns: []*regexp.Regexp{hkidPattern},
		},
	},
	classify.TypeUtilityBill: {
		{
			field: FieldBillPeriod,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:賬單週期|Bill Period|期間)[:：\s]*(\d{4}[-/]\d{1,2}[-/]\d{1,2}\s*至\s*\d{4}[-/]\d{1,2}[-/]\d{1,2})`),
			},
			group: 1,
		},
	},
	classify.TypeBankStatement: {
		{
			field: FieldAccountBalance,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:餘額|Balance)[:：\s]*((?:HK\$|\$)?\d+(?:,\d{3})*(?:\.\d+)?)`),
			},
			group: 1,
		},
	},
}
