package classify

// DocumentType is one of the fixed closed set of document categories.
type DocumentType string

const (
	TypeIdentityCard   DocumentType = "identity_card"
	TypeUtilityBill    DocumentType = "utility_bill"
	TypeBankStatement  DocumentType = "bank_statement"
	TypeAddressProof   DocumentType = "address_proof"
	TypeLeaseAgreement DocumentType = "lease_agreement"
	TypeOther          DocumentType = "other"
)

// DefaultLabels is the closed label set in model output order.
func DefaultLabels() []DocumentType {
	return []DocumentType{
		TypeIdentityCard,
		TypeUtilityBill,
		TypeBankStatement,
		TypeAddressProof,
		TypeLeaseAgreement,
		TypeOther,
	}
}

// Result is one classification outcome for a document image.
type Result struct {
	Type       DocumentType `json:"document_type"`
	Confidence float64      `json:"confidence"`
	// Fallback is true when no trained model was available and the label
	// was drawn at random. Not part of the JSON result payload.
	Fallback bool `json:"-"`
}
