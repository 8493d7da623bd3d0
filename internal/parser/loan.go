package parser

// LoanKind classifies loan phrasing in a description
type LoanKind int

const (
	NotLoan LoanKind = iota
	LoanIssued
	LoanRepaid
)

// LoanDetector is the keyword view DetectLoan needs
type LoanDetector interface {
	IsLoan(description string) bool
	IsRepayment(description string) bool
}

// DetectLoan reports issuance or repayment. Repayment wins when both match,
// so "loan repaid" is income.
func DetectLoan(d LoanDetector, description string) LoanKind {
	if d.IsRepayment(description) {
		return LoanRepaid
	}
	if d.IsLoan(description) {
		return LoanIssued
	}
	return NotLoan
}
