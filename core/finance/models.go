package finance

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/officialmikal/elimusmart/core"
)

// payment methods
const (
	MethodMpesa = "M-Pesa"
	MethodCash  = "Cash"
	MethodBank  = "Bank"
)

// invoice statuses
const (
	StatusUnpaid  = "Unpaid"
	StatusPartial = "Partial"
	StatusPaid    = "Paid"
)

var (
	Methods = []string{MethodMpesa, MethodCash, MethodBank}

	// DefaultFeeStructure is billed per term.
	DefaultFeeStructure = []FeeItem{
		{Description: "Tuition Fee", Amount: decimal.NewFromInt(12000)},
		{Description: "Lunch Program", Amount: decimal.NewFromInt(4500)},
		{Description: "Exam Materials", Amount: decimal.NewFromInt(1500)},
	}
)

// Entry is a line of the append-only fee ledger.
type Entry struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	StudentID   string          `json:"student_id"`
	Amount      decimal.Decimal `json:"amount"` // signed for adjustments
	ReceiptNo   string          `json:"receipt_no,omitempty"`
	Method      string          `json:"method,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	Description string          `json:"description,omitempty"`
	Term        string          `json:"term"`
	Year        int             `json:"year"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
}

type Payment struct {
	ID          string          `json:"id"`
	ReceiptNo   string          `json:"receipt_no"`
	StudentID   string          `json:"student_id"`
	AdmNo       string          `json:"adm_no"`
	StudentName string          `json:"student_name"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
}

// Receipt is returned after recording a payment.
type Receipt struct {
	Payment Payment         `json:"payment"`
	Balance decimal.Decimal `json:"balance"`
}

type FeeItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type Invoice struct {
	InvoiceNo   string          `json:"invoice_no"`
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name"`
	AdmNo       string          `json:"adm_no"`
	Grade       string          `json:"grade"`
	Term        string          `json:"term"`
	Year        int             `json:"year"`
	Items       []FeeItem       `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Balance     decimal.Decimal `json:"balance"`
	Status      string          `json:"status"`
}

type NewPayment struct {
	StudentID string          `json:"student_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required,payment_method"`
	Reference string          `json:"reference" validate:"max=60"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.Method = CleanMethod(np.Method)
	np.Reference = core.CleanString(np.Reference)
	if err := validate.Struct(np); err != nil {
		return err
	}
	return validateAmount(np.Amount)
}

// MpesaRequest asks the parent's phone to approve an M-Pesa payment (STK push).
type MpesaRequest struct {
	StudentID string          `json:"student_id" validate:"required"`
	Phone     string          `json:"phone" validate:"omitempty,kephone"` // defaults to the parent's phone
	Amount    decimal.Decimal `json:"amount"`
}

func (mr *MpesaRequest) Validate(validate *validator.Validate) error {
	mr.Phone = core.CleanString(mr.Phone)
	if err := validate.Struct(mr); err != nil {
		return err
	}
	return validateAmount(mr.Amount)
}

// NewInvoice bills the fee structure to every student of a grade.
type NewInvoice struct {
	Grade string `json:"grade" validate:"required,notblank"`
	Term  string `json:"term"`
	Year  int    `json:"year" validate:"omitempty,min=2000,max=2100"`
}

func (ni *NewInvoice) Validate(validate *validator.Validate) error {
	ni.Grade = core.CleanString(ni.Grade)
	ni.Term = core.CleanString(ni.Term)
	return validate.Struct(ni)
}

type PaymentFilter struct {
	StudentID string `query:"student_id"`
	Method    string `query:"method"`
}

func (pf PaymentFilter) Match(e Entry) bool {
	return (pf.StudentID == "" || e.StudentID == pf.StudentID) &&
		(pf.Method == "" || strings.EqualFold(e.Method, pf.Method))
}

type EntryFilter struct {
	StudentIDs []string
	Kinds      []string
}

// CleanMethod maps loose spellings (mpesa, CASH, bank transfer..) to a known method.
func CleanMethod(method string) string {
	m := strings.ToLower(strings.NewReplacer("-", "", " ", "").Replace(core.CleanString(method)))
	switch {
	case m == "":
		return ""
	case m == "mpesa":
		return MethodMpesa
	case m == "cash":
		return MethodCash
	case strings.HasPrefix(m, "bank"):
		return MethodBank
	}
	return core.CleanString(method)
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount must be greater than 0"})
	}
	return nil
}
