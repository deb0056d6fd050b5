package messaging

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/officialmikal/elimusmart/core"
)

// template types
const (
	TypeClosure             = "CLOSURE"
	TypeOpening             = "OPENING"
	TypeFeeReminder         = "FEE_REMINDER"
	TypePaymentConfirmation = "PAYMENT_CONFIRMATION"
)

// broadcast targets
const (
	TargetAll      = "all"
	TargetGrade    = "grade"
	TargetBalances = "balances" // parents with fees outstanding
)

const ChannelEmail = "Email"

var (
	Channels = []string{core.ChannelSMS, core.ChannelWhatsApp, ChannelEmail}

	Templates = []Template{
		{
			ID:      "t1",
			Type:    TypeClosure,
			Content: "Dear Parent/Guardian, [School Name] will close on [Date] due to [Reason]. Kindly ensure your child arrives safely. Regards, Admin.",
		},
		{
			ID:      "t2",
			Type:    TypeOpening,
			Content: "Dear Parent/Guardian, [School Name] will reopen on [Date] for Term [X]. Kindly ensure fees are cleared. Thank you.",
		},
		{
			ID:      "t3",
			Type:    TypeFeeReminder,
			Content: "Dear Parent/Guardian, [Student Name] (ADM: [ADM]) has an outstanding fee balance of KES [Amount]. Please clear via M-Pesa. Accounts Office.",
		},
		{
			ID:      "t4",
			Type:    TypePaymentConfirmation,
			Content: "Payment Received. KES [Amount] for [Student Name]. New Balance: KES [Balance]. [School Name] Accounts.",
		},
	}
)

type Template struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Vars are the values substituted for the bracketed template placeholders.
type Vars struct {
	SchoolName  string
	Date        string
	Reason      string
	Term        string
	StudentName string
	AdmNo       string
	Amount      decimal.Decimal
	Balance     decimal.Decimal
}

// Render substitutes the placeholders of content. Unknown placeholders are left as is.
func Render(content string, v Vars) string {
	return strings.NewReplacer(
		"[School Name]", v.SchoolName,
		"[Date]", v.Date,
		"[Reason]", v.Reason,
		"[X]", v.Term,
		"[Student Name]", v.StudentName,
		"[ADM]", v.AdmNo,
		"[Amount]", FormatKES(v.Amount),
		"[Balance]", FormatKES(v.Balance),
	).Replace(content)
}

// FormatKES formats whole shillings with thousands separators, eg. 12,500.
func FormatKES(d decimal.Decimal) string {
	s := d.StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

type NewBroadcast struct {
	TemplateID string `json:"template_id" validate:"required_without=Content"`
	Content    string `json:"content" validate:"max=640"`
	Target     string `json:"target" validate:"required,oneof=all grade balances"`
	Grade      string `json:"grade" validate:"required_if=Target grade"`
	Channel    string `json:"channel" validate:"required,oneof=SMS WhatsApp Email"`
	Date       string `json:"date"`
	Reason     string `json:"reason"`
	Term       string `json:"term"`
}

func (nb *NewBroadcast) Validate(validate *validator.Validate) error {
	nb.TemplateID = core.CleanString(nb.TemplateID)
	nb.Content = core.CleanString(nb.Content)
	nb.Target = core.CleanString(nb.Target, true /* lower */)
	nb.Grade = core.CleanString(nb.Grade)
	nb.Date = core.CleanString(nb.Date)
	nb.Reason = core.CleanString(nb.Reason)
	nb.Term = core.CleanString(nb.Term)
	if err := validate.Struct(nb); err != nil {
		return err
	}
	if nb.Content == "" {
		if _, ok := FindTemplate(nb.TemplateID); !ok {
			return core.NewValidationError(ErrUnknownTemplate, core.FieldError{Field: "template_id", Error: ErrUnknownTemplate.Error()})
		}
	}
	return nil
}

// Broadcast is a record of a sent broadcast.
type Broadcast struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id,omitempty"`
	Target     string    `json:"target"`
	Grade      string    `json:"grade,omitempty"`
	Channel    string    `json:"channel"`
	Recipients int       `json:"recipients"`
	Sent       int       `json:"sent"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

func FindTemplate(id string) (Template, bool) {
	for _, t := range Templates {
		if t.ID == id || t.Type == id {
			return t, true
		}
	}
	return Template{}, false
}
