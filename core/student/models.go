package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/shopspring/decimal"

	"github.com/officialmikal/elimusmart/core"
)

const (
	GenderMale   = "Male"
	GenderFemale = "Female"

	// Placeholder stored for string fields missing from bulk imports.
	Placeholder = "N/A"
)

var (
	// Grades offered by the school, lowest first.
	Grades = []string{
		"PP1", "PP2",
		"Grade 1", "Grade 2", "Grade 3", "Grade 4", "Grade 5", "Grade 6",
		"Grade 7 (JSS)", "Grade 8 (JSS)", "Grade 9 (JSS)",
	}

	searchMinRatio = .8
)

type Student struct {
	ID          string          `json:"id"`
	AdmNo       string          `json:"adm_no"`
	Name        string          `json:"name"`
	Gender      string          `json:"gender"`
	DOB         string          `json:"dob"` // YYYY-MM-DD
	Grade       string          `json:"grade"`
	Stream      string          `json:"stream"`
	ParentName  string          `json:"parent_name"`
	ParentPhone string          `json:"parent_phone"`
	ParentEmail string          `json:"parent_email"`
	Residence   string          `json:"residence"`
	FeeBalance  decimal.Decimal `json:"fee_balance"` // derived from the fee ledger, never stored
	CreatedAt   time.Time       `json:"created_at"`  // UTC
	UpdatedAt   time.Time       `json:"updated_at"`  // UTC
}

// ClassName is the grade & stream, eg. "Grade 6 A".
func (s Student) ClassName() string {
	return strings.TrimSpace(s.Grade + " " + s.Stream)
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	AdmNo          string          `json:"adm_no" validate:"required,notblank,max=20"`
	Name           string          `json:"name" validate:"required,notblank"`
	Gender         string          `json:"gender" validate:"omitempty,oneof=Male Female"`
	DOB            string          `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Grade          string          `json:"grade" validate:"required,notblank"`
	Stream         string          `json:"stream"`
	ParentName     string          `json:"parent_name"`
	ParentPhone    string          `json:"parent_phone" validate:"omitempty,kephone"`
	ParentEmail    string          `json:"parent_email" validate:"omitempty,email"`
	Residence      string          `json:"residence"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc *Service) error {
	ns.AdmNo = CleanAdmNo(ns.AdmNo)
	ns.Name = core.CleanString(ns.Name)
	ns.Grade = core.CleanString(ns.Grade)
	ns.Stream = core.CleanString(ns.Stream)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentPhone = NormalizePhone(ns.ParentPhone)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	ns.Residence = core.CleanString(ns.Residence)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.OpeningBalance.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "opening_balance", Error: "balance cannot be negative"})
	}
	return svc.checkUniqueness(ns.AdmNo)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Blank fields keep their current value.
type UpdateStudent struct {
	AdmNo       string `json:"adm_no" validate:"omitempty,max=20"`
	Name        string `json:"name"`
	Gender      string `json:"gender" validate:"omitempty,oneof=Male Female"`
	DOB         string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Grade       string `json:"grade"`
	Stream      string `json:"stream"`
	ParentName  string `json:"parent_name"`
	ParentPhone string `json:"parent_phone" validate:"omitempty,kephone"`
	ParentEmail string `json:"parent_email" validate:"omitempty,email"`
	Residence   string `json:"residence"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate, svc *Service) error {
	us.AdmNo = keep(CleanAdmNo(us.AdmNo), orig.AdmNo)
	us.Name = keep(core.CleanString(us.Name), orig.Name)
	us.Gender = keep(core.CleanString(us.Gender), orig.Gender)
	us.DOB = keep(core.CleanString(us.DOB), orig.DOB)
	us.Grade = keep(core.CleanString(us.Grade), orig.Grade)
	us.Stream = keep(core.CleanString(us.Stream), orig.Stream)
	us.ParentName = keep(core.CleanString(us.ParentName), orig.ParentName)
	us.ParentPhone = keep(NormalizePhone(us.ParentPhone), orig.ParentPhone)
	us.ParentEmail = keep(core.CleanString(us.ParentEmail, true /* lower */), orig.ParentEmail)
	us.Residence = keep(core.CleanString(us.Residence), orig.Residence)

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.checkUniqueness(us.AdmNo, orig)
}

// DeleteStudent carries the re-typed admission number required to delete a Student.
type DeleteStudent struct {
	ConfirmAdmNo string `json:"confirm_adm_no" query:"confirm_adm_no" validate:"required"`
}

type GetFilter struct {
	ID    string
	AdmNo string
}

type QueryFilter struct {
	Search string   `query:"search"`
	Grade  string   `query:"grade"`
	Stream string   `query:"stream"`
	AdmNos []string `query:"adm_no"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Grade = core.CleanString(qf.Grade)
	qf.Stream = core.CleanString(qf.Stream)
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Grade == "" && qf.Stream == "" && qf.AdmNos == nil
}

// Match applies AND on the set fields.
// Search does a case-insensitive match on one of Name, AdmNo or ParentName,
// falling back to a fuzzy match on the Name to tolerate misspellings.
func (qf QueryFilter) Match(s Student) bool {
	if qf.Grade != "" && !strings.EqualFold(s.Grade, qf.Grade) {
		return false
	}
	if qf.Stream != "" && !strings.EqualFold(s.Stream, qf.Stream) {
		return false
	}
	if qf.AdmNos != nil {
		var found bool
		for _, adm := range qf.AdmNos {
			if CleanAdmNo(adm) == s.AdmNo {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.Search == "" {
		return true
	}

	search := strings.ToLower(qf.Search)
	if strings.Contains(strings.ToLower(s.Name), search) ||
		strings.Contains(strings.ToLower(s.AdmNo), search) ||
		strings.Contains(strings.ToLower(s.ParentName), search) {
		return true
	}
	for _, part := range strings.Fields(strings.ToLower(s.Name)) {
		if similarity(part, search) >= searchMinRatio {
			return true
		}
	}
	return false
}

func similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// CleanAdmNo trims the admission number and upper-cases any letters in it.
func CleanAdmNo(adm string) string {
	return strings.ToUpper(core.CleanString(adm))
}

// NormalizePhone converts local Kenyan mobile numbers (07XX.., 01XX.., 254..) to +254 format.
func NormalizePhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "").Replace(core.CleanString(phone))
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "+"):
		return p
	case strings.HasPrefix(p, "254") && len(p) == 12:
		return "+" + p
	case strings.HasPrefix(p, "0") && len(p) == 10:
		return "+254" + p[1:]
	}
	return p
}

func keep(val, orig string) string {
	if val == "" {
		return orig
	}
	return val
}
