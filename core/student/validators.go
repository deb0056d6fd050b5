package student

import (
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/officialmikal/elimusmart/core"
)

var (
	dobFutureTag  = "dobpast"
	dobFutureText = "date of birth cannot be in the future"

	upsertValidate, upsertTranslator = core.NewValidator()
)

// upsertFields are the optional Student fields an Upsert must find well formed when given.
type upsertFields struct {
	Gender      string `json:"gender" validate:"omitempty,oneof=Male Female"`
	DOB         string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	ParentPhone string `json:"parent_phone" validate:"omitempty,kephone"`
	ParentEmail string `json:"parent_email" validate:"omitempty,email"`
}

// RegisterValidators registers the student validators & their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(studentStructValidation, NewStudent{}, UpdateStudent{})
	core.RegisterCustomTranslation(validate, translator, dobFutureTag, dobFutureText)
}

// studentStructValidation does struct level validation on NewStudent and UpdateStudent structs.
func studentStructValidation(sl validator.StructLevel) {
	switch s := sl.Current().Interface().(type) {
	case NewStudent:
		validateDOB(s.DOB, sl)
	case UpdateStudent:
		validateDOB(s.DOB, sl)
	}
}

func validateDOB(dob string, sl validator.StructLevel) {
	if dob == "" || dob == Placeholder {
		return
	}
	t, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return // reported by the datetime tag
	}
	if t.After(NowFunc()) {
		sl.ReportError(dob, "dob", "DOB", dobFutureTag, "")
	}
}

// validateUpsert checks the given fields of s; blanks & Placeholder are left alone.
func validateUpsert(s Student) error {
	given := func(val string) string {
		if strings.EqualFold(val, Placeholder) {
			return ""
		}
		return val
	}
	flds := upsertFields{
		Gender:      given(s.Gender),
		DOB:         given(s.DOB),
		ParentPhone: given(s.ParentPhone),
		ParentEmail: given(s.ParentEmail),
	}

	var fieldErrs []core.FieldError
	if err := upsertValidate.Struct(flds); err != nil {
		vErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, vErr := range vErrs {
			fieldErrs = append(fieldErrs, core.FieldError{Field: vErr.Field(), Error: vErr.Translate(upsertTranslator)})
		}
	} else if flds.DOB != "" {
		if t, _ := time.Parse("2006-01-02", flds.DOB); t.After(NowFunc()) {
			fieldErrs = append(fieldErrs, core.FieldError{Field: "dob", Error: dobFutureText})
		}
	}
	if len(fieldErrs) > 0 {
		return core.NewValidationError(nil, fieldErrs...)
	}
	return nil
}

// normalizeGender capitalizes "male" & "female" the way they are stored.
func normalizeGender(gender string) string {
	switch g := strings.TrimSpace(gender); {
	case strings.EqualFold(g, GenderMale):
		return GenderMale
	case strings.EqualFold(g, GenderFemale):
		return GenderFemale
	default:
		return g
	}
}
