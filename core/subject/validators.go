package subject

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/officialmikal/elimusmart/core"
)

var (
	categoryTag  = "subject_category"
	categoryText = "category must be one of CBC, JSS, legacy or other"
)

// RegisterValidators registers the subject validators & their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, categoryValidation)
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)
}

func categoryValidation(fl validator.FieldLevel) bool {
	cat := fl.Field().String()
	for _, c := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}
