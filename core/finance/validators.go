package finance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/officialmikal/elimusmart/core"
)

var (
	methodTag  = "payment_method"
	methodText = "method must be one of M-Pesa, Cash or Bank"
)

// RegisterValidators registers the finance validators & their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(methodTag, methodValidation)
	core.RegisterCustomTranslation(validate, translator, methodTag, methodText)
}

func methodValidation(fl validator.FieldLevel) bool {
	m := fl.Field().String()
	for _, method := range Methods {
		if m == method {
			return true
		}
	}
	return false
}
