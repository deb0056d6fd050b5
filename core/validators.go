package core

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	kePhoneTag   = "kephone"
	kePhoneText  = "enter a valid Kenyan mobile number, eg. +254712345678"
	kePhoneRegex = regexp.MustCompile(`^(?:\+254|254|0)[17]\d{8}$`)

	scoreTag  = "score"
	scoreText = "score must be a number between 0 and 100"

	requiredTag        = "required"
	requiredWithTag    = "required_with"
	requiredWithoutTag = "required_without"
	requiredIfTag      = "required_if"
	requiredText       = "this field is required"
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator instantiates a validator with the global validators registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators registers the global validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(kePhoneTag, kePhoneValidation)
	RegisterCustomTranslation(validate, translator, kePhoneTag, kePhoneText)

	_ = validate.RegisterValidation(scoreTag, scoreValidation)
	RegisterCustomTranslation(validate, translator, scoreTag, scoreText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithoutTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredIfTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// kePhoneValidation accepts Safaricom/Airtel style mobile numbers.
func kePhoneValidation(fl validator.FieldLevel) bool {
	return kePhoneRegex.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
}

// scoreValidation accepts an empty score (not entered) or a number in [0, 100].
func scoreValidation(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return f >= 0 && f <= 100
}
