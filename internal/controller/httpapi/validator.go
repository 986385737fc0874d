package httpapi

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type appValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newAppValidator(validate *validator.Validate, translator ut.Translator) *appValidator {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// В ошибках используем имена JSON-полей
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerTranslation(validate, translator, "required", "this field is required")
	registerTranslation(validate, translator, "datetime", "{0} has an invalid format")

	return &appValidator{validate: validate, translator: translator}
}

func (v *appValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// fieldErrors переводит ошибки валидации в map поле -> сообщение
func (v *appValidator) fieldErrors(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = fe.Translate(v.translator)
	}
	return fields
}

func newTranslator() ut.Translator {
	locale := en.New()
	uni := ut.New(locale, locale)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}
