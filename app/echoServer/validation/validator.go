package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const requiredText = "this field is required"

type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

func New() *Validator {
	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")

	v := validator.New()
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// report JSON field names instead of Go struct names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterTranslation("required", trans,
		func(t ut.Translator) error { return t.Add("required", requiredText, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T("required", fe.Field())
			return s
		},
	)
	return &Validator{v: v, trans: trans}
}

func (v *Validator) Validate(i interface{}) error {
	return v.v.Struct(i)
}

// Fields translates validation failures into a field -> message map.
func (v *Validator) Fields(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Translate(v.trans)
	}
	return out
}
