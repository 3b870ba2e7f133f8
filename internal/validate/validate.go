// Package validate wraps go-playground/validator with English messages and
// JSON field names, plus the custom tags the scheduling forms need.
package validate

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"worksched/internal/wallclock"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	wallclockTag  = "wallclock"
	wallclockText = "{0} must be a time of day such as 09:00"
)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Report JSON names so messages match what the client sent.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(wallclockTag, func(fl validator.FieldLevel) bool {
		return wallclock.IsClock(fl.Field().String())
	})
	registerTranslation(wallclockTag, wallclockText)
}

func registerTranslation(tag, text string) {
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Error carries one translated message per offending field.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

// Struct validates v. Field failures come back as *Error; anything else
// (e.g. a non-struct argument) is returned unchanged.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		key := strings.TrimPrefix(fe.Namespace(), rootName(fe))
		if key == "" {
			key = fe.Field()
		}
		out.Fields[key] = fe.Translate(Translator)
	}
	return out
}

// rootName is the "Struct." prefix validator puts in front of namespaces.
func rootName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[:i+1]
	}
	return ""
}
