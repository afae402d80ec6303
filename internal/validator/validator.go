package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

var (
	personNameRe = regexp.MustCompile(`^[\p{L} ]+$`)
	phoneRe      = regexp.MustCompile(`^(010|011|012|015)\d{8}$`)
	yearRe       = regexp.MustCompile(`^\d{4}$`)
	universityRe = regexp.MustCompile(`^[\p{L}\p{N} ]+$`)
)

// customTags are the candidate form rules, keyed by tag with their message.
var customTags = []struct {
	tag     string
	re      *regexp.Regexp
	message string
}{
	{"person_name", personNameRe, "{0} may only contain letters and spaces"},
	{"mobile_phone", phoneRe, "{0} must be 11 digits starting with 010, 011, 012 or 015"},
	{"grad_year", yearRe, "{0} must be a 4-digit year"},
	{"institution", universityRe, "{0} may only contain letters, digits and spaces"},
}

// Setup registers the validator with English translations on Gin's binding engine.
// Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		register(v)
	}
}

func register(v *govalidator.Validate) {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register English translations.
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	for _, ct := range customTags {
		re := ct.re
		_ = v.RegisterValidation(ct.tag, func(fl govalidator.FieldLevel) bool {
			return re.MatchString(strings.TrimSpace(fl.Field().String()))
		})

		tag, message := ct.tag, ct.message
		_ = v.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error { return ut.Add(tag, message, true) },
			func(ut ut.Translator, fe govalidator.FieldError) string {
				t, _ := ut.T(tag, fe.Field())
				return t
			},
		)
	}
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
