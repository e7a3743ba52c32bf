package server

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	referencedomain "github.com/smallbiznis/shaadmin/internal/reference/domain"
)

var registerValidatorsOnce sync.Once

// RegisterValidators installs the refcode tag on gin's validator and makes
// field errors report JSON names. The tag parameter is the code family, as
// in `binding:"omitempty,refcode=CLAIM"`.
func RegisterValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("refcode", validateRefCode)
	})
}

func validateRefCode(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" {
		return true
	}
	family, err := referencedomain.ParseFamily(fl.Param())
	if err != nil {
		return false
	}
	_, err = referencedomain.ParseFor(family, value)
	return err == nil
}

func jsonFieldName(field reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return field.Name
}

// bindError turns a gin binding failure into a 400 payload naming the
// offending fields.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := &ValidationErrors{}
		for _, fe := range fieldErrs {
			field := fe.Field()
			out.Errors = append(out.Errors, ValidationError{
				Field:   field,
				Code:    "invalid_" + field,
				Message: fieldMessage(fe),
			})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return newValidationError(typeErr.Field, "invalid_"+typeErr.Field, "invalid value")
	}
	return invalidRequestError()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "refcode":
		return "must be a valid " + strings.ToLower(fe.Param()) + " reference code"
	default:
		return "invalid value"
	}
}
