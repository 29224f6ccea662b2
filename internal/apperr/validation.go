package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeAndValidate reads a JSON body into dst and runs struct validation on it.
func DecodeAndValidate(r *http.Request, v *validator.Validate, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return Validation("request body is required")
		}
		return Validation("invalid request body")
	}
	return FromValidator(v.Struct(dst))
}

// FromValidator turns validator errors into an ErrValidation carrying the
// failing fields and rules.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Validation("%s", err.Error())
	}

	fields := make(map[string]interface{}, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		fields[fe.Field()] = rule
		names = append(names, fe.Field())
	}

	return &Error{
		Kind:    ErrValidation,
		Message: "invalid fields: " + strings.Join(names, ", "),
		Details: map[string]interface{}{"fields": fields},
	}
}
