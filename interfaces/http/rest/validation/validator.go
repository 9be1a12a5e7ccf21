// Package validation provides struct-tag request validation for the
// REST surface, built on go-playground/validator the way the teacher's
// interfaces/http/validation package does, scoped down to the requests
// this engine actually accepts.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/ajacobm/code-graph-mcp-sub002/pkg/errors"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// Get returns the singleton validator instance, configured once to
// report errors by JSON field name rather than Go struct field name.
func Get() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return instance
}

// Struct validates req's struct tags and returns an invalid_identifier
// AppError describing every failing field, or nil if req is valid.
func Struct(req interface{}) error {
	if err := Get().Struct(req); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return apperrors.NewInvalidIdentifier(err.Error())
		}
		msgs := make([]string, 0, len(validationErrs))
		for _, fe := range validationErrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", fe.Field(), fe.Tag()))
		}
		return apperrors.NewInvalidIdentifier(strings.Join(msgs, "; "))
	}
	return nil
}
