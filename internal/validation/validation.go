// Package validation registers the custom binding tags used by request
// structs: role, country and timezone.
package validation

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/refdata"
)

// Register installs the custom tags on v.
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"role": func(fl validator.FieldLevel) bool {
			return access.Role(fl.Field().String()).Valid()
		},
		"country": func(fl validator.FieldLevel) bool {
			return refdata.IsCountry(fl.Field().String())
		},
		"timezone": func(fl validator.FieldLevel) bool {
			return refdata.IsTimezone(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// RegisterGin installs the custom tags on gin's default validator.
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return Register(v)
}
