package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var roles = map[string]bool{
	"admin":     true,
	"doctor":    true,
	"assistant": true,
}

var periods = map[string]bool{
	"morning":   true,
	"afternoon": true,
	"evening":   true,
}

// Register installs the custom tag validators on gin's binding engine.
// Call once at startup before routes are registered.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("role", validateRole); err != nil {
		return err
	}
	return v.RegisterValidation("period", validatePeriod)
}

func validateRole(fl validator.FieldLevel) bool {
	return roles[fl.Field().String()]
}

func validatePeriod(fl validator.FieldLevel) bool {
	return periods[fl.Field().String()]
}
