package validation

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// digits only, optional leading +, 10..15 digits
var phoneRe = regexp.MustCompile(`^\+?[1-9][0-9]{9,14}$`)

func isPhone(fl validator.FieldLevel) bool {
	return phoneRe.MatchString(fl.Field().String())
}

// New returns a validator with the project's custom tags registered.
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", isPhone)
	return v
}

// RegisterGin installs the custom tags into gin's binding validator.
func RegisterGin() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return v.RegisterValidation("phone", isPhone)
	}
	return nil
}
