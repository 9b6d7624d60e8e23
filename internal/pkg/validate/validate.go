package validate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/creator-studio/internal/pkg/backupcode"
	"github.com/creator-studio/internal/pkg/otpcode"
	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. Custom tags are registered in
// init() before the first call to Struct.
var v = validator.New()

func init() {
	// Report JSON names so messages match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// otp: exactly six ASCII digits.
	_ = v.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		return otpcode.WellFormed(fl.Field().String())
	})
	// backupcode: eight significant alphanumerics once normalized.
	_ = v.RegisterValidation("backupcode", func(fl validator.FieldLevel) bool {
		return backupcode.Valid(fl.Field().String())
	})
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
