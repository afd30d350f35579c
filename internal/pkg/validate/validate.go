package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. Custom registrations must happen
// in init() before the first call to Struct.
var v = validator.New()

// Struct validates s using its validate tags and flattens field failures into
// one readable error.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Failed reports whether err came from Struct for the given struct field name.
func Failed(err error, field string) bool {
	return err != nil && strings.Contains(err.Error(), "."+field+"'")
}
