// Package validator wraps go-playground/validator for the field formats the
// API checks outside gin's binding layer.
package validator

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Email checks that s is a well-formed email address.
func Email(s string) error {
	return validate.Var(s, "email")
}

// URL checks that s is an absolute URL.
func URL(s string) error {
	return validate.Var(s, "url")
}
