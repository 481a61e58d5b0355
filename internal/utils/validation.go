package contextutils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// IsValidURL checks if a URL is valid using go-playground/validator
func IsValidURL(url string) bool {
	return validate.Var(url, "url") == nil
}

// IsValidStudentID checks that a student identifier is non-empty and printable
func IsValidStudentID(id string) bool {
	return validate.Var(id, "required,printascii") == nil
}
