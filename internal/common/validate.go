package common

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// Validator collects field checks and keeps only the first failure, which is
// what the API reports back.
type Validator struct {
	first *AppError
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Check(ok bool, field, message string) {
	if ok || v.first != nil {
		return
	}
	v.first = NewError(CodeValidation, field+" "+message)
}

func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "is required")
}

func (v *Validator) Length(field, value string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	v.Check(n >= min && n <= max, field, fmt.Sprintf("must be between %d and %d characters", min, max))
}

func (v *Validator) Email(field, value string) {
	v.Check(IsValidEmail(value), field, "must be a valid email address")
}

func (v *Validator) Phone(field, value string) {
	v.Check(phonePattern.MatchString(strings.ReplaceAll(value, " ", "")), field, "must be a valid phone number")
}

// URL accepts empty values; non-empty ones must be absolute http(s) URLs.
func (v *Validator) URL(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	u, err := url.Parse(value)
	v.Check(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "", field, "must be a valid http(s) URL")
}

func (v *Validator) Valid() bool { return v.first == nil }

func (v *Validator) Err() error {
	if v.first == nil {
		return nil
	}
	return v.first
}

// NormalizeEmail lower-cases and trims an address; emails are compared in
// this form everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func IsValidEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && strings.Contains(email[at+1:], ".")
}
