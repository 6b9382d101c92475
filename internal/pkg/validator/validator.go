package validator

import (
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"
)

// ValidationErrors maps a field name to a human-readable problem.
type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	if _, exists := v[field]; !exists {
		v[field] = message
	}
}

// Error joins the field messages in field order.
func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return strings.Join(parts, "; ")
}

const (
	MinPasswordLength = 6
	MaxPasswordLength = 50
	MaxNameLength     = 40
	MaxEarthLength    = 40
	MaxLoreLength     = 2000
	MaxAvatarLength   = 512
)

// ValidateCredentials checks an email/password pair used for signup.
func ValidateCredentials(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs.Add("email", "Invalid email address")
	}

	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		errs.Add("password", "Password is required")
	case n < MinPasswordLength:
		errs.Add("password", "Password must be at least 6 characters")
	case n > MaxPasswordLength:
		errs.Add("password", "Password is too long")
	}

	return errs
}

// ValidateProfile checks a character profile before it is saved.
func ValidateProfile(name, earth, lore, avatar string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Name is required")
	} else if utf8.RuneCountInString(name) > MaxNameLength {
		errs.Add("name", "Name is too long")
	}

	earth = strings.TrimSpace(earth)
	if earth == "" {
		errs.Add("earth", "Earth designation is required")
	} else if utf8.RuneCountInString(earth) > MaxEarthLength {
		errs.Add("earth", "Earth designation is too long")
	}

	if utf8.RuneCountInString(lore) > MaxLoreLength {
		errs.Add("lore", "Lore is too long")
	}

	if len(avatar) > MaxAvatarLength {
		errs.Add("avatar", "Avatar reference is too long")
	}

	return errs
}
