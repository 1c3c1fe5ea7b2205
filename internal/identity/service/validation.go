package service

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"medconsult/backend/internal/apperr"
	userdomain "medconsult/backend/internal/user/domain"
)

const (
	minPasswordLength = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes  = 72
	maxFullNameLength = 255
	maxEmailLength    = 254
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// fieldErrors collects validation failures in field order.
type fieldErrors []apperr.FieldError

func (f *fieldErrors) add(field, message string) {
	*f = append(*f, apperr.FieldError{Field: field, Message: message})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperr.Validation(f...)
}

func validateEmail(errs *fieldErrors, email string) {
	switch {
	case email == "":
		errs.add("email", "is required")
	case len(email) > maxEmailLength || !emailPattern.MatchString(email):
		errs.add("email", "must be a valid email address")
	}
}

func validateRegister(in *RegisterInput, now time.Time) (userdomain.Role, error) {
	var errs fieldErrors
	validateEmail(&errs, in.Email)
	switch {
	case len(in.Password) < minPasswordLength:
		errs.add("password", "must be at least 6 characters")
	case len(in.Password) > maxPasswordBytes:
		errs.add("password", "must be at most 72 bytes")
	}
	switch n := utf8.RuneCountInString(in.FullName); {
	case n == 0:
		errs.add("fullName", "is required")
	case n > maxFullNameLength:
		errs.add("fullName", "must be at most 255 characters")
	}
	role, ok := userdomain.ParseRole(in.Role)
	if !ok || !role.SelfRegistrable() {
		errs.add("role", "must be PATIENT or DOCTOR")
	}
	if role == userdomain.RolePatient && in.Patient != nil && in.Patient.DateOfBirth != nil && in.Patient.DateOfBirth.After(now) {
		errs.add("dateOfBirth", "must not be in the future")
	}
	if role == userdomain.RoleDoctor && in.Doctor != nil && in.Doctor.YearsOfExperience < 0 {
		errs.add("yearsOfExperience", "must not be negative")
	}
	return role, errs.err()
}

func validateLogin(email, password string) error {
	var errs fieldErrors
	if email == "" {
		errs.add("email", "is required")
	}
	if password == "" {
		errs.add("password", "is required")
	}
	return errs.err()
}
