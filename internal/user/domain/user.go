package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is a user's platform role.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole returns the Role for s (case-insensitive) and whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return r, true
	}
	return "", false
}

// SelfRegistrable reports whether the role may be chosen at public registration.
// Admins are provisioned out of band.
func (r Role) SelfRegistrable() bool {
	return r == RolePatient || r == RoleDoctor
}

// User is the core user entity. Users are never deleted, only deactivated.
type User struct {
	ID           string
	Email        string // unique, stored lower-cased
	PasswordHash string
	FullName     string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if _, ok := ParseRole(string(u.Role)); !ok {
		return errors.New("role is invalid")
	}
	return nil
}

// PatientProfile holds patient-only attributes.
type PatientProfile struct {
	UserID      string
	DateOfBirth *time.Time
	Gender      string
	Phone       string
}

// DoctorProfile holds doctor-only attributes.
type DoctorProfile struct {
	UserID            string
	Specialty         string
	LicenseNumber     string
	Bio               string
	YearsOfExperience int
}

// Profile is the role-specific profile of a user. At most one field is set, matching the user's role.
type Profile struct {
	Patient *PatientProfile
	Doctor  *DoctorProfile
}

// Account is a user together with its role profile, as returned to clients.
type Account struct {
	User    *User
	Profile Profile
}
