package handler

import (
	"time"

	"medconsult/backend/internal/user/domain"
)

const dateLayout = "2006-01-02"

// AccountResponse is the client projection of a user and its role profile. The password hash is never included.
type AccountResponse struct {
	ID             string                  `json:"id"`
	Email          string                  `json:"email"`
	FullName       string                  `json:"fullName"`
	Role           string                  `json:"role"`
	IsActive       bool                    `json:"isActive"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
	PatientProfile *PatientProfileResponse `json:"patientProfile,omitempty"`
	DoctorProfile  *DoctorProfileResponse  `json:"doctorProfile,omitempty"`
}

// PatientProfileResponse is the patient part of AccountResponse.
type PatientProfileResponse struct {
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// DoctorProfileResponse is the doctor part of AccountResponse.
type DoctorProfileResponse struct {
	Specialty         string `json:"specialty,omitempty"`
	LicenseNumber     string `json:"licenseNumber,omitempty"`
	Bio               string `json:"bio,omitempty"`
	YearsOfExperience int    `json:"yearsOfExperience"`
}

// NewAccountResponse projects acct for clients.
func NewAccountResponse(acct *domain.Account) AccountResponse {
	u := acct.User
	resp := AccountResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
	if p := acct.Profile.Patient; p != nil {
		pr := &PatientProfileResponse{Gender: p.Gender, Phone: p.Phone}
		if p.DateOfBirth != nil {
			pr.DateOfBirth = p.DateOfBirth.UTC().Format(dateLayout)
		}
		resp.PatientProfile = pr
	}
	if d := acct.Profile.Doctor; d != nil {
		resp.DoctorProfile = &DoctorProfileResponse{
			Specialty:         d.Specialty,
			LicenseNumber:     d.LicenseNumber,
			Bio:               d.Bio,
			YearsOfExperience: d.YearsOfExperience,
		}
	}
	return resp
}
