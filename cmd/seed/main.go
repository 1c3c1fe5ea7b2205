// seed inserts development accounts for local testing: one admin, one doctor and one patient.
// Idempotent: accounts whose email already exists are skipped.
package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"medconsult/backend/internal/config"
	"medconsult/backend/internal/db"
	"medconsult/backend/internal/logger"
	"medconsult/backend/internal/security"
	"medconsult/backend/internal/user/domain"
	userrepo "medconsult/backend/internal/user/repository"
)

const devPassword = "password123"

type seedAccount struct {
	email    string
	fullName string
	role     domain.Role
	profile  domain.Profile
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New("local", "info")
		log.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.IsProduction() {
		log.Fatal().Msg("refusing to seed development accounts in production")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{})
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	users := userrepo.NewPostgresRepository(pool)
	hash, err := security.NewHasher(cfg.BcryptCost).HashPassword(devPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("hash password")
	}

	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	accounts := []seedAccount{
		{email: "admin@example.com", fullName: "Dev Admin", role: domain.RoleAdmin},
		{email: "doctor@example.com", fullName: "Dr. Dev Doctor", role: domain.RoleDoctor, profile: domain.Profile{
			Doctor: &domain.DoctorProfile{Specialty: "General Practice", LicenseNumber: "DEV-0001", Bio: "Seeded development doctor.", YearsOfExperience: 8},
		}},
		{email: "patient@example.com", fullName: "Dev Patient", role: domain.RolePatient, profile: domain.Profile{
			Patient: &domain.PatientProfile{DateOfBirth: &dob, Gender: "female", Phone: "+10000000000"},
		}},
	}

	now := time.Now().UTC()
	for _, a := range accounts {
		existing, err := users.GetByEmail(ctx, a.email)
		if err != nil {
			log.Fatal().Err(err).Str("email", a.email).Msg("seed check")
		}
		if existing != nil {
			log.Info().Str("email", a.email).Msg("already seeded, skipping")
			continue
		}
		u := &domain.User{
			ID:           uuid.New().String(),
			Email:        a.email,
			PasswordHash: hash,
			FullName:     a.fullName,
			Role:         a.role,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if a.profile.Patient != nil {
			a.profile.Patient.UserID = u.ID
		}
		if a.profile.Doctor != nil {
			a.profile.Doctor.UserID = u.ID
		}
		if err := users.Create(ctx, u, a.profile); err != nil {
			if errors.Is(err, userrepo.ErrEmailTaken) {
				continue
			}
			log.Fatal().Err(err).Str("email", a.email).Msg("create user")
		}
		log.Info().Str("email", a.email).Str("role", string(a.role)).Msg("seeded user")
	}
	log.Info().Msg("seed complete")
}
