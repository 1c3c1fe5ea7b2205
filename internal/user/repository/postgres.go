package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"medconsult/backend/internal/user/domain"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, full_name, role, is_active, created_at, updated_at`

// PostgresRepository stores users in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a user repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByID returns the user for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns the user for the lower-cased email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	var role string
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// Create inserts the user and its role profile in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User, profile domain.Profile) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, u.ID, u.Email, u.PasswordHash, u.FullName, string(u.Role), u.IsActive, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return err
		}
		if p := profile.Patient; p != nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO patient_profiles (user_id, date_of_birth, gender, phone)
				VALUES ($1, $2, $3, $4)
			`, u.ID, p.DateOfBirth, nullIfEmpty(p.Gender), nullIfEmpty(p.Phone))
			if err != nil {
				return err
			}
		}
		if d := profile.Doctor; d != nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO doctor_profiles (user_id, specialty, license_number, bio, years_of_experience)
				VALUES ($1, $2, $3, $4, $5)
			`, u.ID, nullIfEmpty(d.Specialty), nullIfEmpty(d.LicenseNumber), nullIfEmpty(d.Bio), d.YearsOfExperience)
			if err != nil {
				return err
			}
		}
		return nil
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "users_email_key" {
		return ErrEmailTaken
	}
	return err
}

// GetProfile loads the profile matching u.Role. Missing profile rows yield an empty Profile.
func (r *PostgresRepository) GetProfile(ctx context.Context, u *domain.User) (domain.Profile, error) {
	switch u.Role {
	case domain.RolePatient:
		p := domain.PatientProfile{UserID: u.ID}
		var gender, phone *string
		err := r.pool.QueryRow(ctx, `
			SELECT date_of_birth, gender, phone FROM patient_profiles WHERE user_id = $1
		`, u.ID).Scan(&p.DateOfBirth, &gender, &phone)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, nil
		}
		if err != nil {
			return domain.Profile{}, err
		}
		p.Gender, p.Phone = deref(gender), deref(phone)
		return domain.Profile{Patient: &p}, nil
	case domain.RoleDoctor:
		d := domain.DoctorProfile{UserID: u.ID}
		var specialty, license, bio *string
		err := r.pool.QueryRow(ctx, `
			SELECT specialty, license_number, bio, years_of_experience FROM doctor_profiles WHERE user_id = $1
		`, u.ID).Scan(&specialty, &license, &bio, &d.YearsOfExperience)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, nil
		}
		if err != nil {
			return domain.Profile{}, err
		}
		d.Specialty, d.LicenseNumber, d.Bio = deref(specialty), deref(license), deref(bio)
		return domain.Profile{Doctor: &d}, nil
	}
	return domain.Profile{}, nil
}

// SetActive updates is_active and updated_at.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1
	`, id, active, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
