package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
)

// DirectoryRepository reads users, skill listings and sessions. Those records
// are owned by other parts of the marketplace; the Upsert helpers exist for
// seeding and tests.
type DirectoryRepository struct {
	pool *pgxpool.Pool
}

// GetUser retrieves a user by id.
func (r *DirectoryRepository) GetUser(ctx context.Context, id string) (domain.User, error) {
	const query = `
        SELECT id::text, name, email, role, profile_picture
        FROM users
        WHERE id = $1
    `
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.ProfilePicture)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetListing retrieves a skill listing by id.
func (r *DirectoryRepository) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	const query = `
        SELECT id::text, teacher_id::text, title, description, fee::float8, category
        FROM skill_listings
        WHERE id = $1
    `
	var l domain.Listing
	err := r.pool.QueryRow(ctx, query, id).Scan(&l.ID, &l.TeacherID, &l.Title, &l.Description, &l.Fee, &l.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

// HasCompletedSession reports whether a completed session links the learner,
// teacher and listing.
func (r *DirectoryRepository) HasCompletedSession(ctx context.Context, learnerID, teacherID, listingID string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM sessions
            WHERE learner_id = $1 AND teacher_id = $2 AND listing_id = $3 AND status = $4
        )
    `
	var ok bool
	if err := r.pool.QueryRow(ctx, query, learnerID, teacherID, listingID, domain.SessionCompleted).Scan(&ok); err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return ok, nil
}

// UpsertUser inserts or replaces a user.
func (r *DirectoryRepository) UpsertUser(ctx context.Context, u domain.User) error {
	const query = `
        INSERT INTO users (id, name, email, role, profile_picture)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id)
        DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email,
                      role = EXCLUDED.role, profile_picture = EXCLUDED.profile_picture
    `
	if _, err := r.pool.Exec(ctx, query, u.ID, u.Name, u.Email, u.Role, u.ProfilePicture); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpsertListing inserts or replaces a skill listing.
func (r *DirectoryRepository) UpsertListing(ctx context.Context, l domain.Listing) error {
	const query = `
        INSERT INTO skill_listings (id, teacher_id, title, description, fee, category)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id)
        DO UPDATE SET teacher_id = EXCLUDED.teacher_id, title = EXCLUDED.title,
                      description = EXCLUDED.description, fee = EXCLUDED.fee, category = EXCLUDED.category
    `
	if _, err := r.pool.Exec(ctx, query, l.ID, l.TeacherID, l.Title, l.Description, l.Fee, l.Category); err != nil {
		return fmt.Errorf("upsert listing: %w", err)
	}
	return nil
}

// UpsertSession inserts or replaces a session.
func (r *DirectoryRepository) UpsertSession(ctx context.Context, s domain.Session) error {
	const query = `
        INSERT INTO sessions (id, learner_id, teacher_id, listing_id, status)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id)
        DO UPDATE SET learner_id = EXCLUDED.learner_id, teacher_id = EXCLUDED.teacher_id,
                      listing_id = EXCLUDED.listing_id, status = EXCLUDED.status
    `
	if _, err := r.pool.Exec(ctx, query, s.ID, s.LearnerID, s.TeacherID, s.ListingID, s.Status); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}
