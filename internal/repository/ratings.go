package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
)

// RatingsRepository persists learner ratings.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

const ratingColumns = `r.id::text, r.learner_id::text, r.teacher_id::text, r.listing_id::text, r.score, r.created_at, r.updated_at`

const detailSelect = `
        SELECT ` + ratingColumns + `,
               l.id::text, l.name, l.email, l.role, l.profile_picture,
               t.id::text, t.name, t.email, t.role, t.profile_picture,
               s.id::text, s.teacher_id::text, s.title, s.description, s.fee::float8, s.category
        FROM ratings r
        JOIN users l ON l.id = r.learner_id
        JOIN users t ON t.id = r.teacher_id
        JOIN skill_listings s ON s.id = r.listing_id
`

// Create inserts a new rating. A second rating for the same learner, teacher
// and listing yields ErrDuplicate.
func (r *RatingsRepository) Create(ctx context.Context, rating domain.Rating) (domain.Rating, error) {
	const query = `
        INSERT INTO ratings AS r (id, learner_id, teacher_id, listing_id, score, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING ` + ratingColumns

	created, err := scanRating(r.pool.QueryRow(ctx, query,
		rating.ID,
		rating.LearnerID,
		rating.TeacherID,
		rating.ListingID,
		rating.Score,
		rating.CreatedAt,
		rating.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Rating{}, ErrDuplicate
		}
		return domain.Rating{}, fmt.Errorf("insert rating: %w", err)
	}
	return created, nil
}

// Get retrieves a rating by id.
func (r *RatingsRepository) Get(ctx context.Context, id string) (domain.Rating, error) {
	const query = `SELECT ` + ratingColumns + ` FROM ratings r WHERE r.id = $1`

	rating, err := scanRating(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, fmt.Errorf("get rating: %w", err)
	}
	return rating, nil
}

// GetDetail retrieves a rating joined with its learner, teacher and listing.
func (r *RatingsRepository) GetDetail(ctx context.Context, id string) (domain.RatingDetail, error) {
	detail, err := scanDetail(r.pool.QueryRow(ctx, detailSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RatingDetail{}, ErrNotFound
		}
		return domain.RatingDetail{}, fmt.Errorf("get rating detail: %w", err)
	}
	return detail, nil
}

// UpdateScore changes the score of a rating and bumps updated_at.
func (r *RatingsRepository) UpdateScore(ctx context.Context, id string, score int, at time.Time) (domain.Rating, error) {
	const query = `
        UPDATE ratings AS r
        SET score = $2, updated_at = $3
        WHERE r.id = $1
        RETURNING ` + ratingColumns

	rating, err := scanRating(r.pool.QueryRow(ctx, query, id, score, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, fmt.Errorf("update rating: %w", err)
	}
	return rating, nil
}

// Delete removes a rating.
func (r *RatingsRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ratings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByListing returns every rating of a listing, newest first.
func (r *RatingsRepository) ListByListing(ctx context.Context, listingID string) ([]domain.RatingDetail, error) {
	return r.listDetails(ctx, `WHERE r.listing_id = $1`, listingID)
}

// ListByLearner returns every rating written by a learner, newest first.
func (r *RatingsRepository) ListByLearner(ctx context.Context, learnerID string) ([]domain.RatingDetail, error) {
	return r.listDetails(ctx, `WHERE r.learner_id = $1`, learnerID)
}

// ListByTeacher returns every rating a teacher received, newest first.
func (r *RatingsRepository) ListByTeacher(ctx context.Context, teacherID string) ([]domain.RatingDetail, error) {
	return r.listDetails(ctx, `WHERE r.teacher_id = $1`, teacherID)
}

func (r *RatingsRepository) listDetails(ctx context.Context, where string, arg string) ([]domain.RatingDetail, error) {
	query := detailSelect + where + ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	details := make([]domain.RatingDetail, 0)
	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return details, nil
}

// Aggregate returns the rating average and count for a listing.
func (r *RatingsRepository) Aggregate(ctx context.Context, listingID string) (domain.RatingAggregate, error) {
	const query = `
        SELECT COALESCE(ROUND(AVG(score)::numeric, 1), 0)::float8 AS average,
               COUNT(*)::int8 AS count
        FROM ratings
        WHERE listing_id = $1
    `

	var agg domain.RatingAggregate
	err := r.pool.QueryRow(ctx, query, listingID).Scan(&agg.Average, &agg.Count)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("aggregate ratings: %w", err)
	}
	return agg, nil
}

func scanRating(row pgx.Row) (domain.Rating, error) {
	var rating domain.Rating
	err := row.Scan(
		&rating.ID,
		&rating.LearnerID,
		&rating.TeacherID,
		&rating.ListingID,
		&rating.Score,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	return rating, err
}

func scanDetail(row pgx.Row) (domain.RatingDetail, error) {
	var d domain.RatingDetail
	err := row.Scan(
		&d.ID,
		&d.LearnerID,
		&d.TeacherID,
		&d.ListingID,
		&d.Score,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.Learner.ID,
		&d.Learner.Name,
		&d.Learner.Email,
		&d.Learner.Role,
		&d.Learner.ProfilePicture,
		&d.Teacher.ID,
		&d.Teacher.Name,
		&d.Teacher.Email,
		&d.Teacher.Role,
		&d.Teacher.ProfilePicture,
		&d.Listing.ID,
		&d.Listing.TeacherID,
		&d.Listing.Title,
		&d.Listing.Description,
		&d.Listing.Fee,
		&d.Listing.Category,
	)
	return d, err
}
