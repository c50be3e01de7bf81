package domain

import "time"

// Score bounds for a rating.
const (
	MinScore = 1
	MaxScore = 5
)

// Rating represents a learner's score for a teacher on a specific skill listing.
type Rating struct {
	ID        string
	LearnerID string
	TeacherID string
	ListingID string
	Score     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RatingDetail is a rating joined with its learner, teacher and listing.
type RatingDetail struct {
	Rating
	Learner User
	Teacher User
	Listing Listing
}

// RatingAggregate provides average and count for a listing's ratings.
type RatingAggregate struct {
	Average float64
	Count   int64
}

// DeletionRecord is the snapshot returned after a rating is removed. It is never persisted.
type DeletionRecord struct {
	ID        string    `json:"id"`
	LearnerID string    `json:"learnerId"`
	TeacherID string    `json:"teacherId"`
	ListingID string    `json:"listingId"`
	Score     int       `json:"score"`
	DeletedAt time.Time `json:"deletedAt"`
}
