package domain

import "time"

// UserSummary is the joined view of a user embedded in rating responses.
type UserSummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}

// ListingSummary is the joined view of a listing embedded in rating responses.
// Description, Fee and Category are only filled for author- and teacher-side listings.
type ListingSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Fee         *float64 `json:"fee,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// RatingView is a rating as returned to callers, joined with the parties it references.
// Learner or Teacher is nil when the caller already knows that side.
type RatingView struct {
	ID        string          `json:"id"`
	Score     int             `json:"score"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Learner   *UserSummary    `json:"learner,omitempty"`
	Teacher   *UserSummary    `json:"teacher,omitempty"`
	Listing   *ListingSummary `json:"listing,omitempty"`
}

// ListingRatings is the result of listing all ratings of a skill listing.
type ListingRatings struct {
	Ratings      []RatingView `json:"ratings"`
	TotalCount   int          `json:"totalCount"`
	AverageScore *float64     `json:"averageScore"`
	Note         string       `json:"note,omitempty"`
}

// ListingAverage is the aggregate-only view of a skill listing's ratings.
type ListingAverage struct {
	ListingID    string   `json:"listingId"`
	AverageScore *float64 `json:"averageScore"`
	TotalCount   int      `json:"totalCount"`
	Note         string   `json:"note,omitempty"`
}

// RatingList is a list of ratings scoped to one user, optionally with that user's summary.
type RatingList struct {
	Learner    *UserSummary `json:"learner,omitempty"`
	Teacher    *UserSummary `json:"teacher,omitempty"`
	Ratings    []RatingView `json:"ratings"`
	TotalCount int          `json:"totalCount"`
}

// RecentRating is the reduced form of a rating in a teacher report.
type RecentRating struct {
	ID           string    `json:"id"`
	Score        int       `json:"score"`
	LearnerName  string    `json:"learnerName"`
	ListingTitle string    `json:"listingTitle"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TeacherStats is the aggregate report over every rating a teacher received.
// RatingsAbove4 counts scores of 4 or more, RatingsBelow3 counts scores of 2 or less.
type TeacherStats struct {
	TeacherID     string         `json:"teacherId"`
	TeacherName   string         `json:"teacherName"`
	AverageScore  *float64       `json:"averageScore"`
	TotalCount    int            `json:"totalCount"`
	Distribution  map[int]int    `json:"distribution"`
	ListingsRated int            `json:"listingsRated"`
	RecentRatings []RecentRating `json:"recentRatings"`
	HighestScore  *int           `json:"highestScore"`
	LowestScore   *int           `json:"lowestScore"`
	RatingsAbove4 int            `json:"ratingsAbove4"`
	RatingsBelow3 int            `json:"ratingsBelow3"`
}
