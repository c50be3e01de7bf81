package domain

import "time"

// User roles.
const (
	RoleLearner = "learner"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Session statuses.
const (
	SessionScheduled = "scheduled"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

// User is a marketplace member. The rating service only reads users.
type User struct {
	ID             string
	Name           string
	Email          string
	Role           string
	ProfilePicture *string
}

// Listing is a skill listing offered by a teacher.
type Listing struct {
	ID          string
	TeacherID   string
	Title       string
	Description string
	Fee         float64
	Category    string
}

// Session is a teaching engagement between a learner and a teacher for a listing.
type Session struct {
	ID        string
	LearnerID string
	TeacherID string
	ListingID string
	Status    string
	CreatedAt time.Time
}
