package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
	"github.com/Clark-Hu/skillswap-ratings/internal/repository"
)

type tripleKey struct {
	learnerID string
	teacherID string
	listingID string
}

// Repository defines an in-memory ratings and directory repository.
type Repository struct {
	sync.RWMutex
	users    map[string]domain.User
	listings map[string]domain.Listing
	sessions map[string]domain.Session
	ratings  map[string]domain.Rating
	triples  map[tripleKey]string
}

// New creates a new memory repository.
func New() *Repository {
	return &Repository{
		users:    map[string]domain.User{},
		listings: map[string]domain.Listing{},
		sessions: map[string]domain.Session{},
		ratings:  map[string]domain.Rating{},
		triples:  map[tripleKey]string{},
	}
}

// HealthCheck always succeeds; the repository lives in process.
func (r *Repository) HealthCheck(context.Context) error {
	return nil
}

// GetUser retrieves a user by id.
func (r *Repository) GetUser(_ context.Context, id string) (domain.User, error) {
	r.RLock()
	defer r.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

// GetListing retrieves a skill listing by id.
func (r *Repository) GetListing(_ context.Context, id string) (domain.Listing, error) {
	r.RLock()
	defer r.RUnlock()

	l, ok := r.listings[id]
	if !ok {
		return domain.Listing{}, repository.ErrNotFound
	}
	return l, nil
}

// HasCompletedSession reports whether a completed session links the triple.
func (r *Repository) HasCompletedSession(_ context.Context, learnerID, teacherID, listingID string) (bool, error) {
	r.RLock()
	defer r.RUnlock()

	for _, s := range r.sessions {
		if s.LearnerID == learnerID && s.TeacherID == teacherID && s.ListingID == listingID && s.Status == domain.SessionCompleted {
			return true, nil
		}
	}
	return false, nil
}

// UpsertUser adds or replaces a user.
func (r *Repository) UpsertUser(_ context.Context, u domain.User) error {
	r.Lock()
	defer r.Unlock()
	r.users[u.ID] = u
	return nil
}

// UpsertListing adds or replaces a skill listing.
func (r *Repository) UpsertListing(_ context.Context, l domain.Listing) error {
	r.Lock()
	defer r.Unlock()
	r.listings[l.ID] = l
	return nil
}

// UpsertSession adds or replaces a session.
func (r *Repository) UpsertSession(_ context.Context, s domain.Session) error {
	r.Lock()
	defer r.Unlock()
	r.sessions[s.ID] = s
	return nil
}

// Create stores a rating unless one already exists for its triple.
func (r *Repository) Create(_ context.Context, rating domain.Rating) (domain.Rating, error) {
	r.Lock()
	defer r.Unlock()

	key := tripleKey{rating.LearnerID, rating.TeacherID, rating.ListingID}
	if _, exists := r.triples[key]; exists {
		return domain.Rating{}, repository.ErrDuplicate
	}
	if _, exists := r.ratings[rating.ID]; exists {
		return domain.Rating{}, repository.ErrDuplicate
	}
	r.ratings[rating.ID] = rating
	r.triples[key] = rating.ID
	return rating, nil
}

// Get retrieves a rating by id.
func (r *Repository) Get(_ context.Context, id string) (domain.Rating, error) {
	r.RLock()
	defer r.RUnlock()

	rating, ok := r.ratings[id]
	if !ok {
		return domain.Rating{}, repository.ErrNotFound
	}
	return rating, nil
}

// GetDetail retrieves a rating joined with its learner, teacher and listing.
func (r *Repository) GetDetail(_ context.Context, id string) (domain.RatingDetail, error) {
	r.RLock()
	defer r.RUnlock()

	rating, ok := r.ratings[id]
	if !ok {
		return domain.RatingDetail{}, repository.ErrNotFound
	}
	detail, ok := r.join(rating)
	if !ok {
		return domain.RatingDetail{}, repository.ErrNotFound
	}
	return detail, nil
}

// UpdateScore changes the score of a rating and bumps UpdatedAt.
func (r *Repository) UpdateScore(_ context.Context, id string, score int, at time.Time) (domain.Rating, error) {
	r.Lock()
	defer r.Unlock()

	rating, ok := r.ratings[id]
	if !ok {
		return domain.Rating{}, repository.ErrNotFound
	}
	rating.Score = score
	rating.UpdatedAt = at
	r.ratings[id] = rating
	return rating, nil
}

// Delete removes a rating.
func (r *Repository) Delete(_ context.Context, id string) error {
	r.Lock()
	defer r.Unlock()

	rating, ok := r.ratings[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.ratings, id)
	delete(r.triples, tripleKey{rating.LearnerID, rating.TeacherID, rating.ListingID})
	return nil
}

// ListByListing returns every rating of a listing, newest first.
func (r *Repository) ListByListing(_ context.Context, listingID string) ([]domain.RatingDetail, error) {
	return r.list(func(rt domain.Rating) bool { return rt.ListingID == listingID }), nil
}

// ListByLearner returns every rating written by a learner, newest first.
func (r *Repository) ListByLearner(_ context.Context, learnerID string) ([]domain.RatingDetail, error) {
	return r.list(func(rt domain.Rating) bool { return rt.LearnerID == learnerID }), nil
}

// ListByTeacher returns every rating a teacher received, newest first.
func (r *Repository) ListByTeacher(_ context.Context, teacherID string) ([]domain.RatingDetail, error) {
	return r.list(func(rt domain.Rating) bool { return rt.TeacherID == teacherID }), nil
}

// Aggregate returns the average, rounded to one decimal, and count for a listing.
func (r *Repository) Aggregate(_ context.Context, listingID string) (domain.RatingAggregate, error) {
	r.RLock()
	defer r.RUnlock()

	var agg domain.RatingAggregate
	sum := 0
	for _, rating := range r.ratings {
		if rating.ListingID != listingID {
			continue
		}
		sum += rating.Score
		agg.Count++
	}
	if agg.Count > 0 {
		agg.Average = math.Round(float64(sum)/float64(agg.Count)*10) / 10
	}
	return agg, nil
}

func (r *Repository) list(match func(domain.Rating) bool) []domain.RatingDetail {
	r.RLock()
	defer r.RUnlock()

	details := make([]domain.RatingDetail, 0)
	for _, rating := range r.ratings {
		if !match(rating) {
			continue
		}
		if detail, ok := r.join(rating); ok {
			details = append(details, detail)
		}
	}
	sort.Slice(details, func(i, j int) bool {
		if !details[i].CreatedAt.Equal(details[j].CreatedAt) {
			return details[i].CreatedAt.After(details[j].CreatedAt)
		}
		return details[i].ID > details[j].ID
	})
	return details
}

// join mirrors the inner joins of the Postgres repository; ratings whose
// references are gone are skipped.
func (r *Repository) join(rating domain.Rating) (domain.RatingDetail, bool) {
	learner, ok := r.users[rating.LearnerID]
	if !ok {
		return domain.RatingDetail{}, false
	}
	teacher, ok := r.users[rating.TeacherID]
	if !ok {
		return domain.RatingDetail{}, false
	}
	listing, ok := r.listings[rating.ListingID]
	if !ok {
		return domain.RatingDetail{}, false
	}
	return domain.RatingDetail{Rating: rating, Learner: learner, Teacher: teacher, Listing: listing}, true
}
