package rating

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
	"github.com/Clark-Hu/skillswap-ratings/internal/repository"
)

// Store persists ratings.
type Store interface {
	Create(ctx context.Context, rating domain.Rating) (domain.Rating, error)
	Get(ctx context.Context, id string) (domain.Rating, error)
	GetDetail(ctx context.Context, id string) (domain.RatingDetail, error)
	UpdateScore(ctx context.Context, id string, score int, at time.Time) (domain.Rating, error)
	Delete(ctx context.Context, id string) error
	ListByListing(ctx context.Context, listingID string) ([]domain.RatingDetail, error)
	ListByLearner(ctx context.Context, learnerID string) ([]domain.RatingDetail, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]domain.RatingDetail, error)
	Aggregate(ctx context.Context, listingID string) (domain.RatingAggregate, error)
}

// Directory resolves the users, listings and sessions ratings refer to.
type Directory interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetListing(ctx context.Context, id string) (domain.Listing, error)
	HasCompletedSession(ctx context.Context, learnerID, teacherID, listingID string) (bool, error)
}

// Options tunes a Service. Zero values fall back to UUID ids, the wall clock
// and a no-op logger.
type Options struct {
	IDValidator IDValidator
	NewID       func() string
	Now         func() time.Time
	Logger      *zap.Logger
}

// Service implements the rating operations of the marketplace.
type Service struct {
	store     Store
	directory Directory
	validID   IDValidator
	newID     func() string
	now       func() time.Time
	logger    *zap.Logger
	validate  *validator.Validate
}

// CreateInput is the payload of CreateRating.
type CreateInput struct {
	LearnerID string `json:"learnerId" validate:"required,id"`
	TeacherID string `json:"teacherId" validate:"required,id"`
	ListingID string `json:"listingId" validate:"required,id"`
	Score     int    `json:"score" validate:"min=1,max=5"`
}

type updateInput struct {
	RatingID    string `json:"ratingId" validate:"required,id"`
	RequesterID string `json:"requestingUserId" validate:"required"`
	Score       int    `json:"score" validate:"min=1,max=5"`
}

type ownedInput struct {
	RatingID    string `json:"ratingId" validate:"required,id"`
	RequesterID string `json:"requestingUserId" validate:"required"`
}

// NewService wires a Service over its collaborators.
func NewService(store Store, directory Directory, opts Options) *Service {
	s := &Service{
		store:     store,
		directory: directory,
		validID:   opts.IDValidator,
		newID:     opts.NewID,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if s.validID == nil {
		s.validID = IsUUID
	}
	if s.newID == nil {
		s.newID = NewUUID
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("rating")

	s.validate = validator.New()
	s.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := s.validate.RegisterValidation("id", func(fl validator.FieldLevel) bool {
		return s.validID(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("rating: register id validation: %v", err))
	}
	return s
}

// CreateRating records a learner's score for a teacher on a listing. The
// learner must have completed a session with the teacher for that listing and
// may rate each teacher/listing pair only once.
func (s *Service) CreateRating(ctx context.Context, in CreateInput) (domain.RatingView, error) {
	if err := s.check(in); err != nil {
		return domain.RatingView{}, err
	}

	learner, err := s.lookupUser(ctx, in.LearnerID, "learner not found")
	if err != nil {
		return domain.RatingView{}, err
	}
	teacher, err := s.lookupUser(ctx, in.TeacherID, "teacher not found")
	if err != nil {
		return domain.RatingView{}, err
	}
	listing, err := s.directory.GetListing(ctx, in.ListingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.RatingView{}, notFoundError("skill listing not found")
		}
		return domain.RatingView{}, s.internal("failed to load skill listing", err)
	}

	ok, err := s.directory.HasCompletedSession(ctx, in.LearnerID, in.TeacherID, in.ListingID)
	if err != nil {
		return domain.RatingView{}, s.internal("failed to check sessions", err)
	}
	if !ok {
		return domain.RatingView{}, forbiddenError("you can only rate a teacher after completing a session for this listing")
	}

	now := s.now()
	created, err := s.store.Create(ctx, domain.Rating{
		ID:        s.newID(),
		LearnerID: in.LearnerID,
		TeacherID: in.TeacherID,
		ListingID: in.ListingID,
		Score:     in.Score,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.RatingView{}, conflictError("you have already rated this teacher for this listing")
		}
		return domain.RatingView{}, s.internal("failed to create rating", err)
	}

	s.logger.Info("rating created",
		zap.String("rating_id", created.ID),
		zap.String("learner_id", created.LearnerID),
		zap.String("teacher_id", created.TeacherID),
		zap.Int("score", created.Score),
	)

	return fullView(domain.RatingDetail{Rating: created, Learner: learner, Teacher: teacher, Listing: listing}), nil
}

// UpdateRating changes the score of a rating owned by requesterID.
func (s *Service) UpdateRating(ctx context.Context, ratingID, requesterID string, score int) (domain.RatingView, error) {
	if err := s.check(updateInput{RatingID: ratingID, RequesterID: requesterID, Score: score}); err != nil {
		return domain.RatingView{}, err
	}

	existing, err := s.loadOwned(ctx, ratingID, requesterID, "you can only update your own ratings")
	if err != nil {
		return domain.RatingView{}, err
	}

	updated, err := s.store.UpdateScore(ctx, existing.ID, score, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.RatingView{}, notFoundError("rating not found")
		}
		return domain.RatingView{}, s.internal("failed to update rating", err)
	}

	s.logger.Info("rating updated",
		zap.String("rating_id", updated.ID),
		zap.String("learner_id", updated.LearnerID),
		zap.Int("previous_score", existing.Score),
		zap.Int("score", updated.Score),
	)

	detail, err := s.store.GetDetail(ctx, updated.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.RatingView{}, notFoundError("rating not found")
		}
		return domain.RatingView{}, s.internal("failed to load rating", err)
	}
	return fullView(detail), nil
}

// DeleteRating removes a rating owned by requesterID and returns a snapshot of it.
func (s *Service) DeleteRating(ctx context.Context, ratingID, requesterID string) (domain.DeletionRecord, error) {
	if err := s.check(ownedInput{RatingID: ratingID, RequesterID: requesterID}); err != nil {
		return domain.DeletionRecord{}, err
	}

	existing, err := s.loadOwned(ctx, ratingID, requesterID, "you can only delete your own ratings")
	if err != nil {
		return domain.DeletionRecord{}, err
	}

	if err := s.store.Delete(ctx, existing.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.DeletionRecord{}, notFoundError("rating not found")
		}
		return domain.DeletionRecord{}, s.internal("failed to delete rating", err)
	}

	s.logger.Info("rating deleted",
		zap.String("rating_id", existing.ID),
		zap.String("learner_id", existing.LearnerID),
	)

	return domain.DeletionRecord{
		ID:        existing.ID,
		LearnerID: existing.LearnerID,
		TeacherID: existing.TeacherID,
		ListingID: existing.ListingID,
		Score:     existing.Score,
		DeletedAt: s.now(),
	}, nil
}

// ListRatingsForListing returns every rating of a listing, newest first. The
// average is published only once MinRatingsForAverage ratings exist.
func (s *Service) ListRatingsForListing(ctx context.Context, listingID string) (domain.ListingRatings, error) {
	if err := s.checkID("listingId", listingID); err != nil {
		return domain.ListingRatings{}, err
	}

	details, err := s.store.ListByListing(ctx, listingID)
	if err != nil {
		return domain.ListingRatings{}, s.internal("failed to list ratings", err)
	}

	result := domain.ListingRatings{
		Ratings:    make([]domain.RatingView, 0, len(details)),
		TotalCount: len(details),
	}
	sum := 0
	for _, d := range details {
		sum += d.Score
		result.Ratings = append(result.Ratings, fullView(d))
	}
	mean := 0.0
	if len(details) > 0 {
		mean = float64(sum) / float64(len(details))
	}
	result.AverageScore, result.Note = publishedAverage(mean, len(details))
	return result, nil
}

// GetAverageRating returns the aggregate of a listing's ratings.
func (s *Service) GetAverageRating(ctx context.Context, listingID string) (domain.ListingAverage, error) {
	if err := s.checkID("listingId", listingID); err != nil {
		return domain.ListingAverage{}, err
	}

	agg, err := s.store.Aggregate(ctx, listingID)
	if err != nil {
		return domain.ListingAverage{}, s.internal("failed to aggregate ratings", err)
	}

	result := domain.ListingAverage{ListingID: listingID, TotalCount: int(agg.Count)}
	result.AverageScore, result.Note = publishedAverage(agg.Average, result.TotalCount)
	return result, nil
}

// ListRatingsByLearner returns every rating written by an existing learner.
func (s *Service) ListRatingsByLearner(ctx context.Context, learnerID string) (domain.RatingList, error) {
	if err := s.checkID("learnerId", learnerID); err != nil {
		return domain.RatingList{}, err
	}
	learner, err := s.lookupUser(ctx, learnerID, "learner not found")
	if err != nil {
		return domain.RatingList{}, err
	}

	list, err := s.authoredRatings(ctx, learnerID)
	if err != nil {
		return domain.RatingList{}, err
	}
	list.Learner = userSummary(learner, true)
	return list, nil
}

// ListMyRatings returns the ratings written by the current user.
func (s *Service) ListMyRatings(ctx context.Context, currentUserID string) (domain.RatingList, error) {
	if err := s.checkID("currentUserId", currentUserID); err != nil {
		return domain.RatingList{}, err
	}
	return s.authoredRatings(ctx, currentUserID)
}

// ListReceivedRatings returns the ratings the current user received as a teacher.
func (s *Service) ListReceivedRatings(ctx context.Context, currentUserID string) (domain.RatingList, error) {
	if err := s.checkID("currentUserId", currentUserID); err != nil {
		return domain.RatingList{}, err
	}
	return s.receivedRatings(ctx, currentUserID)
}

// ListTeacherRatings returns the ratings an existing user received as a teacher.
func (s *Service) ListTeacherRatings(ctx context.Context, teacherID string) (domain.RatingList, error) {
	if err := s.checkID("teacherId", teacherID); err != nil {
		return domain.RatingList{}, err
	}
	teacher, err := s.lookupUser(ctx, teacherID, "teacher not found")
	if err != nil {
		return domain.RatingList{}, err
	}

	list, err := s.receivedRatings(ctx, teacherID)
	if err != nil {
		return domain.RatingList{}, err
	}
	list.Teacher = userSummary(teacher, true)
	return list, nil
}

// GetTeacherRatingStats reports on every rating a teacher received. A teacher
// without ratings gets an empty report, not an error.
func (s *Service) GetTeacherRatingStats(ctx context.Context, teacherID string) (domain.TeacherStats, error) {
	if err := s.checkID("teacherId", teacherID); err != nil {
		return domain.TeacherStats{}, err
	}
	teacher, err := s.lookupUser(ctx, teacherID, "teacher not found")
	if err != nil {
		return domain.TeacherStats{}, err
	}
	if teacher.Role != domain.RoleTeacher {
		return domain.TeacherStats{}, validationError("user is not a teacher")
	}

	details, err := s.store.ListByTeacher(ctx, teacherID)
	if err != nil {
		return domain.TeacherStats{}, s.internal("failed to load teacher ratings", err)
	}
	return ComputeTeacherStats(teacher, details), nil
}

func (s *Service) authoredRatings(ctx context.Context, learnerID string) (domain.RatingList, error) {
	details, err := s.store.ListByLearner(ctx, learnerID)
	if err != nil {
		return domain.RatingList{}, s.internal("failed to list ratings", err)
	}
	list := domain.RatingList{Ratings: make([]domain.RatingView, 0, len(details)), TotalCount: len(details)}
	for _, d := range details {
		list.Ratings = append(list.Ratings, domain.RatingView{
			ID:        d.ID,
			Score:     d.Score,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
			Teacher:   userSummary(d.Teacher, true),
			Listing:   listingSummary(d.Listing, true),
		})
	}
	return list, nil
}

func (s *Service) receivedRatings(ctx context.Context, teacherID string) (domain.RatingList, error) {
	details, err := s.store.ListByTeacher(ctx, teacherID)
	if err != nil {
		return domain.RatingList{}, s.internal("failed to list ratings", err)
	}
	list := domain.RatingList{Ratings: make([]domain.RatingView, 0, len(details)), TotalCount: len(details)}
	for _, d := range details {
		list.Ratings = append(list.Ratings, domain.RatingView{
			ID:        d.ID,
			Score:     d.Score,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
			Learner:   userSummary(d.Learner, true),
			Listing:   listingSummary(d.Listing, true),
		})
	}
	return list, nil
}

func (s *Service) loadOwned(ctx context.Context, ratingID, requesterID, denied string) (domain.Rating, error) {
	existing, err := s.store.Get(ctx, ratingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Rating{}, notFoundError("rating not found")
		}
		return domain.Rating{}, s.internal("failed to load rating", err)
	}
	if existing.LearnerID != requesterID {
		return domain.Rating{}, forbiddenError(denied)
	}
	return existing, nil
}

func (s *Service) lookupUser(ctx context.Context, id, missing string) (domain.User, error) {
	u, err := s.directory.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, notFoundError(missing)
		}
		return domain.User{}, s.internal("failed to load user", err)
	}
	return u, nil
}

func (s *Service) internal(msg string, err error) *Error {
	s.logger.Error(msg, zap.Error(err))
	return internalError(msg, err)
}

func (s *Service) checkID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationError(field + " is required")
	}
	if !s.validID(id) {
		return validationError(field + " is malformed")
	}
	return nil
}

func (s *Service) check(in interface{}) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return validationError("invalid input")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return validationError(strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "id":
		return fe.Field() + " is malformed"
	case "min", "max":
		return fmt.Sprintf("%s must be between %d and %d", fe.Field(), domain.MinScore, domain.MaxScore)
	default:
		return fe.Field() + " is invalid"
	}
}

// fullView embeds learner and teacher name and email plus the listing title.
func fullView(d domain.RatingDetail) domain.RatingView {
	return domain.RatingView{
		ID:        d.ID,
		Score:     d.Score,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Learner:   userSummary(d.Learner, false),
		Teacher:   userSummary(d.Teacher, false),
		Listing:   listingSummary(d.Listing, false),
	}
}

func userSummary(u domain.User, withPicture bool) *domain.UserSummary {
	summary := &domain.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
	if withPicture {
		summary.ProfilePicture = u.ProfilePicture
	}
	return summary
}

func listingSummary(l domain.Listing, detailed bool) *domain.ListingSummary {
	summary := &domain.ListingSummary{ID: l.ID, Title: l.Title}
	if detailed {
		fee := l.Fee
		summary.Description = l.Description
		summary.Fee = &fee
		summary.Category = l.Category
	}
	return summary
}
