package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/skillswap-ratings/internal/auth"
	"github.com/Clark-Hu/skillswap-ratings/internal/config"
	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
	"github.com/Clark-Hu/skillswap-ratings/internal/rating"
)

const testSecret = "handler-secret"

type mockRatingService struct {
	mock.Mock
}

func (m *mockRatingService) CreateRating(ctx context.Context, in rating.CreateInput) (domain.RatingView, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.RatingView), args.Error(1)
}

func (m *mockRatingService) UpdateRating(ctx context.Context, ratingID, requesterID string, score int) (domain.RatingView, error) {
	args := m.Called(ctx, ratingID, requesterID, score)
	return args.Get(0).(domain.RatingView), args.Error(1)
}

func (m *mockRatingService) DeleteRating(ctx context.Context, ratingID, requesterID string) (domain.DeletionRecord, error) {
	args := m.Called(ctx, ratingID, requesterID)
	return args.Get(0).(domain.DeletionRecord), args.Error(1)
}

func (m *mockRatingService) ListRatingsForListing(ctx context.Context, listingID string) (domain.ListingRatings, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).(domain.ListingRatings), args.Error(1)
}

func (m *mockRatingService) GetAverageRating(ctx context.Context, listingID string) (domain.ListingAverage, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).(domain.ListingAverage), args.Error(1)
}

func (m *mockRatingService) ListRatingsByLearner(ctx context.Context, learnerID string) (domain.RatingList, error) {
	args := m.Called(ctx, learnerID)
	return args.Get(0).(domain.RatingList), args.Error(1)
}

func (m *mockRatingService) ListMyRatings(ctx context.Context, currentUserID string) (domain.RatingList, error) {
	args := m.Called(ctx, currentUserID)
	return args.Get(0).(domain.RatingList), args.Error(1)
}

func (m *mockRatingService) ListReceivedRatings(ctx context.Context, currentUserID string) (domain.RatingList, error) {
	args := m.Called(ctx, currentUserID)
	return args.Get(0).(domain.RatingList), args.Error(1)
}

func (m *mockRatingService) ListTeacherRatings(ctx context.Context, teacherID string) (domain.RatingList, error) {
	args := m.Called(ctx, teacherID)
	return args.Get(0).(domain.RatingList), args.Error(1)
}

func (m *mockRatingService) GetTeacherRatingStats(ctx context.Context, teacherID string) (domain.TeacherStats, error) {
	args := m.Called(ctx, teacherID)
	return args.Get(0).(domain.TeacherStats), args.Error(1)
}

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context) error { return s.err }

func testConfig() config.Config {
	return config.Config{
		Port:             "0",
		JWTSecret:        testSecret,
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
	}
}

func buildTestServer(tb testing.TB, svc RatingService, cfg config.Config) *Server {
	tb.Helper()
	return New(cfg, stubHealth{}, svc, nil)
}

func bearer(tb testing.TB, userID string) string {
	tb.Helper()
	token, err := auth.NewToken(testSecret, userID, time.Hour)
	require.NoError(tb, err)
	return "Bearer " + token
}

func doRequest(srv *Server, method, path, body, authHeader string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

type decodedEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind    string `json:"kind"`
		Details string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) decodedEnvelope {
	t.Helper()
	var env decodedEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestCreateRating_DefaultsLearnerToCaller(t *testing.T) {
	svc := new(mockRatingService)
	srv := buildTestServer(t, svc, testConfig())

	want := rating.CreateInput{LearnerID: "learner-1", TeacherID: "teacher-1", ListingID: "listing-1", Score: 5}
	svc.On("CreateRating", mock.Anything, want).Return(domain.RatingView{ID: "r-1", Score: 5}, nil).Once()

	rec := doRequest(srv, http.MethodPost, "/api/ratings/",
		`{"teacherId":"teacher-1","listingId":"listing-1","score":5}`, bearer(t, "learner-1"))

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Rating created successfully", env.Message)
	assert.JSONEq(t, `{"id":"r-1","score":5,"createdAt":"0001-01-01T00:00:00Z","updatedAt":"0001-01-01T00:00:00Z"}`, string(env.Data))
	svc.AssertExpectations(t)
}

func TestCreateRating_RejectsImpersonation(t *testing.T) {
	svc := new(mockRatingService)
	srv := buildTestServer(t, svc, testConfig())

	rec := doRequest(srv, http.MethodPost, "/api/ratings/",
		`{"learnerId":"someone-else","teacherId":"t","listingId":"l","score":5}`, bearer(t, "learner-1"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Kind)
	svc.AssertNotCalled(t, "CreateRating", mock.Anything, mock.Anything)
}

func TestCreateRating_RequiresAuth(t *testing.T) {
	svc := new(mockRatingService)
	srv := buildTestServer(t, svc, testConfig())

	rec := doRequest(srv, http.MethodPost, "/api/ratings/", `{"score":5}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Kind)
	assert.Empty(t, env.Error.Details, "details hidden unless exposed")

	rec = doRequest(srv, http.MethodPost, "/api/ratings/", `{"score":5}`, "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateRating_DecodeErrors(t *testing.T) {
	svc := new(mockRatingService)
	srv := buildTestServer(t, svc, testConfig())
	token := bearer(t, "learner-1")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"score":`, http.StatusBadRequest},
		{"wrong type", `{"score":"five"}`, http.StatusBadRequest},
		{"unknown field", `{"stars":5}`, http.StatusBadRequest},
		{"empty", ``, http.StatusBadRequest},
		{"too large", `{"teacherId":"` + strings.Repeat("x", maxRequestBody) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/api/ratings/", tt.body, token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			env := decodeEnvelope(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Kind)
		})
	}
	svc.AssertNotCalled(t, "CreateRating", mock.Anything, mock.Anything)
}

func TestServiceErrorStatusMapping(t *testing.T) {
	tests := []struct {
		kind rating.Kind
		want int
	}{
		{rating.KindValidation, http.StatusBadRequest},
		{rating.KindNotFound, http.StatusNotFound},
		{rating.KindForbidden, http.StatusForbidden},
		{rating.KindConflict, http.StatusConflict},
		{rating.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			svc := new(mockRatingService)
			srv := buildTestServer(t, svc, testConfig())
			svc.On("GetTeacherRatingStats", mock.Anything, "t-1").
				Return(domain.TeacherStats{}, &rating.Error{Kind: tt.kind, Message: "boom"}).Once()

			rec := doRequest(srv, http.MethodGet, "/api/ratings/teachers/t-1/stats", "", "")
			assert.Equal(t, tt.want, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, "boom", env.Message)
			assert.Equal(t, string(tt.kind), env.Error.Kind)
		})
	}
}

func TestInternalErrorDetailsAreGated(t *testing.T) {
	cause := errors.New("pq: connection refused")
	for _, expose := range []bool{false, true} {
		svc := new(mockRatingService)
		cfg := testConfig()
		cfg.ExposeErrorDetails = expose
		srv := buildTestServer(t, svc, cfg)
		svc.On("ListRatingsForListing", mock.Anything, "l-1").
			Return(domain.ListingRatings{}, &rating.Error{Kind: rating.KindInternal, Message: "failed to list ratings", Err: cause})

		rec := doRequest(srv, http.MethodGet, "/api/ratings/listings/l-1", "", "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, "failed to list ratings", env.Message)
		if expose {
			assert.Equal(t, cause.Error(), env.Error.Details)
		} else {
			assert.Empty(t, env.Error.Details)
		}
	}
}

func TestOwnerScopedRoutesPassCaller(t *testing.T) {
	svc := new(mockRatingService)
	srv := buildTestServer(t, svc, testConfig())
	token := bearer(t, "user-9")

	svc.On("UpdateRating", mock.Anything, "r-1", "user-9", 2).Return(domain.RatingView{ID: "r-1", Score: 2}, nil).Once()
	svc.On("DeleteRating", mock.Anything, "r-1", "user-9").Return(domain.DeletionRecord{ID: "r-1"}, nil).Once()
	svc.On("ListMyRatings", mock.Anything, "user-9").Return(domain.RatingList{Ratings: []domain.RatingView{}}, nil).Once()
	svc.On("ListReceivedRatings", mock.Anything, "user-9").Return(domain.RatingList{Ratings: []domain.RatingView{}}, nil).Once()

	assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodPatch, "/api/ratings/r-1", `{"score":2}`, token).Code)
	assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodDelete, "/api/ratings/r-1", "", token).Code)
	assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/api/ratings/me", "", token).Code)
	assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/api/ratings/received", "", token).Code)

	assert.Equal(t, http.StatusUnauthorized, doRequest(srv, http.MethodGet, "/api/ratings/me", "", "").Code)
	svc.AssertExpectations(t)
}

func TestPublicRoutes(t *testing.T) {
	svc := new(mockRatingService)
	srv := buildTestServer(t, svc, testConfig())

	svc.On("GetAverageRating", mock.Anything, "l-1").Return(domain.ListingAverage{ListingID: "l-1", TotalCount: 2, Note: "n"}, nil).Once()
	svc.On("ListRatingsByLearner", mock.Anything, "u-1").Return(domain.RatingList{Ratings: []domain.RatingView{}}, nil).Once()
	svc.On("ListTeacherRatings", mock.Anything, "t-1").Return(domain.RatingList{Ratings: []domain.RatingView{}}, nil).Once()

	rec := doRequest(srv, http.MethodGet, "/api/ratings/listings/l-1/average", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.JSONEq(t, `{"listingId":"l-1","averageScore":null,"totalCount":2,"note":"n"}`, string(env.Data))

	assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/api/ratings/learners/u-1", "", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/api/ratings/teachers/t-1", "", "").Code)
	svc.AssertExpectations(t)
}

func TestHealthz(t *testing.T) {
	srv := New(testConfig(), stubHealth{}, new(mockRatingService), nil)
	assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/healthz", "", "").Code)

	down := New(testConfig(), stubHealth{err: errors.New("down")}, new(mockRatingService), nil)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(down, http.MethodGet, "/healthz", "", "").Code)
}

func TestRateLimit(t *testing.T) {
	svc := new(mockRatingService)
	svc.On("GetAverageRating", mock.Anything, "l-1").Return(domain.ListingAverage{}, nil)
	cfg := testConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	srv := buildTestServer(t, svc, cfg)

	assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/api/ratings/listings/l-1/average", "", "").Code)
	rec := doRequest(srv, http.MethodGet, "/api/ratings/listings/l-1/average", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.CORSAllowedOrigins = []string{"https://app.example.com"}
	srv := buildTestServer(t, new(mockRatingService), cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/ratings/me", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
