package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/skillswap-ratings/internal/auth"
	"github.com/Clark-Hu/skillswap-ratings/internal/rating"
)

type createRatingRequest struct {
	LearnerID string `json:"learnerId"`
	TeacherID string `json:"teacherId"`
	ListingID string `json:"listingId"`
	Score     int    `json:"score"`
}

type updateRatingRequest struct {
	Score int `json:"score"`
}

func (s *Server) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserID(r.Context())

	var req createRatingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	learnerID := strings.TrimSpace(req.LearnerID)
	if learnerID == "" {
		learnerID = callerID
	}
	if learnerID != callerID {
		s.respondError(w, http.StatusForbidden, string(rating.KindForbidden), "You can only submit ratings as yourself", "")
		return
	}

	view, err := s.ratings.CreateRating(r.Context(), rating.CreateInput{
		LearnerID: learnerID,
		TeacherID: strings.TrimSpace(req.TeacherID),
		ListingID: strings.TrimSpace(req.ListingID),
		Score:     req.Score,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondSuccess(w, http.StatusCreated, "Rating created successfully", view)
}

func (s *Server) handleUpdateRating(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserID(r.Context())

	var req updateRatingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	view, err := s.ratings.UpdateRating(r.Context(), chi.URLParam(r, "ratingID"), callerID, req.Score)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondSuccess(w, http.StatusOK, "Rating updated successfully", view)
}

func (s *Server) handleDeleteRating(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserID(r.Context())

	record, err := s.ratings.DeleteRating(r.Context(), chi.URLParam(r, "ratingID"), callerID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondSuccess(w, http.StatusOK, "Rating deleted successfully", record)
}

func (s *Server) handleListForListing(w http.ResponseWriter, r *http.Request) {
	result, err := s.ratings.ListRatingsForListing(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondSuccess(w, http.StatusOK, "Ratings retrieved successfully", result)
}

func (s *Server) handleListingAverage(w http.ResponseWriter, r *http.Request) {
	result, err := s.ratings.GetAverageRating(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondSuccess(w, http.StatusOK, "Average rating retrieved successfully", result)
}

func (s *Server) handleListByLearner(w http.ResponseWriter, r *http.Request) {
	result, err := s.ratings.ListRatingsByLearner(r.Context(), chi.URLParam(r, "learnerID"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondSuccess(w, http.StatusOK, "Ratings retrieved successfully", result)
}

func (s *Server) handleListMine(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserID(r.Context())
	result, err := s.ratings.ListMyRatings(r.Context(), callerID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondSuccess(w, http.StatusOK, "Ratings retrieved successfully", result)
}

func (s *Server) handleListReceived(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserID(r.Context())
	result, err := s.ratings.ListReceivedRatings(r.Context(), callerID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondSuccess(w, http.StatusOK, "Ratings retrieved successfully", result)
}

func (s *Server) handleListForTeacher(w http.ResponseWriter, r *http.Request) {
	result, err := s.ratings.ListTeacherRatings(r.Context(), chi.URLParam(r, "teacherID"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondSuccess(w, http.StatusOK, "Ratings retrieved successfully", result)
}

func (s *Server) handleTeacherStats(w http.ResponseWriter, r *http.Request) {
	result, err := s.ratings.GetTeacherRatingStats(r.Context(), chi.URLParam(r, "teacherID"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondSuccess(w, http.StatusOK, "Teacher rating statistics retrieved successfully", result)
}
