package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Clark-Hu/skillswap-ratings/internal/rating"
)

const maxRequestBody = 1 << 20 // 1 MiB

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Details string `json:"details,omitempty"`
}

var kindStatus = map[rating.Kind]int{
	rating.KindValidation: http.StatusBadRequest,
	rating.KindNotFound:   http.StatusNotFound,
	rating.KindForbidden:  http.StatusForbidden,
	rating.KindConflict:   http.StatusConflict,
	rating.KindInternal:   http.StatusInternalServerError,
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error("failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	s.respondJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func (s *Server) respondError(w http.ResponseWriter, status int, kind, message, details string) {
	if !s.cfg.ExposeErrorDetails {
		details = ""
	}
	s.respondJSON(w, status, envelope{
		Message: message,
		Error:   &errorBody{Kind: kind, Details: details},
	})
}

// respondServiceError maps a rating.Error onto the HTTP contract. Messages of
// internal errors are fixed per operation; the cause only surfaces as details.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	kind := rating.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := "Internal server error"
	var details string
	var rerr *rating.Error
	if errors.As(err, &rerr) {
		message = rerr.Message
		if rerr.Err != nil {
			details = rerr.Err.Error()
		}
	} else {
		details = err.Error()
		s.logger.Error("unclassified service error", zap.Error(err))
	}
	s.respondError(w, status, string(kind), message, details)
}

func (s *Server) respondUnauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information", err.Error())
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	kind := string(rating.KindValidation)
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusBadRequest, kind, "Malformed JSON payload", err.Error())
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusBadRequest, kind, fmt.Sprintf("Invalid value for field %s", typeError.Field), "")
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, kind, "Request body too large", "")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusBadRequest, kind, "Request body cannot be empty", "")
	default:
		s.respondError(w, http.StatusBadRequest, kind, "Unable to parse request body", err.Error())
	}
}
