package directory

import (
	"encoding/json"
	"net/http"
	"strings"
)

// NewFixtureHandler serves fixtures with the same routes HTTPClient calls. It
// backs the directory mock used in local development and tests.
func NewFixtureHandler(f Fixtures, apiKey string) http.Handler {
	users := make(map[string]userPayload, len(f.Users))
	for _, u := range f.Users {
		users[u.ID] = u
	}
	listings := make(map[string]listingPayload, len(f.Listings))
	for _, l := range f.Listings {
		listings[l.ID] = l
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		u, ok := users[strings.TrimPrefix(r.URL.Path, "/users/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, u)
	})
	mux.HandleFunc("/listings/", func(w http.ResponseWriter, r *http.Request) {
		l, ok := listings[strings.TrimPrefix(r.URL.Path, "/listings/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, l)
	})
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		matches := make([]sessionPayload, 0)
		for _, s := range f.Sessions {
			if !matchParam(q.Get("learnerId"), s.LearnerID) ||
				!matchParam(q.Get("teacherId"), s.TeacherID) ||
				!matchParam(q.Get("listingId"), s.ListingID) ||
				!matchParam(q.Get("status"), strings.ToLower(s.Status)) {
				continue
			}
			matches = append(matches, s)
		}
		writeJSON(w, matches)
	})

	if apiKey == "" {
		return mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != apiKey {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func matchParam(want, got string) bool {
	return want == "" || want == got
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
