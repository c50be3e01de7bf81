package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
)

type userPayload struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Role           string  `json:"role"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}

type listingPayload struct {
	ID          string  `json:"id"`
	TeacherID   string  `json:"teacherId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Fee         float64 `json:"fee"`
	Category    string  `json:"category"`
}

type sessionPayload struct {
	ID        string `json:"id"`
	LearnerID string `json:"learnerId"`
	TeacherID string `json:"teacherId"`
	ListingID string `json:"listingId"`
	Status    string `json:"status"`
}

func (p userPayload) toDomain() domain.User {
	u := domain.User{
		ID:    p.ID,
		Name:  p.Name,
		Email: p.Email,
		Role:  strings.ToLower(p.Role),
	}
	if p.ProfilePicture != nil && strings.TrimSpace(*p.ProfilePicture) != "" {
		pic := strings.TrimSpace(*p.ProfilePicture)
		u.ProfilePicture = &pic
	}
	return u
}

func (p listingPayload) toDomain() domain.Listing {
	return domain.Listing{
		ID:          p.ID,
		TeacherID:   p.TeacherID,
		Title:       p.Title,
		Description: p.Description,
		Fee:         p.Fee,
		Category:    p.Category,
	}
}

func (p sessionPayload) toDomain() domain.Session {
	return domain.Session{
		ID:        p.ID,
		LearnerID: p.LearnerID,
		TeacherID: p.TeacherID,
		ListingID: p.ListingID,
		Status:    strings.ToLower(p.Status),
	}
}

func validRole(role string) bool {
	switch role {
	case domain.RoleLearner, domain.RoleTeacher, domain.RoleAdmin:
		return true
	}
	return false
}

// Fixtures is the JSON document used to seed a store or to back the mock
// directory server.
type Fixtures struct {
	Users    []userPayload    `json:"users"`
	Listings []listingPayload `json:"listings"`
	Sessions []sessionPayload `json:"sessions"`
}

// LoadFixtures reads and validates a fixtures file.
func LoadFixtures(path string) (Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(raw)
}

// ParseFixtures decodes a fixtures document and checks its references.
func ParseFixtures(raw []byte) (Fixtures, error) {
	var f Fixtures
	if err := json.Unmarshal(raw, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}

	users := make(map[string]struct{}, len(f.Users))
	for _, u := range f.Users {
		if u.ID == "" {
			return Fixtures{}, fmt.Errorf("fixtures: user without id")
		}
		if !validRole(strings.ToLower(u.Role)) {
			return Fixtures{}, fmt.Errorf("fixtures: user %s has unknown role %q", u.ID, u.Role)
		}
		users[u.ID] = struct{}{}
	}
	listings := make(map[string]struct{}, len(f.Listings))
	for _, l := range f.Listings {
		if _, ok := users[l.TeacherID]; !ok {
			return Fixtures{}, fmt.Errorf("fixtures: listing %s references unknown teacher %s", l.ID, l.TeacherID)
		}
		listings[l.ID] = struct{}{}
	}
	for _, s := range f.Sessions {
		_, learnerOK := users[s.LearnerID]
		_, teacherOK := users[s.TeacherID]
		_, listingOK := listings[s.ListingID]
		if !learnerOK || !teacherOK || !listingOK {
			return Fixtures{}, fmt.Errorf("fixtures: session %s has dangling references", s.ID)
		}
		switch strings.ToLower(s.Status) {
		case domain.SessionScheduled, domain.SessionCompleted, domain.SessionCancelled:
		default:
			return Fixtures{}, fmt.Errorf("fixtures: session %s has unknown status %q", s.ID, s.Status)
		}
	}
	return f, nil
}

// DomainUsers converts the fixture users.
func (f Fixtures) DomainUsers() []domain.User {
	out := make([]domain.User, 0, len(f.Users))
	for _, u := range f.Users {
		out = append(out, u.toDomain())
	}
	return out
}

// DomainListings converts the fixture listings.
func (f Fixtures) DomainListings() []domain.Listing {
	out := make([]domain.Listing, 0, len(f.Listings))
	for _, l := range f.Listings {
		out = append(out, l.toDomain())
	}
	return out
}

// DomainSessions converts the fixture sessions.
func (f Fixtures) DomainSessions() []domain.Session {
	out := make([]domain.Session, 0, len(f.Sessions))
	for _, s := range f.Sessions {
		out = append(out, s.toDomain())
	}
	return out
}
