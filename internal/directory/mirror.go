package directory

import (
	"context"
	"fmt"

	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
)

// Source answers directory lookups. HTTPClient is the usual implementation.
type Source interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetListing(ctx context.Context, id string) (domain.Listing, error)
	HasCompletedSession(ctx context.Context, learnerID, teacherID, listingID string) (bool, error)
}

// Mirror answers lookups from a remote Source and copies every record it
// resolves into the local store, so ratings can reference and join them.
type Mirror struct {
	source Source
	local  Writer
}

// NewMirror wraps source so resolved records are written to local.
func NewMirror(source Source, local Writer) *Mirror {
	return &Mirror{source: source, local: local}
}

// GetUser resolves a user remotely and upserts it locally.
func (m *Mirror) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := m.source.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if err := m.local.UpsertUser(ctx, u); err != nil {
		return domain.User{}, fmt.Errorf("mirror user %s: %w", id, err)
	}
	return u, nil
}

// GetListing resolves a listing remotely and upserts it locally. The owning
// teacher is mirrored first.
func (m *Mirror) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	l, err := m.source.GetListing(ctx, id)
	if err != nil {
		return domain.Listing{}, err
	}
	if _, err := m.GetUser(ctx, l.TeacherID); err != nil {
		return domain.Listing{}, fmt.Errorf("mirror listing %s: %w", id, err)
	}
	if err := m.local.UpsertListing(ctx, l); err != nil {
		return domain.Listing{}, fmt.Errorf("mirror listing %s: %w", id, err)
	}
	return l, nil
}

// HasCompletedSession is answered by the source alone.
func (m *Mirror) HasCompletedSession(ctx context.Context, learnerID, teacherID, listingID string) (bool, error) {
	return m.source.HasCompletedSession(ctx, learnerID, teacherID, listingID)
}
