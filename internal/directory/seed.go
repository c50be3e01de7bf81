package directory

import (
	"context"
	"fmt"

	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
)

// Writer stores directory records. Both repositories implement it.
type Writer interface {
	UpsertUser(ctx context.Context, u domain.User) error
	UpsertListing(ctx context.Context, l domain.Listing) error
	UpsertSession(ctx context.Context, s domain.Session) error
}

// Seed writes every fixture record in dependency order.
func Seed(ctx context.Context, w Writer, f Fixtures) error {
	for _, u := range f.DomainUsers() {
		if err := w.UpsertUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for _, l := range f.DomainListings() {
		if err := w.UpsertListing(ctx, l); err != nil {
			return fmt.Errorf("seed listing %s: %w", l.ID, err)
		}
	}
	for _, s := range f.DomainSessions() {
		if err := w.UpsertSession(ctx, s); err != nil {
			return fmt.Errorf("seed session %s: %w", s.ID, err)
		}
	}
	return nil
}
