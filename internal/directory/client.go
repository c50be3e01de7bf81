package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
	"github.com/Clark-Hu/skillswap-ratings/internal/repository"
)

// ErrInvalidRecord marks an upstream record this service cannot store.
var ErrInvalidRecord = errors.New("directory: invalid record")

// HTTPClient resolves users, skill listings and sessions from the marketplace
// API that owns them. Missing records wrap repository.ErrNotFound.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient constructs a new HTTP-backed directory client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse directory url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse directory url: %q is not absolute", baseURL)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger.Named("directory"),
	}, nil
}

// GetUser fetches a user by id.
func (c *HTTPClient) GetUser(ctx context.Context, id string) (domain.User, error) {
	var payload userPayload
	if err := c.get(ctx, "/users/"+id, nil, &payload); err != nil {
		return domain.User{}, fmt.Errorf("directory: user %s: %w", id, err)
	}
	u := payload.toDomain()
	if !validRole(u.Role) {
		c.logger.Warn("upstream user has unknown role", zap.String("user_id", id), zap.String("role", u.Role))
		return domain.User{}, fmt.Errorf("directory: user %s has role %q: %w", id, u.Role, ErrInvalidRecord)
	}
	return u, nil
}

// GetListing fetches a skill listing by id.
func (c *HTTPClient) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	var payload listingPayload
	if err := c.get(ctx, "/listings/"+id, nil, &payload); err != nil {
		return domain.Listing{}, fmt.Errorf("directory: listing %s: %w", id, err)
	}
	return payload.toDomain(), nil
}

// HasCompletedSession asks the session owner for completed sessions matching the triple.
func (c *HTTPClient) HasCompletedSession(ctx context.Context, learnerID, teacherID, listingID string) (bool, error) {
	q := url.Values{}
	q.Set("learnerId", learnerID)
	q.Set("teacherId", teacherID)
	q.Set("listingId", listingID)
	q.Set("status", domain.SessionCompleted)

	var sessions []sessionPayload
	if err := c.get(ctx, "/sessions", q, &sessions); err != nil {
		return false, fmt.Errorf("directory: sessions: %w", err)
	}
	for _, p := range sessions {
		s := p.toDomain()
		if s.Status == domain.SessionCompleted && s.LearnerID == learnerID && s.TeacherID == teacherID && s.ListingID == listingID {
			return true, nil
		}
	}
	return false, nil
}

// HealthCheck probes the upstream root.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	return c.get(ctx, "/healthz", nil, nil)
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, dst interface{}) error {
	rel := &url.URL{Path: c.baseURL.Path + path, RawQuery: query.Encode()}
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if dst == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case http.StatusNotFound:
		return repository.ErrNotFound
	default:
		c.logger.Warn("unexpected upstream status",
			zap.Int("status", resp.StatusCode),
			zap.String("path", path),
		)
		return fmt.Errorf("upstream returned %d", resp.StatusCode)
	}
}
