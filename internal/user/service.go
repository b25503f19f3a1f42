package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/SlpAus/mediashelf-backend/pkg/token"
)

// SessionTTL is how long an issued session token stays valid.
const SessionTTL = 30 * 24 * time.Hour

// Session is what a successful sign-in returns.
type Session struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service manages profiles and session tokens.
type Service struct {
	repo   *Repository
	signer *token.Signer
	now    func() time.Time
}

func NewService(repo *Repository, signer *token.Signer) *Service {
	return &Service{repo: repo, signer: signer, now: time.Now}
}

// SignIn loads or creates the user and issues a session token.
func (s *Service) SignIn(ctx context.Context, username string) (*Session, error) {
	username = strings.TrimSpace(username)
	if len(username) < 2 || len(username) > 32 {
		return nil, apperr.Validation("user.sign_in", "username must be 2 to 32 characters")
	}

	u, err := s.repo.FindOrCreate(ctx, username)
	if err != nil {
		return nil, err
	}

	expires := s.now().Add(SessionTTL)
	tok, err := s.signer.Issue(token.Payload{UserID: u.ID, Role: string(u.Role), ExpiresAt: expires.Unix()})
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &Session{User: u, Token: tok, ExpiresAt: expires}, nil
}

// Authenticate verifies a session token and returns its payload.
func (s *Service) Authenticate(tok string) (token.Payload, error) {
	p, err := s.signer.Verify(tok, s.now())
	if err != nil {
		return token.Payload{}, apperr.Unauthorized("user.authenticate")
	}
	return p, nil
}

// Profile returns the user's stored profile.
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("user.profile")
	}
	return s.repo.Get(ctx, userID)
}

// UpdateProfile applies the non-nil fields of upd.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*User, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("user.update_profile")
	}
	fields := map[string]any{}
	if upd.AvatarURL != nil {
		fields["avatar_url"] = strings.TrimSpace(*upd.AvatarURL)
	}
	if upd.Bio != nil {
		fields["bio"] = strings.TrimSpace(*upd.Bio)
	}
	if err := s.repo.Update(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}
