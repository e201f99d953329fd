package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pesocoin/colorgame/internal/config"
	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/identity"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// Claims are the verified contents of an access token.
type Claims struct {
	Subject   string
	Roles     []string
	Version   int
	ExpiresAt time.Time
}

// Service issues and verifies bearer tokens for members on behalf of the chat
// adapter.
type Service struct {
	cfg     config.Config
	members *identity.Service
	now     func() time.Time
}

func NewService(cfg config.Config, members *identity.Service) *Service {
	return &Service{cfg: cfg, members: members, now: time.Now}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// VerifyBotKey checks the adapter's shared key against the configured bcrypt
// hash. Without a hash only development environments are let through.
func (s *Service) VerifyBotKey(key string) error {
	if s.cfg.BotKeyHash == "" {
		if s.cfg.IsDev() {
			return nil
		}
		return fmt.Errorf("bot key not configured: %w", game.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.BotKeyHash), []byte(key)); err != nil {
		return fmt.Errorf("invalid bot key: %w", game.ErrUnauthorized)
	}
	return nil
}

// Issue registers the asserted member profile and returns a token pair.
func (s *Service) Issue(ctx context.Context, p identity.Profile) (TokenPair, identity.Member, error) {
	member, err := s.members.Register(ctx, p)
	if err != nil {
		return TokenPair{}, identity.Member{}, err
	}
	access, accessExp, err := s.sign(member, tokenAccess, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, identity.Member{}, err
	}
	refresh, _, err := s.sign(member, tokenRefresh, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, identity.Member{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(accessExp.Sub(s.now()).Seconds()),
	}, member, nil
}

func (s *Service) sign(member identity.Member, typ, secret string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	signed, err := signToken(tokenClaims{
		Sub:   member.ID,
		Roles: member.Roles,
		Ver:   member.TokenVersion,
		Typ:   typ,
		Iat:   now.Unix(),
		Exp:   exp.Unix(),
	}, []byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify validates an access token and checks it has not been revoked.
func (s *Service) Verify(ctx context.Context, token string) (Claims, error) {
	claims, member, err := s.parse(ctx, token, tokenAccess, s.cfg.JWTSecret)
	if err != nil {
		return Claims{}, err
	}
	return Claims{
		Subject:   member.ID,
		Roles:     member.Roles,
		Version:   member.TokenVersion,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Refresh verifies the refresh token and returns a new access token if valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	_, member, err := s.parse(ctx, refreshToken, tokenRefresh, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	signed, _, err := s.sign(member, tokenAccess, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Revoke increments the member's token version so older tokens become invalid.
func (s *Service) Revoke(ctx context.Context, memberID string) error {
	return s.members.Revoke(ctx, memberID)
}

func (s *Service) parse(ctx context.Context, token, typ, secret string) (Claims, identity.Member, error) {
	raw, err := verifyToken(token, []byte(secret))
	if err != nil {
		return Claims{}, identity.Member{}, fmt.Errorf("%s: %w", err.Error(), game.ErrUnauthorized)
	}
	if raw.Typ != typ {
		return Claims{}, identity.Member{}, fmt.Errorf("expected %s token: %w", typ, game.ErrUnauthorized)
	}
	exp := time.Unix(raw.Exp, 0)
	if !s.now().Before(exp) {
		return Claims{}, identity.Member{}, fmt.Errorf("token expired: %w", game.ErrUnauthorized)
	}

	member, err := s.members.Get(ctx, raw.Sub)
	if errors.Is(err, game.ErrNotFound) {
		return Claims{}, identity.Member{}, fmt.Errorf("unknown member: %w", game.ErrUnauthorized)
	}
	if err != nil {
		return Claims{}, identity.Member{}, err
	}
	if member.TokenVersion != raw.Ver {
		return Claims{}, identity.Member{}, fmt.Errorf("token version invalidated: %w", game.ErrUnauthorized)
	}
	return Claims{Subject: raw.Sub, Version: member.TokenVersion, ExpiresAt: exp}, member, nil
}
