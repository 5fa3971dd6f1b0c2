package services

import (
	"errors"
	"time"

	"github.com/afterposten/backend/internal/config"
	"github.com/afterposten/backend/internal/utils"
)

const adminSubject = "admin"

// AuthService guards the API with the single admin password from config.
// The password is hashed once at startup and only the hash is kept.
type AuthService struct {
	enabled      bool
	passwordHash string
	issuer       *utils.TokenIssuer
	expireHour   int
}

func NewAuthService(cfg *config.AuthConfig, jwtCfg *config.JWTConfig) (*AuthService, error) {
	svc := &AuthService{
		enabled:    cfg.Enabled,
		issuer:     utils.NewTokenIssuer(jwtCfg.Secret, jwtCfg.ExpireHour),
		expireHour: jwtCfg.ExpireHour,
	}
	if svc.expireHour <= 0 {
		svc.expireHour = 24
	}
	if !cfg.Enabled {
		return svc, nil
	}
	if cfg.AdminPassword == "" {
		return nil, errors.New("auth is enabled but no admin password is configured")
	}
	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, err
	}
	svc.passwordHash = hash
	return svc, nil
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string    `json:"token"`
	ExpireAt time.Time `json:"expireAt"`
}

func (s *AuthService) Enabled() bool { return s.enabled }

// Issuer verifies tokens for the auth middleware.
func (s *AuthService) Issuer() *utils.TokenIssuer { return s.issuer }

func (s *AuthService) Login(req *LoginRequest) (*LoginResponse, error) {
	if !s.enabled {
		return nil, ErrAuthDisabled
	}
	if !utils.CheckPassword(req.Password, s.passwordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Generate(adminSubject, "admin")
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		Token:    token,
		ExpireAt: time.Now().Add(time.Duration(s.expireHour) * time.Hour),
	}, nil
}
