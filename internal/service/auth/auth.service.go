package auth

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"huddle-api/internal/domain"
	"huddle-api/internal/repository"
	otpsvc "huddle-api/internal/service/otp"
	"huddle-api/pkg/cache"
	"huddle-api/pkg/id"
	"huddle-api/pkg/jwtutil"
	"huddle-api/pkg/xerrors"
)

const (
	sessionNamespace = "session"

	// resetWindow is how long a verified OTP stays usable as a password
	// reset gate.
	resetWindow = 15 * time.Minute
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RegisterParams struct {
	Name        string
	Username    string
	Email       string
	PhoneNumber string
	Password    string
}

type Service struct {
	users      *repository.UserRepo
	otp        *otpsvc.Service
	cache      *cache.Cache
	jwt        *jwtutil.Manager
	sf         *id.Snowflake
	refreshTTL time.Duration
}

func NewService(users *repository.UserRepo, otp *otpsvc.Service, c *cache.Cache, jwt *jwtutil.Manager, sf *id.Snowflake, refreshTTL time.Duration) *Service {
	return &Service{users: users, otp: otp, cache: c, jwt: jwt, sf: sf, refreshTTL: refreshTTL}
}

func (s *Service) Register(ctx context.Context, p RegisterParams) (*domain.User, *TokenPair, error) {
	if p.Email == "" && p.PhoneNumber == "" {
		return nil, nil, xerrors.ErrContactRequired
	}

	if p.Email != "" {
		if taken, err := s.users.EmailExists(ctx, p.Email); err != nil {
			return nil, nil, err
		} else if taken {
			return nil, nil, xerrors.ErrEmailAlreadyInUse
		}
	}
	if p.PhoneNumber != "" {
		if taken, err := s.users.PhoneExists(ctx, p.PhoneNumber); err != nil {
			return nil, nil, err
		} else if taken {
			return nil, nil, xerrors.ErrPhoneAlreadyInUse
		}
	}
	if taken, err := s.users.UsernameExists(ctx, p.Username); err != nil {
		return nil, nil, err
	} else if taken {
		return nil, nil, xerrors.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	contact := p.Email
	if contact == "" {
		contact = p.PhoneNumber
	}
	verified, err := s.otp.HasRecentVerification(ctx, contact, resetWindow)
	if err != nil {
		return nil, nil, err
	}

	u := &domain.User{
		ID:           s.sf.Generate(),
		Name:         p.Name,
		Username:     p.Username,
		Email:        p.Email,
		PhoneNumber:  domain.NormalizePhone(p.PhoneNumber),
		PasswordHash: string(hash),
		IsVerified:   verified,
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if xerrors.IsUniqueViolation(err) {
			return nil, nil, xerrors.ErrUserAlreadyExists
		}
		return nil, nil, err
	}

	tokens, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("User registered | UserID=%d | Username=%s", u.ID, u.Username)
	return u, tokens, nil
}

func (s *Service) Login(ctx context.Context, identifier, password, ip string) (*domain.User, *TokenPair, error) {
	u, err := s.users.GetByContact(ctx, identifier)
	if errors.Is(err, xerrors.ErrUserNotFound) {
		u, err = s.users.GetByUsername(ctx, identifier)
	}
	if errors.Is(err, xerrors.ErrUserNotFound) {
		s.logAttempt(ctx, identifier, ip, false, "user not found")
		return nil, nil, xerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logAttempt(ctx, identifier, ip, false, "wrong password")
		return nil, nil, xerrors.ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		log.Printf("Failed to update last login | UserID=%d | Err=%v", u.ID, err)
	}
	s.logAttempt(ctx, identifier, ip, true, "")

	tokens, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, tokens, nil
}

// Refresh rotates the refresh token: the presented token is revoked and a
// fresh pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	val, err := s.cache.Get(ctx, sessionNamespace, refreshToken)
	if cache.IsNil(err) {
		return nil, xerrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, xerrors.ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, sessionNamespace, refreshToken); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, u)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.cache.Delete(ctx, sessionNamespace, refreshToken)
}

func (s *Service) Me(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ResetPassword requires a verified OTP for the contact within the reset
// window; the OTP flow itself is the authentication.
func (s *Service) ResetPassword(ctx context.Context, contact, newPassword string) error {
	ok, err := s.otp.HasRecentVerification(ctx, contact, resetWindow)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.ErrContactNotVerified
	}

	u, err := s.users.GetByContact(ctx, contact)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return err
	}
	log.Printf("Password reset | UserID=%d", u.ID)
	return nil
}

// MarkContactVerified flags the account behind a just-verified contact.
// Best effort: the contact may not belong to any account yet.
func (s *Service) MarkContactVerified(ctx context.Context, contact string) error {
	u, err := s.users.GetByContact(ctx, contact)
	if errors.Is(err, xerrors.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.users.MarkVerified(ctx, u.ID)
}

func (s *Service) AccountExists(ctx context.Context, contact string) (bool, error) {
	_, err := s.users.GetByContact(ctx, contact)
	if errors.Is(err, xerrors.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) issueTokens(ctx context.Context, u *domain.User) (*TokenPair, error) {
	access, err := s.jwt.Issue(u.ID, u.Username, "general")
	if err != nil {
		return nil, err
	}

	refresh := id.GenerateToken("rt")
	if err := s.cache.Set(ctx, sessionNamespace, refresh, strconv.FormatInt(u.ID, 10), s.refreshTTL); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) logAttempt(ctx context.Context, identifier, ip string, success bool, reason string) {
	err := s.users.LogLoginAttempt(ctx, &domain.LoginAttempt{
		ID:            s.sf.Generate(),
		Identifier:    identifier,
		IPAddress:     ip,
		Success:       success,
		FailureReason: reason,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		log.Printf("Failed to log login attempt | Identifier=%s | Err=%v", identifier, err)
	}
}
