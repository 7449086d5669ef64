package wodstrat

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Auther is the identity API: registration, password login and token refresh
type Auther struct {
	repos        RepositoryManager
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
	passwords    *PasswordHasher
	now          func() time.Time
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repos RepositoryManager, tokenService TokenService) *Auther {
	return &Auther{
		repos:        repos,
		tokenService: tokenService,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		passwords:    NewPasswordHasher(DefaultPasswordCost),
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithPasswordHasher replaces the bcrypt hasher.
func (s *Auther) WithPasswordHasher(h *PasswordHasher) *Auther {
	if h != nil {
		s.passwords = h
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Register creates an account and signs the new user in
func (s *Auther) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, validationErr(err)
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		s.logger.Error("Register hash password error: %s", err)
		return nil, err
	}

	var created *User
	err = s.repos.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err = s.repos.Users().RegisterTx(ctx, tx, &User{
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
		})
		return err
	})
	if err != nil {
		if !HasTextCode(err, TextCodeEmailTaken) {
			s.logger.Error("Register create user error: %s", err)
		}
		return nil, err
	}

	resp, err := s.issue(created, nil)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ActivityEventUserRegistered, created.ID, map[string]any{
		"email": created.Email,
	})

	return resp, nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords both return ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, validationErr(err)
	}

	user, err := s.repos.Users().GetByEmail(ctx, req.Email)
	if err != nil {
		if !IsRecordNotFound(err) {
			s.logger.Error("Login find user error: %s", err)
			return nil, err
		}
		s.passwords.VerifyDecoy(req.Password)
		s.emitFailure(ctx, req.Email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if err := s.passwords.Verify(req.Password, user.PasswordHash); err != nil {
		s.emitFailure(ctx, req.Email, err)
		return nil, ErrInvalidCredentials
	}

	if err := s.repos.Users().TrackSuccessfulLogin(ctx, user); err != nil {
		s.logger.Warn("Login track successful login error: %s", err)
	}

	athleteID, err := s.athleteIDFor(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	resp, err := s.issue(user, athleteID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ActivityEventLoginSuccess, user.ID, map[string]any{
		"email":       user.Email,
		"has_athlete": athleteID != nil,
	})

	return resp, nil
}

// Refresh reissues a token for userID with the current athlete id
func (s *Auther) Refresh(ctx context.Context, userID int64) (*AuthResponse, error) {
	user, err := s.repos.Users().GetByID(ctx, userID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrTokenMalformed
		}
		return nil, err
	}

	athleteID, err := s.athleteIDFor(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	resp, err := s.issue(user, athleteID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ActivityEventTokenRefreshed, user.ID, map[string]any{
		"has_athlete": athleteID != nil,
	})

	return resp, nil
}

// SessionFromToken validates a raw bearer token
func (s *Auther) SessionFromToken(raw string) (*SessionClaims, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed: %s", err)
		return nil, err
	}
	return claims, nil
}

func (s *Auther) athleteIDFor(ctx context.Context, userID int64) (*int64, error) {
	athlete, err := s.repos.Athletes().GetByUserID(ctx, userID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, nil
		}
		s.logger.Error("lookup athlete for user %d error: %s", userID, err)
		return nil, err
	}
	id := athlete.ID
	return &id, nil
}

func (s *Auther) issue(user *User, athleteID *int64) (*AuthResponse, error) {
	token, expiresAt, err := s.tokenService.Generate(user, athleteID)
	if err != nil {
		s.logger.Error("generate token for user %d error: %s", user.ID, err)
		return nil, err
	}

	return &AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      newUserResponse(user, athleteID),
	}, nil
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, userID int64, metadata map[string]any) {
	recordActivity(ctx, s.activitySink, s.logger, s.now, ActivityEvent{
		EventType: eventType,
		Actor:     userActor(userID),
		UserID:    formatNumericClaim(userID),
		Metadata:  metadata,
	})
}

func (s *Auther) emitFailure(ctx context.Context, email string, err error) {
	recordActivity(ctx, s.activitySink, s.logger, s.now, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{Type: "unknown"},
		Metadata: map[string]any{
			"identifier": normalizeEmail(email),
			"error":      err.Error(),
		},
	})
}
