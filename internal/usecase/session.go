package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/port"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/logger"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/security"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/repository"
)

const (
	defaultCodeLength    = 10
	defaultActivationTTL = 24 * time.Hour
	defaultResetTTL      = 10 * time.Minute
)

var (
	// ErrUserAlreadyExists indicates a registration attempt for a taken email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("email or password incorrect")
	// ErrUserNotActive indicates a login before email verification completed.
	ErrUserNotActive = errors.New("user not active")
	// ErrUserAlreadyActive indicates an activation resend for a verified account.
	ErrUserAlreadyActive = errors.New("user already active")
	// ErrCodeInvalid indicates the confirmation code does not match any issued one.
	ErrCodeInvalid = errors.New("confirmation code invalid")
	// ErrRefreshTokenMissing indicates the request carried no refresh token.
	ErrRefreshTokenMissing = errors.New("refresh token missing")
	// ErrRefreshTokenRevoked indicates the token is absent from the store.
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
	// ErrRefreshTokenInvalid indicates the token signature did not verify.
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")
	// ErrUserNotFound indicates a lookup for a nonexistent account.
	ErrUserNotFound = errors.New("user not found")
)

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Firstname        string
	Email            string
	Password         string
	RepeatedPassword string
	Role             string
	AcceptConditions bool
	AcceptResearch   bool
}

// SessionConfig carries the tunables of the session service.
type SessionConfig struct {
	// PublicBaseURL is prepended to emailed verification links.
	PublicBaseURL string
	CodeLength    int
	ActivationTTL time.Duration
	ResetTTL      time.Duration
}

// SessionService orchestrates the account and session lifecycle: registration,
// email verification, login, token refresh, password reset, and logout.
type SessionService struct {
	cfg       SessionConfig
	users     port.UserRepository
	codes     port.CodeRegistry
	tokens    port.RefreshTokenRepository
	issuer    *security.TokenIssuer
	mailer    port.Mailer
	events    port.EventPublisher
	passwords *security.PasswordValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService constructs the session service.
func NewSessionService(
	cfg SessionConfig,
	users port.UserRepository,
	codes port.CodeRegistry,
	tokens port.RefreshTokenRepository,
	issuer *security.TokenIssuer,
	mailer port.Mailer,
	events port.EventPublisher,
	log *zap.Logger,
) *SessionService {
	if cfg.CodeLength < defaultCodeLength {
		cfg.CodeLength = defaultCodeLength
	}
	if cfg.ActivationTTL <= 0 {
		cfg.ActivationTTL = defaultActivationTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = defaultResetTTL
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &SessionService{
		cfg:       cfg,
		users:     users,
		codes:     codes,
		tokens:    tokens,
		issuer:    issuer,
		mailer:    mailer,
		events:    events,
		passwords: security.DefaultPasswordValidator(),
		logger:    log,
		now:       time.Now,
	}
}

// Register validates the form, creates a pending user, and sends the
// verification email. Code persistence and email dispatch are secondary
// side effects: their failures are logged, not surfaced, because the user
// record is the source of truth and the code can be reissued later.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	if verr := validateRegistration(in, s.passwords); verr != nil {
		return domain.User{}, verr
	}

	email := strings.TrimSpace(in.Email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return domain.User{}, ErrUserAlreadyExists
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:                         uuid.NewString(),
		Firstname:                  strings.TrimSpace(in.Firstname),
		Email:                      email,
		PasswordHash:               passwordHash,
		Role:                       domain.UserRole(strings.TrimSpace(in.Role)),
		Status:                     domain.UserStatusPending,
		AcceptedGeneralConditions:  in.AcceptConditions,
		AcceptedResearchConditions: in.AcceptResearch,
		CreatedAt:                  now,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrUserAlreadyExists
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}

	s.issueActivation(ctx, user)

	s.publish(ctx, func(ctx context.Context) error {
		return s.events.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       user.ID,
			Email:        user.Email,
			Role:         string(user.Role),
			RegisteredAt: now,
		})
	})

	return user, nil
}

// issueActivation persists a fresh activation code and emails the
// verification link. Failures are logged and swallowed.
func (s *SessionService) issueActivation(ctx context.Context, user domain.User) {
	log := logger.WithContext(ctx)

	code, err := s.issueCode(ctx, domain.CodePurposeActivation, user.Email, s.cfg.ActivationTTL)
	if err != nil {
		log.Warn("unable to save confirmation code",
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
		return
	}

	link := s.verificationLink(user.ID, code.Code)
	msg := port.MailMessage{
		To:      user.Email,
		Subject: "Confirm your email address",
		Text:    "Please confirm your email address by following this link: " + link,
		HTML: `<p>Please confirm your email address: <strong><a href="` + link +
			`" target="_blank">Confirm email</a></strong></p>`,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Warn("unable to send verification email",
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
	}
}

// VerifyAccount consumes the emailed (userID, code) pair and activates the
// account. Callers redirect regardless of outcome; errors exist for logging.
func (s *SessionService) VerifyAccount(ctx context.Context, userID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	matched, err := s.codes.Consume(ctx, domain.CodePurposeActivation, user.Email, code)
	if err != nil {
		return fmt.Errorf("consume confirmation code: %w", err)
	}
	if !matched {
		return ErrCodeInvalid
	}

	if err := s.users.Activate(ctx, user.Email); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}

	if err := s.codes.Delete(ctx, domain.CodePurposeActivation, user.Email, code); err != nil &&
		!errors.Is(err, repository.ErrNotFound) {
		logger.WithContext(ctx).Warn("unable to delete confirmation code",
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
	}

	s.publish(ctx, func(ctx context.Context) error {
		return s.events.PublishUserActivated(ctx, domain.UserActivatedEvent{
			EventID:     uuid.NewString(),
			UserID:      user.ID,
			Email:       user.Email,
			ActivatedAt: s.now().UTC(),
		})
	})

	return nil
}

// Login checks credentials and issues a token pair. Unknown email and wrong
// password produce the same error.
func (s *SessionService) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	if verr := requireFields(email, password); verr != nil {
		return domain.TokenPair{}, verr
	}

	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !user.IsActive() {
		return domain.TokenPair{}, ErrUserNotActive
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.publish(ctx, func(ctx context.Context) error {
		return s.events.PublishUserLoggedIn(ctx, domain.UserLoggedInEvent{
			EventID:    uuid.NewString(),
			UserID:     user.ID,
			Email:      user.Email,
			LoggedInAt: s.now().UTC(),
		})
	})

	return pair, nil
}

// authenticate resolves a user by email and verifies the password.
func (s *SessionService) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// issuePair signs a fresh access/refresh pair and persists the refresh token
// hash. Saving is a no-op when the exact token value is already stored.
func (s *SessionService) issuePair(ctx context.Context, user *domain.User) (domain.TokenPair, error) {
	accessToken, err := s.issuer.IssueAccessToken(user.ID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	record := domain.RefreshToken{
		TokenHash: security.HashToken(refreshToken),
		Email:     user.Email,
		CreatedAt: s.now().UTC(),
	}
	if err := s.tokens.Save(ctx, record); err != nil {
		return domain.TokenPair{}, fmt.Errorf("save refresh token: %w", err)
	}

	return domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// ResendActivation reissues the activation code after a credential check.
func (s *SessionService) ResendActivation(ctx context.Context, email, password string) error {
	if verr := requireFields(email, password); verr != nil {
		return verr
	}

	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return err
	}
	if user.IsActive() {
		return ErrUserAlreadyActive
	}

	s.issueActivation(ctx, *user)
	return nil
}

// RefreshAccessToken mints a new access token for a still-stored refresh
// token. Store presence is checked before the signature: a revoked token is
// rejected even if it would still verify.
func (s *SessionService) RefreshAccessToken(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return domain.TokenPair{}, ErrRefreshTokenMissing
	}

	present, err := s.tokens.Exists(ctx, security.HashToken(refreshToken))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("lookup refresh token: %w", err)
	}
	if !present {
		return domain.TokenPair{}, ErrRefreshTokenRevoked
	}

	userID, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return domain.TokenPair{}, ErrRefreshTokenInvalid
	}

	accessToken, err := s.issuer.IssueAccessToken(userID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	return domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RequestPasswordReset emails a reset code. It reports success regardless of
// whether the email is registered so responses cannot enumerate accounts.
func (s *SessionService) RequestPasswordReset(ctx context.Context, email string) error {
	if verr := requireFields(email); verr != nil {
		return verr
	}

	log := logger.WithContext(ctx)

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Debug("password reset requested for unknown email",
				zap.String("email", logger.MaskEmail(email)),
			)
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	code, err := s.issueCode(ctx, domain.CodePurposePasswordReset, user.Email, s.cfg.ResetTTL)
	if err != nil {
		return fmt.Errorf("save confirmation code: %w", err)
	}

	msg := port.MailMessage{
		To:      user.Email,
		Subject: "Reset your password",
		Text:    "Your password reset code is: " + code.Code,
		HTML:    `<p>Your password reset code is: <strong>` + code.Code + `</strong></p>`,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Warn("unable to send password reset email",
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
	}

	s.publish(ctx, func(ctx context.Context) error {
		return s.events.PublishPasswordResetRequested(ctx, domain.PasswordResetRequestedEvent{
			EventID:     uuid.NewString(),
			Email:       user.Email,
			RequestedAt: code.CreatedAt,
			ExpiresAt:   code.ExpiresAt,
		})
	})

	return nil
}

// ResetPassword stores a new password after the emailed reset code matches.
func (s *SessionService) ResetPassword(ctx context.Context, email, password, repeatedPassword, code string) error {
	if verr := requireFields(email, password, repeatedPassword, code); verr != nil {
		return verr
	}
	if password != repeatedPassword {
		return newValidationError(CodePasswordMismatch)
	}
	if err := s.passwords.Validate(password); err != nil {
		return newValidationError(CodeWeakPassword)
	}

	email = strings.TrimSpace(email)

	matched, err := s.codes.Consume(ctx, domain.CodePurposePasswordReset, email, code)
	if err != nil {
		return fmt.Errorf("consume confirmation code: %w", err)
	}
	if !matched {
		return ErrCodeInvalid
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, email, passwordHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.codes.Delete(ctx, domain.CodePurposePasswordReset, email, code); err != nil &&
		!errors.Is(err, repository.ErrNotFound) {
		logger.WithContext(ctx).Warn("unable to delete confirmation code",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
	}

	s.publish(ctx, func(ctx context.Context) error {
		return s.events.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			Email:     email,
			ChangedAt: s.now().UTC(),
		})
	})

	return nil
}

// Logout revokes the refresh token. It is idempotent: malformed, unknown, or
// already-revoked tokens still log the client out successfully.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	log := logger.WithContext(ctx)
	tokenHash := security.HashToken(refreshToken)

	userID, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		if derr := s.tokens.DeleteByToken(ctx, tokenHash); derr != nil &&
			!errors.Is(derr, repository.ErrNotFound) {
			log.Warn("unable to delete refresh token", zap.Error(derr))
		}
		return nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn("unable to load user during logout", zap.Error(err))
		}
		if derr := s.tokens.DeleteByToken(ctx, tokenHash); derr != nil &&
			!errors.Is(derr, repository.ErrNotFound) {
			log.Warn("unable to delete refresh token", zap.Error(derr))
		}
		return nil
	}

	if err := s.tokens.DeleteByTokenAndEmail(ctx, tokenHash, user.Email); err != nil &&
		!errors.Is(err, repository.ErrNotFound) {
		log.Warn("unable to delete refresh token",
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
		return nil
	}

	s.publish(ctx, func(ctx context.Context) error {
		return s.events.PublishUserLoggedOut(ctx, domain.UserLoggedOutEvent{
			EventID:     uuid.NewString(),
			UserID:      user.ID,
			Email:       user.Email,
			LoggedOutAt: s.now().UTC(),
		})
	})

	return nil
}

// VerifyAccessToken validates the access token and returns the user id.
func (s *SessionService) VerifyAccessToken(token string) (string, error) {
	return s.issuer.VerifyAccessToken(token)
}

// LoadUser resolves a user by id.
func (s *SessionService) LoadUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// ListUsers returns users matching the filter, for the admin surface.
func (s *SessionService) ListUsers(ctx context.Context, filter port.UserFilter) ([]domain.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ResolveSoftIdentity resolves a best-effort identity for event attribution.
// It never fails: on an unusable access token it tries the refresh token and,
// when that works, returns a fresh pair for the caller to re-cookie. The
// returned identity is empty when nothing could be resolved.
func (s *SessionService) ResolveSoftIdentity(ctx context.Context, accessToken, refreshToken string) (domain.AuthContext, *domain.TokenPair) {
	if userID, err := s.issuer.VerifyAccessToken(accessToken); err == nil {
		if user, err := s.users.GetByID(ctx, userID); err == nil {
			return domain.AuthContext{UserID: user.ID}, nil
		}
		return domain.AuthContext{}, nil
	}

	if strings.TrimSpace(refreshToken) == "" {
		return domain.AuthContext{}, nil
	}

	present, err := s.tokens.Exists(ctx, security.HashToken(refreshToken))
	if err != nil || !present {
		return domain.AuthContext{}, nil
	}

	userID, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return domain.AuthContext{}, nil
	}

	accessToken, err = s.issuer.IssueAccessToken(userID)
	if err != nil {
		return domain.AuthContext{}, nil
	}
	pair := &domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}

	if user, err := s.users.GetByID(ctx, userID); err == nil {
		return domain.AuthContext{UserID: user.ID}, pair
	}
	return domain.AuthContext{}, pair
}

// issueCode generates and persists a confirmation code for the purpose.
func (s *SessionService) issueCode(ctx context.Context, purpose domain.CodePurpose, email string, ttl time.Duration) (domain.ConfirmationCode, error) {
	raw, err := security.GenerateURLSafeCode(s.cfg.CodeLength)
	if err != nil {
		return domain.ConfirmationCode{}, fmt.Errorf("generate code: %w", err)
	}

	now := s.now().UTC()
	code := domain.ConfirmationCode{
		Purpose:   purpose,
		Email:     email,
		Code:      raw,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.codes.Save(ctx, code); err != nil {
		return domain.ConfirmationCode{}, err
	}

	return code, nil
}

func (s *SessionService) verificationLink(userID, code string) string {
	base := s.cfg.PublicBaseURL
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%sauth/verify-account/%s/%s", base, userID, code)
}

// publish runs an event emission and logs failures instead of surfacing them.
func (s *SessionService) publish(ctx context.Context, emit func(context.Context) error) {
	if s.events == nil {
		return
	}
	if err := emit(ctx); err != nil {
		logger.WithContext(ctx).Warn("unable to publish event", zap.Error(err))
	}
}

// WithClock overrides the service clock, used in tests.
func (s *SessionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}
