package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastship/backend/internal/apperr"
	"github.com/fastship/backend/internal/store"
	"github.com/fastship/backend/internal/token"
	"github.com/fastship/backend/types"
)

const (
	// verificationWindow bounds how long an emailed verification
	// token stays redeemable.
	verificationWindow = 24 * time.Hour

	// passwordResetWindow bounds password-reset token redemption.
	passwordResetWindow = 10 * time.Minute

	// passwordResetSalt namespaces reset tokens so a verification
	// token can never be redeemed as a reset token.
	passwordResetSalt = "password-reset-token"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByLogin(ctx context.Context, login string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetEmailVerified(ctx context.Context, id uuid.UUID) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// UserNotifier triggers the asynchronous email sends of the user
// directory. Implementations must not block the caller on delivery.
type UserNotifier interface {
	VerificationEmail(user types.User, token string)
	PasswordResetEmail(user types.User, token string)
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username string
	FullName string
	Email    string
	Password string
}

// UserService encapsulates registration, authentication, and the
// email verification and password reset workflows.
type UserService struct {
	repo     UserRepository
	tokens   *token.Service
	signer   *token.Signer
	notifier UserNotifier
}

func NewUserService(repo UserRepository, tokens *token.Service, signer *token.Signer, notifier UserNotifier) *UserService {
	return &UserService{repo: repo, tokens: tokens, signer: signer, notifier: notifier}
}

// Register creates an unverified account and triggers the
// verification email. The email is fire-and-forget: registration
// succeeds even if the enqueue later fails.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (types.User, error) {
	// Email is checked before username so a request claiming both
	// surfaces EMAIL_TAKEN first.
	if _, err := s.repo.GetByEmail(ctx, input.Email); err == nil {
		return types.User{}, apperr.New(apperr.CodeEmailTaken, "Email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}
	if _, err := s.repo.GetByUsername(ctx, input.Username); err == nil {
		return types.User{}, apperr.New(apperr.CodeUsernameTaken, "Username already taken")
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     input.Username,
		FullName:     input.FullName,
		Email:        input.Email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		return types.User{}, err
	}

	s.sendVerification(user)
	return user, nil
}

// Authenticate verifies credentials and issues an access token. The
// login may be a username or an email. Unverified accounts are a hard
// gate: correct credentials still fail until the email is verified.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (string, error) {
	user, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.New(apperr.CodeWrongLogin, "No user associated with given email or username")
		}
		return "", err
	}

	if !user.EmailVerified {
		return "", apperr.New(apperr.CodeEmailNotVerified, "Verify your email before logging in").
			WithMeta("email", user.Email)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperr.New(apperr.CodeWrongPassword, "Wrong password").
			WithMeta("email", user.Email)
	}

	return s.tokens.Issue(user.Identity(), 0)
}

// VerifyEmail redeems a verification token. Redeeming for an already
// verified account is an idempotent no-op. An expired token whose
// signature still verifies propagates TOKEN_EXPIRED with the embedded
// identity so the caller can offer a resend; the resend itself is
// never automatic.
func (s *UserService) VerifyEmail(ctx context.Context, tokenString string) error {
	payload, verifyErr := s.signer.Verify(tokenString, "", verificationWindow)
	if verifyErr != nil && !apperr.Is(verifyErr, apperr.CodeTokenExpired) {
		return verifyErr
	}

	id, err := uuid.Parse(payload.ID)
	if err != nil {
		return apperr.New(apperr.CodeTokenInvalid, "Could not validate token")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil || user.Email != payload.Email {
		return apperr.New(apperr.CodeUserNotFound, "Something went wrong, please try to register again")
	}

	if user.EmailVerified {
		return nil
	}
	if verifyErr != nil {
		return verifyErr
	}
	return s.repo.SetEmailVerified(ctx, user.ID)
}

// ResendVerification re-issues a verification token, addressed either
// by a stale token or by an explicit email. The stale token may be
// arbitrarily old, but its signature must verify: a forged token
// propagates TOKEN_INVALID rather than falling through to the email
// lookup.
func (s *UserService) ResendVerification(ctx context.Context, staleToken, email string) error {
	targetEmail := email
	if staleToken != "" {
		payload, err := s.signer.Verify(staleToken, "", 0)
		if err != nil {
			return err
		}
		targetEmail = payload.Email
	}
	if targetEmail == "" {
		return apperr.New(apperr.CodeUserNotFound, "Something went wrong, please try to register again")
	}

	user, err := s.repo.GetByEmail(ctx, targetEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.CodeUserNotFound, "Something went wrong, please try to register again")
		}
		return err
	}
	if user.EmailVerified {
		return apperr.New(apperr.CodeEmailVerified, "Email already verified")
	}

	s.sendVerification(user)
	return nil
}

// RequestPasswordReset issues a reset token bound to the email and
// queues the reset email. Unknown emails fail with USER_NOT_FOUND;
// this leaks account existence and is kept as current behavior.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.CodeUserNotFound, "User not found")
		}
		return err
	}

	resetToken, err := s.signer.Sign(token.Payload{Email: user.Email}, passwordResetSalt)
	if err != nil {
		return err
	}
	s.notifier.PasswordResetEmail(user, resetToken)
	return nil
}

// ResetPassword redeems a reset token and replaces the password.
func (s *UserService) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	payload, err := s.signer.Verify(tokenString, passwordResetSalt, passwordResetWindow)
	if err != nil {
		return err
	}

	user, err := s.repo.GetByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.CodeUserNotFound, "User not found")
		}
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, user.ID, string(hashed))
}

// GetByID loads a user, mapping a missing row to USER_NOT_FOUND.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.New(apperr.CodeUserNotFound, "User not found")
		}
		return types.User{}, err
	}
	return user, nil
}

// GetByUsername loads a user, mapping a missing row to USER_NOT_FOUND.
func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.New(apperr.CodeUserNotFound, "User not found")
		}
		return types.User{}, err
	}
	return user, nil
}

func (s *UserService) sendVerification(user types.User) {
	verificationToken, err := s.signer.Sign(token.Payload{Email: user.Email, ID: user.ID.String()}, "")
	if err != nil {
		// Best effort: the account exists either way and the user
		// can request a resend.
		return
	}
	s.notifier.VerificationEmail(user, verificationToken)
}
