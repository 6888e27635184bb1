package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spotsapp/spots-api/internal/domain/entity"
	"github.com/spotsapp/spots-api/internal/domain/repository"
	apperrors "github.com/spotsapp/spots-api/internal/pkg/errors"
	"github.com/spotsapp/spots-api/pkg/auth"
	"github.com/spotsapp/spots-api/pkg/validator"
)

// TokenService issues and reads identity tokens.
type TokenService interface {
	Issue(accountID, email string) (string, error)
	DecodeUnverified(token string) (*auth.Claims, error)
	Verify(token string) (*auth.Claims, error)
}

// AccountService drives the sign-up, sign-in, verification and password reset
// lifecycle. Every operation answers with an AccountResponse and never an error.
type AccountService struct {
	accounts   repository.AccountRepository
	hasher     auth.PasswordHasher
	tokens     TokenService
	codes      *auth.CodeGenerator
	notifier   Notifier
	codeWindow int
	log        *zap.Logger
}

// SignUpInput is the profile submitted at registration. Field order is the order
// in which rules are reported.
type SignUpInput struct {
	Username  string `validate:"required,min=3,username" label:"username"`
	FirstName string `validate:"required,min=3,personname" label:"first name"`
	LastName  string `validate:"required,min=3,personname" label:"last name"`
	Email     string `validate:"required,email" label:"email"`
	Password  string `validate:"required" label:"password"`
	Image     string `label:"image"`
}

func (in *SignUpInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	in.Image = strings.TrimSpace(in.Image)
}

// NewAccountService wires the account lifecycle. codeWindow is in minutes; a
// non-positive value means auth.DefaultCodeWindowMinutes.
func NewAccountService(
	accounts repository.AccountRepository,
	hasher auth.PasswordHasher,
	tokens TokenService,
	codes *auth.CodeGenerator,
	notifier Notifier,
	codeWindow int,
	log *zap.Logger,
) (*AccountService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("AccountRepository is required for AccountService")
	}
	if hasher == nil {
		return nil, fmt.Errorf("PasswordHasher is required for AccountService")
	}
	if tokens == nil {
		return nil, fmt.Errorf("TokenService is required for AccountService")
	}
	if notifier == nil {
		return nil, fmt.Errorf("Notifier is required for AccountService")
	}
	if codes == nil {
		codes = auth.NewCodeGenerator(nil)
	}
	if codeWindow <= 0 {
		codeWindow = auth.DefaultCodeWindowMinutes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		accounts:   accounts,
		hasher:     hasher,
		tokens:     tokens,
		codes:      codes,
		notifier:   notifier,
		codeWindow: codeWindow,
		log:        log,
	}, nil
}

// SignUp registers a new unverified account, mails its verification code and
// returns a token.
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) *AccountResponse {
	const op = "signUp"
	in.normalize()

	if err := validator.ValidateStruct(in); err != nil {
		return accountFailure(s.log, op, err)
	}

	if err := s.ensureAvailable(ctx, in.Email, in.Username); err != nil {
		return accountFailure(s.log, op, err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return accountFailure(s.log, op, fmt.Errorf("hash password: %w", err))
	}
	code, expiry, err := s.newCode()
	if err != nil {
		return accountFailure(s.log, op, err)
	}

	account := &entity.Account{
		Image:                  in.Image,
		FirstName:              in.FirstName,
		LastName:               in.LastName,
		Username:               in.Username,
		Email:                  in.Email,
		Password:               digest,
		VerificationCode:       &code,
		VerificationCodeExpiry: &expiry,
	}
	if err := s.accounts.Insert(ctx, account); err != nil {
		return accountFailure(s.log, op, err)
	}

	s.notifier.Verification(MailMessage{Email: account.Email, Name: account.FullName(), Code: code})

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return accountFailure(s.log, op, fmt.Errorf("issue token: %w", err))
	}

	s.log.Info("account created", zap.String("account_id", account.ID))
	return accountSuccess(op, account, &token, "Account created successfully. A verification code has been sent to your email")
}

func (s *AccountService) ensureAvailable(ctx context.Context, email, username string) error {
	if _, err := s.accounts.FindOne(ctx, repository.AccountFilter{Email: email}); err == nil {
		return apperrors.New(apperrors.ErrConflict, "an account with this email already exists")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	if _, err := s.accounts.FindOne(ctx, repository.AccountFilter{Username: username}); err == nil {
		return apperrors.New(apperrors.ErrConflict, "this username is already taken")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	return nil
}

// SignIn checks the password of the account registered under email.
func (s *AccountService) SignIn(ctx context.Context, email, password string) *AccountResponse {
	const op = "signIn"
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrValidation, "email and password are required"))
	}

	account, err := s.findAccount(ctx, repository.AccountFilter{Email: email}, "no account found with this email")
	if err != nil {
		return accountFailure(s.log, op, err)
	}
	if !s.hasher.Verify(password, account.Password) {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrUnauthorized, "incorrect password"))
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return accountFailure(s.log, op, fmt.Errorf("issue token: %w", err))
	}
	return accountSuccess(op, account, &token, "Signed in successfully")
}

// VerifyAccount consumes the pending verification code of the token holder.
// The token is only decoded; it identifies the record to check the code against.
func (s *AccountService) VerifyAccount(ctx context.Context, rawToken string, code int) *AccountResponse {
	const op = "verifyAccount"

	token, account, err := s.accountFromToken(ctx, rawToken)
	if err != nil {
		return accountFailure(s.log, op, err)
	}
	if account.EmailVerified {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrConflict, "account is already verified"))
	}
	if !account.VerificationCodeMatches(code) {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrUnauthorized, "verification code is incorrect"))
	}
	if s.expired(account.VerificationCodeExpiry) {
		s.clearCode(ctx, account.ID, entity.ColumnVerificationCode, entity.ColumnVerificationCodeExpiry)
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrUnauthorized, "verification code has expired"))
	}

	updated, err := s.accounts.Update(ctx, account.ID, map[string]interface{}{
		entity.ColumnEmailVerified:          true,
		entity.ColumnVerificationCode:       nil,
		entity.ColumnVerificationCodeExpiry: nil,
	})
	if err != nil {
		return accountFailure(s.log, op, err)
	}
	return accountSuccess(op, updated, &token, "Account verified successfully")
}

// ResendVerificationCode replaces the pending verification code and mails it again.
func (s *AccountService) ResendVerificationCode(ctx context.Context, rawToken string) *AccountResponse {
	const op = "resendVerificationCode"

	token, account, err := s.accountFromToken(ctx, rawToken)
	if err != nil {
		return accountFailure(s.log, op, err)
	}
	if account.EmailVerified {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrConflict, "account is already verified"))
	}

	code, expiry, err := s.newCode()
	if err != nil {
		return accountFailure(s.log, op, err)
	}
	updated, err := s.accounts.Update(ctx, account.ID, map[string]interface{}{
		entity.ColumnVerificationCode:       code,
		entity.ColumnVerificationCodeExpiry: expiry,
	})
	if err != nil {
		return accountFailure(s.log, op, err)
	}

	s.notifier.Verification(MailMessage{Email: updated.Email, Name: updated.FullName(), Code: code})
	return accountSuccess(op, updated, &token, "A new verification code has been sent to your email")
}

// RequestPasswordReset issues a reset code for the account registered under email.
// The response only exposes the account id and carries no token.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) *AccountResponse {
	const op = "requestPasswordReset"
	email = normalizeEmail(email)
	if email == "" {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrValidation, "email is required"))
	}

	account, err := s.findAccount(ctx, repository.AccountFilter{Email: email}, "no account found with this email")
	if err != nil {
		return accountFailure(s.log, op, err)
	}

	code, expiry, err := s.newCode()
	if err != nil {
		return accountFailure(s.log, op, err)
	}
	if _, err := s.accounts.Update(ctx, account.ID, map[string]interface{}{
		entity.ColumnPasswordResetCode:       code,
		entity.ColumnPasswordResetCodeExpiry: expiry,
	}); err != nil {
		return accountFailure(s.log, op, err)
	}

	s.notifier.PasswordReset(MailMessage{Email: account.Email, Name: account.FullName(), Code: code})
	return accountSuccess(op, &entity.Account{ID: account.ID}, nil, "A password reset code has been sent to your email")
}

// ResetPassword consumes the pending reset code, stores the new password and
// returns a fresh token.
func (s *AccountService) ResetPassword(ctx context.Context, id string, code int, newPassword string) *AccountResponse {
	const op = "resetPassword"
	id = strings.TrimSpace(id)
	if id == "" {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrValidation, "account id is required"))
	}
	if newPassword == "" {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrValidation, "new password is required"))
	}

	account, err := s.findAccount(ctx, repository.AccountFilter{ID: id}, "account not found")
	if err != nil {
		return accountFailure(s.log, op, err)
	}
	if !account.ResetCodeMatches(code) {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrUnauthorized, "password reset code is incorrect"))
	}
	if s.expired(account.PasswordResetCodeExpiry) {
		s.clearCode(ctx, account.ID, entity.ColumnPasswordResetCode, entity.ColumnPasswordResetCodeExpiry)
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrUnauthorized, "password reset code has expired"))
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return accountFailure(s.log, op, fmt.Errorf("hash password: %w", err))
	}
	updated, err := s.accounts.Update(ctx, account.ID, map[string]interface{}{
		entity.ColumnPassword:                digest,
		entity.ColumnPasswordResetCode:       nil,
		entity.ColumnPasswordResetCodeExpiry: nil,
	})
	if err != nil {
		return accountFailure(s.log, op, err)
	}

	token, err := s.tokens.Issue(updated.ID, updated.Email)
	if err != nil {
		return accountFailure(s.log, op, fmt.Errorf("issue token: %w", err))
	}
	return accountSuccess(op, updated, &token, "Password reset successfully")
}

// ListAccounts returns every registered account.
func (s *AccountService) ListAccounts(ctx context.Context) ([]entity.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		s.log.Error("failed to list accounts", zap.Error(err))
		return nil, errors.New(InternalErrorMessage)
	}
	return accounts, nil
}

// accountFromToken decodes rawToken without checking its signature and loads
// the account it names. The bare token is returned for echoing back.
func (s *AccountService) accountFromToken(ctx context.Context, rawToken string) (string, *entity.Account, error) {
	token := auth.ExtractBearer(rawToken)
	claims, err := s.tokens.DecodeUnverified(token)
	if err != nil {
		return "", nil, err
	}
	account, err := s.findAccount(ctx, repository.AccountFilter{ID: claims.ID}, "account not found")
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

func (s *AccountService) findAccount(ctx context.Context, filter repository.AccountFilter, notFound string) (*entity.Account, error) {
	account, err := s.accounts.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, notFound)
		}
		return nil, err
	}
	return account, nil
}

func (s *AccountService) newCode() (int, time.Time, error) {
	code, err := s.codes.Generate()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("generate code: %w", err)
	}
	return code, s.codes.ExpiryIn(s.codeWindow), nil
}

// expired treats a missing expiry as expired.
func (s *AccountService) expired(expiry *time.Time) bool {
	return expiry == nil || s.codes.HasExpired(*expiry)
}

func (s *AccountService) clearCode(ctx context.Context, id, codeColumn, expiryColumn string) {
	if _, err := s.accounts.Update(ctx, id, map[string]interface{}{codeColumn: nil, expiryColumn: nil}); err != nil {
		s.log.Warn("failed to clear expired code", zap.String("account_id", id), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
