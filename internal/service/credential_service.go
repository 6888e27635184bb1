package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spotsapp/spots-api/internal/domain/repository"
	apperrors "github.com/spotsapp/spots-api/internal/pkg/errors"
)

// CredentialService binds the external public/secret key pair to an account.
// A pair can be bound once; every later attempt is a conflict.
type CredentialService struct {
	accounts repository.AccountRepository
	tokens   TokenService
	log      *zap.Logger
}

// NewCredentialService creates the binder.
func NewCredentialService(accounts repository.AccountRepository, tokens TokenService, log *zap.Logger) (*CredentialService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("AccountRepository is required for CredentialService")
	}
	if tokens == nil {
		return nil, fmt.Errorf("TokenService is required for CredentialService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CredentialService{accounts: accounts, tokens: tokens, log: log}, nil
}

// BindCredentials stores publicKey and secretKey on the account named by the
// verified email claim of rawToken.
func (s *CredentialService) BindCredentials(ctx context.Context, rawToken, publicKey, secretKey string) *AccountResponse {
	const op = "bindCredentials"

	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return accountFailure(s.log, op, err)
	}
	if claims.Email == "" {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrUnauthorized, "authentication token carries no email"))
	}

	publicKey = strings.TrimSpace(publicKey)
	secretKey = strings.TrimSpace(secretKey)
	if publicKey == "" || secretKey == "" {
		return accountFailure(s.log, op, apperrors.New(apperrors.ErrValidation, "both publicKey and secretKey are required"))
	}

	account, err := s.accounts.FindOne(ctx, repository.AccountFilter{Email: claims.Email})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = apperrors.New(apperrors.ErrNotFound, "account not found")
		}
		return accountFailure(s.log, op, err)
	}
	if account.HasCredentials() {
		return accountFailure(s.log, op, errCredentialsAlreadySet)
	}

	updated, err := s.accounts.BindCredentials(ctx, account.ID, publicKey, secretKey)
	if err != nil {
		return accountFailure(s.log, op, err)
	}

	s.log.Info("credentials bound", zap.String("account_id", updated.ID))
	return accountSuccess(op, updated, nil, "Credentials set successfully")
}

var errCredentialsAlreadySet = apperrors.New(apperrors.ErrConflict, "credentials have already been set for this account")
