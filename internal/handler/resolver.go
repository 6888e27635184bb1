package handler

import (
	"context"
	"fmt"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/spotsapp/spots-api/internal/domain/entity"
	"github.com/spotsapp/spots-api/internal/service"
)

// AccountService is the account lifecycle the resolvers dispatch to.
type AccountService interface {
	SignUp(ctx context.Context, in service.SignUpInput) *service.AccountResponse
	SignIn(ctx context.Context, email, password string) *service.AccountResponse
	VerifyAccount(ctx context.Context, rawToken string, code int) *service.AccountResponse
	ResendVerificationCode(ctx context.Context, rawToken string) *service.AccountResponse
	RequestPasswordReset(ctx context.Context, email string) *service.AccountResponse
	ResetPassword(ctx context.Context, id string, code int, newPassword string) *service.AccountResponse
	ListAccounts(ctx context.Context) ([]entity.Account, error)
}

// CredentialService binds key pairs.
type CredentialService interface {
	BindCredentials(ctx context.Context, rawToken, publicKey, secretKey string) *service.AccountResponse
}

// SpotService manages spots.
type SpotService interface {
	ListSpots(ctx context.Context) ([]entity.Spot, error)
	ListUserSpots(ctx context.Context, creator string) ([]entity.Spot, error)
	PopularSpots(ctx context.Context) ([]entity.Spot, error)
	CreateOrUpdateSpot(ctx context.Context, rawToken string, in service.SpotInput) *service.SpotResponse
	DeleteSpots(ctx context.Context, rawToken string, ids []string, userID string) *service.AccountResponse
}

// FileService uploads files.
type FileService interface {
	UploadFile(ctx context.Context, rawToken string, in service.FileInput) *service.FileResponse
}

// Resolver is the root of both Query and Mutation.
type Resolver struct {
	accounts    AccountService
	credentials CredentialService
	spots       SpotService
	files       FileService
}

// NewResolver creates the root resolver.
func NewResolver(accounts AccountService, credentials CredentialService, spots SpotService, files FileService) (*Resolver, error) {
	if accounts == nil {
		return nil, fmt.Errorf("AccountService is required for Resolver")
	}
	if credentials == nil {
		return nil, fmt.Errorf("CredentialService is required for Resolver")
	}
	if spots == nil {
		return nil, fmt.Errorf("SpotService is required for Resolver")
	}
	if files == nil {
		return nil, fmt.Errorf("FileService is required for Resolver")
	}
	return &Resolver{accounts: accounts, credentials: credentials, spots: spots, files: files}, nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalID(id string) *graphql.ID {
	if id == "" {
		return nil
	}
	gid := graphql.ID(id)
	return &gid
}

func int32Ptr(n int) *int32 {
	v := int32(n)
	return &v
}

func formatTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func ids(in *[]*graphql.ID) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(*in))
	for _, id := range *in {
		if id != nil {
			out = append(out, string(*id))
		}
	}
	return out
}

func idList(in []string) *[]*graphql.ID {
	out := make([]*graphql.ID, len(in))
	for i := range in {
		id := graphql.ID(in[i])
		out[i] = &id
	}
	return &out
}
