package handler

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/spotsapp/spots-api/internal/domain/entity"
	"github.com/spotsapp/spots-api/internal/service"
	"github.com/spotsapp/spots-api/pkg/auth"
)

type userInput struct {
	Image     *string
	Firstname string
	Lastname  string
	Username  string
	Email     string
	Password  string
}

type userSignInInput struct {
	Email    *string
	Password *string
}

type passwordResetRequestInput struct {
	Email *string
}

type resetPasswordInput struct {
	ID               graphql.ID
	PaswordResetCode int32
	Password         string
}

func (r *Resolver) GetUsers(ctx context.Context) (*[]*userResolver, error) {
	accounts, err := r.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*userResolver, len(accounts))
	for i := range accounts {
		out[i] = &userResolver{a: &accounts[i]}
	}
	return &out, nil
}

func (r *Resolver) SignUp(ctx context.Context, args struct{ Input userInput }) *userResponseResolver {
	in := args.Input
	return &userResponseResolver{r.accounts.SignUp(ctx, service.SignUpInput{
		Username:  in.Username,
		FirstName: in.Firstname,
		LastName:  in.Lastname,
		Email:     in.Email,
		Password:  in.Password,
		Image:     str(in.Image),
	})}
}

func (r *Resolver) SignIn(ctx context.Context, args struct{ Input userSignInInput }) *userResponseResolver {
	return &userResponseResolver{r.accounts.SignIn(ctx, str(args.Input.Email), str(args.Input.Password))}
}

func (r *Resolver) VerifyUserAccount(ctx context.Context, args struct{ VerificationCode int32 }) *userResponseResolver {
	return &userResponseResolver{r.accounts.VerifyAccount(ctx, auth.TokenFromContext(ctx), int(args.VerificationCode))}
}

func (r *Resolver) ResendVerificationCode(ctx context.Context) *userResponseResolver {
	return &userResponseResolver{r.accounts.ResendVerificationCode(ctx, auth.TokenFromContext(ctx))}
}

func (r *Resolver) ForgotPasswordRequest(ctx context.Context, args struct{ Input *passwordResetRequestInput }) *userResponseResolver {
	var email string
	if args.Input != nil {
		email = str(args.Input.Email)
	}
	return &userResponseResolver{r.accounts.RequestPasswordReset(ctx, email)}
}

func (r *Resolver) ResetPassword(ctx context.Context, args struct{ Input *resetPasswordInput }) *userResponseResolver {
	var in resetPasswordInput
	if args.Input != nil {
		in = *args.Input
	}
	return &userResponseResolver{r.accounts.ResetPassword(ctx, string(in.ID), int(in.PaswordResetCode), in.Password)}
}

func (r *Resolver) SetUserCredentials(ctx context.Context, args struct {
	PublicKey string
	SecretKey string
}) *userResponseResolver {
	return &userResponseResolver{r.credentials.BindCredentials(ctx, auth.TokenFromContext(ctx), args.PublicKey, args.SecretKey)}
}

type userResponseResolver struct {
	r *service.AccountResponse
}

func (u *userResponseResolver) User() *userResolver {
	if u.r.User == nil {
		return nil
	}
	return &userResolver{a: u.r.User}
}

func (u *userResponseResolver) Code() *int32     { return int32Ptr(u.r.Code) }
func (u *userResponseResolver) Token() *string   { return u.r.Token }
func (u *userResponseResolver) Message() *string { return optional(u.r.Message) }

// userResolver exposes the public profile of an account. Password digests,
// pending codes and the secret key never leave the service.
type userResolver struct {
	a *entity.Account
}

func (u *userResolver) ID() *graphql.ID   { return optionalID(u.a.ID) }
func (u *userResolver) Image() *string    { return optional(u.a.Image) }
func (u *userResolver) Firstname() string { return u.a.FirstName }
func (u *userResolver) Lastname() string  { return u.a.LastName }
func (u *userResolver) Username() string  { return u.a.Username }
func (u *userResolver) Email() string     { return u.a.Email }
func (u *userResolver) EmailVerified() *bool {
	v := u.a.EmailVerified
	return &v
}
func (u *userResolver) VerificationCodeExpiry() *string {
	return formatTime(u.a.VerificationCodeExpiry)
}
func (u *userResolver) PasswordResetCodeExpiry() *string {
	return formatTime(u.a.PasswordResetCodeExpiry)
}
func (u *userResolver) PublicKey() *string { return u.a.PublicKey }
func (u *userResolver) CreatedAt() *string { return formatTime(&u.a.CreatedAt) }
