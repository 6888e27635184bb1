package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spotsapp/spots-api/internal/domain/entity"
	"github.com/spotsapp/spots-api/internal/domain/repository"
	"github.com/spotsapp/spots-api/pkg/auth"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type accountFixture struct {
	svc      *AccountService
	repo     *memoryAccounts
	mailer   *MockMailer
	notifier *EmailNotifier
	tokens   *auth.TokenService
	hasher   *auth.BcryptHasher
	clock    *fakeClock
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret", auth.DefaultTokenTTL)
	require.NoError(t, err)

	f := &accountFixture{
		repo:   newMemoryAccounts(),
		mailer: new(MockMailer),
		tokens: tokens,
		hasher: auth.NewBcryptHasher(bcrypt.MinCost),
		clock:  newFakeClock(),
	}
	f.notifier, err = NewEmailNotifier(f.mailer, time.Second, nil)
	require.NoError(t, err)
	f.svc, err = NewAccountService(f.repo, f.hasher, tokens, auth.NewCodeGenerator(f.clock.Now), f.notifier, 5, nil)
	require.NoError(t, err)
	return f
}

func validSignUp() SignUpInput {
	return SignUpInput{
		Username:  "ab_1",
		FirstName: "Jo hn",
		LastName:  "Doe",
		Email:     "a@b.com",
		Password:  "x",
	}
}

// signUp registers the default profile and returns the created account and token.
func (f *accountFixture) signUp(t *testing.T) (entity.Account, string) {
	t.Helper()
	f.mailer.On("SendVerificationEmail", mock.Anything, mock.Anything).Return(nil).Once()
	resp := f.svc.SignUp(context.Background(), validSignUp())
	require.Equal(t, CodeOK, resp.Code, resp.Message)
	f.notifier.Wait()
	return *f.repo.get(resp.User.ID), *resp.Token
}

func TestNewAccountService_RequiresDependencies(t *testing.T) {
	_, err := NewAccountService(nil, auth.NewBcryptHasher(0), nil, nil, nil, 0, nil)
	assert.Error(t, err)
}

func TestSignUp_RejectsShortUsername(t *testing.T) {
	f := newAccountFixture(t)
	in := validSignUp()
	in.Username = "ab"

	resp := f.svc.SignUp(context.Background(), in)

	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "username must be at least 3 characters long", resp.Message)
	assert.Nil(t, resp.User)
	assert.Nil(t, resp.Token)
	assert.Equal(t, 0, f.repo.count())
	f.mailer.AssertNotCalled(t, "SendVerificationEmail", mock.Anything, mock.Anything)
}

func TestSignUp_ValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SignUpInput)
		want   string
	}{
		{"username chars", func(in *SignUpInput) { in.Username = "ab-1" }, "username may only contain letters, numbers and underscores"},
		{"first name short", func(in *SignUpInput) { in.FirstName = "Jo" }, "first name must be at least 3 characters long"},
		{"first name digits", func(in *SignUpInput) { in.FirstName = "J0hn" }, "first name may only contain letters and spaces"},
		{"last name", func(in *SignUpInput) { in.LastName = "D0e" }, "last name may only contain letters and spaces"},
		{"email", func(in *SignUpInput) { in.Email = "not-an-email" }, "email must be a valid email address"},
		{"password", func(in *SignUpInput) { in.Password = "" }, "password is required"},
		{"username before everything", func(in *SignUpInput) { in.Username = ""; in.Email = "" }, "username is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccountFixture(t)
			in := validSignUp()
			tt.mutate(&in)

			resp := f.svc.SignUp(context.Background(), in)

			assert.Equal(t, CodeClientError, resp.Code)
			assert.Equal(t, tt.want, resp.Message)
			assert.Equal(t, 0, f.repo.count())
		})
	}
}

func TestSignUp_CreatesUnverifiedAccount(t *testing.T) {
	f := newAccountFixture(t)
	var mailed MailMessage
	f.mailer.On("SendVerificationEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { mailed = args.Get(1).(MailMessage) }).
		Return(nil).Once()

	resp := f.svc.SignUp(context.Background(), validSignUp())
	f.notifier.Wait()

	require.Equal(t, CodeOK, resp.Code, resp.Message)
	require.NotNil(t, resp.User)
	require.NotNil(t, resp.Token)

	stored := f.repo.get(resp.User.ID)
	assert.False(t, stored.EmailVerified)
	require.NotNil(t, stored.VerificationCode)
	assert.GreaterOrEqual(t, *stored.VerificationCode, auth.CodeMin)
	assert.LessOrEqual(t, *stored.VerificationCode, auth.CodeMax)
	require.NotNil(t, stored.VerificationCodeExpiry)
	assert.Equal(t, f.clock.Now().Add(5*time.Minute), *stored.VerificationCodeExpiry)
	assert.NotEqual(t, "x", stored.Password)
	assert.True(t, f.hasher.Verify("x", stored.Password))
	assert.False(t, stored.HasCredentials())

	claims, err := f.tokens.Verify(*resp.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, claims.ID)
	assert.Equal(t, "a@b.com", claims.Email)

	assert.Equal(t, MailMessage{Email: "a@b.com", Name: "Jo hn Doe", Code: *stored.VerificationCode}, mailed)
	f.mailer.AssertExpectations(t)
}

func TestSignUp_TrimsAndLowercases(t *testing.T) {
	f := newAccountFixture(t)
	f.mailer.On("SendVerificationEmail", mock.Anything, mock.Anything).Return(nil)

	in := validSignUp()
	in.Username = "  Ab_1 "
	in.FirstName = " Jane "
	in.Email = " A@B.com "

	resp := f.svc.SignUp(context.Background(), in)
	f.notifier.Wait()

	require.Equal(t, CodeOK, resp.Code, resp.Message)
	stored := f.repo.get(resp.User.ID)
	assert.Equal(t, "Ab_1", stored.Username)
	assert.Equal(t, "Jane", stored.FirstName)
	assert.Equal(t, "a@b.com", stored.Email)
}

func TestSignUp_DuplicateEmailAndUsername(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t)

	dupEmail := validSignUp()
	dupEmail.Username = "someone_else"
	resp := f.svc.SignUp(context.Background(), dupEmail)
	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "an account with this email already exists", resp.Message)

	dupUsername := validSignUp()
	dupUsername.Email = "other@b.com"
	resp = f.svc.SignUp(context.Background(), dupUsername)
	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "this username is already taken", resp.Message)

	both := validSignUp()
	resp = f.svc.SignUp(context.Background(), both)
	assert.Equal(t, "an account with this email already exists", resp.Message)

	assert.Equal(t, 1, f.repo.count())
}

func TestSignUp_MailFailureDoesNotFailOperation(t *testing.T) {
	f := newAccountFixture(t)
	f.mailer.On("SendVerificationEmail", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	resp := f.svc.SignUp(context.Background(), validSignUp())
	f.notifier.Wait()

	assert.Equal(t, CodeOK, resp.Code)
	assert.NotNil(t, resp.Token)
	f.mailer.AssertExpectations(t)
}

func TestSignUp_StorageFailureIsInternal(t *testing.T) {
	repo := new(MockAccountRepository)
	tokens, err := auth.NewTokenService("test-secret", 0)
	require.NoError(t, err)
	notifier, err := NewEmailNotifier(new(MockMailer), time.Second, nil)
	require.NoError(t, err)
	svc, err := NewAccountService(repo, auth.NewBcryptHasher(bcrypt.MinCost), tokens, nil, notifier, 0, nil)
	require.NoError(t, err)

	repo.On("FindOne", mock.Anything, repository.AccountFilter{Email: "a@b.com"}).
		Return(nil, errors.New("connection refused"))

	resp := svc.SignUp(context.Background(), validSignUp())

	assert.Equal(t, CodeServerError, resp.Code)
	assert.Equal(t, InternalErrorMessage, resp.Message)
	assert.Nil(t, resp.Token)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSignIn(t *testing.T) {
	f := newAccountFixture(t)
	account, _ := f.signUp(t)
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		resp := f.svc.SignIn(ctx, "a@b.com", "")
		assert.Equal(t, CodeClientError, resp.Code)
		assert.Equal(t, "email and password are required", resp.Message)
	})

	t.Run("unknown email", func(t *testing.T) {
		resp := f.svc.SignIn(ctx, "nobody@b.com", "x")
		assert.Equal(t, CodeClientError, resp.Code)
		assert.Equal(t, "no account found with this email", resp.Message)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := f.svc.SignIn(ctx, "a@b.com", "wrong")
		assert.Equal(t, CodeClientError, resp.Code)
		assert.Equal(t, "incorrect password", resp.Message)
		assert.Nil(t, resp.Token)
		assert.Nil(t, resp.User)
	})

	t.Run("success", func(t *testing.T) {
		resp := f.svc.SignIn(ctx, " A@B.COM ", "x")
		require.Equal(t, CodeOK, resp.Code, resp.Message)
		require.NotNil(t, resp.Token)
		assert.Equal(t, account.ID, resp.User.ID)

		claims, err := f.tokens.Verify(*resp.Token)
		require.NoError(t, err)
		assert.Equal(t, account.ID, claims.ID)
	})
}

func TestVerifyAccount(t *testing.T) {
	f := newAccountFixture(t)
	account, token := f.signUp(t)
	code := *account.VerificationCode
	ctx := context.Background()

	resp := f.svc.VerifyAccount(ctx, token, code+1)
	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "verification code is incorrect", resp.Message)

	resp = f.svc.VerifyAccount(ctx, "Bearer "+token, code)
	require.Equal(t, CodeOK, resp.Code, resp.Message)
	require.NotNil(t, resp.Token)
	assert.Equal(t, token, *resp.Token)
	assert.True(t, resp.User.EmailVerified)

	stored := f.repo.get(account.ID)
	assert.True(t, stored.EmailVerified)
	assert.Nil(t, stored.VerificationCode)
	assert.Nil(t, stored.VerificationCodeExpiry)

	resp = f.svc.VerifyAccount(ctx, token, code)
	assert.Equal(t, CodeClientError, resp.Code)
	assert.Nil(t, resp.User)
}

func TestVerifyAccount_ExpiredCode(t *testing.T) {
	f := newAccountFixture(t)
	account, token := f.signUp(t)
	code := *account.VerificationCode

	f.clock.Advance(5*time.Minute + time.Second)
	resp := f.svc.VerifyAccount(context.Background(), token, code)

	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "verification code has expired", resp.Message)
	stored := f.repo.get(account.ID)
	assert.False(t, stored.EmailVerified)
	assert.Nil(t, stored.VerificationCode)
}

func TestVerifyAccount_AcceptsCodeAtExpiryInstant(t *testing.T) {
	f := newAccountFixture(t)
	account, token := f.signUp(t)

	f.clock.Advance(5 * time.Minute)
	resp := f.svc.VerifyAccount(context.Background(), token, *account.VerificationCode)

	assert.Equal(t, CodeOK, resp.Code, resp.Message)
}

func TestVerifyAccount_TokenProblems(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	resp := f.svc.VerifyAccount(ctx, "", 12345)
	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "authentication token is missing", resp.Message)

	resp = f.svc.VerifyAccount(ctx, "not-a-jwt", 12345)
	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "authentication token is malformed", resp.Message)

	unknown, err := f.tokens.Issue("missing-id", "ghost@b.com")
	require.NoError(t, err)
	resp = f.svc.VerifyAccount(ctx, unknown, 12345)
	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "account not found", resp.Message)
}

func TestVerifyAccount_ReadsIdentityWithoutSignatureCheck(t *testing.T) {
	f := newAccountFixture(t)
	account, _ := f.signUp(t)

	foreign, err := auth.NewTokenService("another-secret", 0)
	require.NoError(t, err)
	token, err := foreign.Issue(account.ID, account.Email)
	require.NoError(t, err)

	resp := f.svc.VerifyAccount(context.Background(), token, *account.VerificationCode)
	assert.Equal(t, CodeOK, resp.Code, resp.Message)
}

func TestResendVerificationCode(t *testing.T) {
	f := newAccountFixture(t)
	account, token := f.signUp(t)
	f.clock.Advance(10 * time.Minute)

	var mailed MailMessage
	f.mailer.On("SendVerificationEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { mailed = args.Get(1).(MailMessage) }).
		Return(nil).Once()

	resp := f.svc.ResendVerificationCode(context.Background(), token)
	f.notifier.Wait()

	require.Equal(t, CodeOK, resp.Code, resp.Message)
	assert.Equal(t, token, *resp.Token)

	stored := f.repo.get(account.ID)
	require.NotNil(t, stored.VerificationCode)
	assert.Equal(t, *stored.VerificationCode, mailed.Code)
	assert.Equal(t, f.clock.Now().Add(5*time.Minute), *stored.VerificationCodeExpiry)

	verified := f.svc.VerifyAccount(context.Background(), token, mailed.Code)
	require.Equal(t, CodeOK, verified.Code, verified.Message)

	again := f.svc.ResendVerificationCode(context.Background(), token)
	assert.Equal(t, CodeClientError, again.Code)
	assert.Equal(t, "account is already verified", again.Message)
	f.mailer.AssertExpectations(t)
}

func TestRequestPasswordReset_UnknownEmailSendsNothing(t *testing.T) {
	f := newAccountFixture(t)

	resp := f.svc.RequestPasswordReset(context.Background(), "nobody@b.com")
	f.notifier.Wait()

	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "no account found with this email", resp.Message)
	assert.Nil(t, resp.User)
	f.mailer.AssertNotCalled(t, "SendResetEmail", mock.Anything, mock.Anything)
}

func TestRequestPasswordReset_MissingEmail(t *testing.T) {
	f := newAccountFixture(t)

	resp := f.svc.RequestPasswordReset(context.Background(), "   ")

	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "email is required", resp.Message)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAccountFixture(t)
	account, _ := f.signUp(t)
	ctx := context.Background()

	var mailed MailMessage
	f.mailer.On("SendResetEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { mailed = args.Get(1).(MailMessage) }).
		Return(nil).Once()

	req := f.svc.RequestPasswordReset(ctx, "a@b.com")
	f.notifier.Wait()

	require.Equal(t, CodeOK, req.Code, req.Message)
	assert.Nil(t, req.Token)
	assert.Equal(t, &entity.Account{ID: account.ID}, req.User)

	stored := f.repo.get(account.ID)
	require.NotNil(t, stored.PasswordResetCode)
	assert.Equal(t, *stored.PasswordResetCode, mailed.Code)
	assert.Equal(t, "a@b.com", mailed.Email)

	wrong := f.svc.ResetPassword(ctx, account.ID, mailed.Code+1, "n3w")
	assert.Equal(t, CodeClientError, wrong.Code)
	assert.Equal(t, "password reset code is incorrect", wrong.Message)

	resp := f.svc.ResetPassword(ctx, account.ID, mailed.Code, "n3w")
	require.Equal(t, CodeOK, resp.Code, resp.Message)
	require.NotNil(t, resp.Token)

	claims, err := f.tokens.Verify(*resp.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.ID)

	stored = f.repo.get(account.ID)
	assert.False(t, f.hasher.Verify("x", stored.Password))
	assert.True(t, f.hasher.Verify("n3w", stored.Password))
	assert.Nil(t, stored.PasswordResetCode)
	assert.Nil(t, stored.PasswordResetCodeExpiry)

	replay := f.svc.ResetPassword(ctx, account.ID, mailed.Code, "again")
	assert.Equal(t, CodeClientError, replay.Code)

	assert.Equal(t, CodeClientError, f.svc.SignIn(ctx, "a@b.com", "x").Code)
	assert.Equal(t, CodeOK, f.svc.SignIn(ctx, "a@b.com", "n3w").Code)
}

func TestResetPassword_ExpiredCode(t *testing.T) {
	f := newAccountFixture(t)
	account, _ := f.signUp(t)
	f.mailer.On("SendResetEmail", mock.Anything, mock.Anything).Return(nil).Once()

	f.svc.RequestPasswordReset(context.Background(), "a@b.com")
	f.notifier.Wait()
	code := *f.repo.get(account.ID).PasswordResetCode

	f.clock.Advance(6 * time.Minute)
	resp := f.svc.ResetPassword(context.Background(), account.ID, code, "n3w")

	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "password reset code has expired", resp.Message)
	stored := f.repo.get(account.ID)
	assert.Nil(t, stored.PasswordResetCode)
	assert.True(t, f.hasher.Verify("x", stored.Password))
}

func TestResetPassword_InputChecks(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	resp := f.svc.ResetPassword(ctx, "", 12345, "n3w")
	assert.Equal(t, "account id is required", resp.Message)

	resp = f.svc.ResetPassword(ctx, "acc-1", 12345, "")
	assert.Equal(t, "new password is required", resp.Message)

	resp = f.svc.ResetPassword(ctx, "acc-404", 12345, "n3w")
	assert.Equal(t, CodeClientError, resp.Code)
	assert.Equal(t, "account not found", resp.Message)
}

func TestListAccounts(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t)

	accounts, err := f.svc.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}
