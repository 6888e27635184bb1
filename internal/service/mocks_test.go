package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/spotsapp/spots-api/internal/domain/entity"
	"github.com/spotsapp/spots-api/internal/domain/repository"
	apperrors "github.com/spotsapp/spots-api/internal/pkg/errors"
)

// MockAccountRepository implements repository.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindOne(ctx context.Context, filter repository.AccountFilter) (*entity.Account, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) Insert(ctx context.Context, account *entity.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*entity.Account, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) BindCredentials(ctx context.Context, id, publicKey, secretKey string) (*entity.Account, error) {
	args := m.Called(ctx, id, publicKey, secretKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]entity.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Account), args.Error(1)
}

// MockMailer implements Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerificationEmail(ctx context.Context, msg MailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMailer) SendResetEmail(ctx context.Context, msg MailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockSpotRepository implements repository.SpotRepository.
type MockSpotRepository struct {
	mock.Mock
}

func (m *MockSpotRepository) Create(ctx context.Context, spot *entity.Spot) error {
	args := m.Called(ctx, spot)
	return args.Error(0)
}

func (m *MockSpotRepository) UpdateOwned(ctx context.Context, spot *entity.Spot) (*entity.Spot, error) {
	args := m.Called(ctx, spot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Spot), args.Error(1)
}

func (m *MockSpotRepository) List(ctx context.Context) ([]entity.Spot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Spot), args.Error(1)
}

func (m *MockSpotRepository) ListByCreator(ctx context.Context, creator string) ([]entity.Spot, error) {
	args := m.Called(ctx, creator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Spot), args.Error(1)
}

func (m *MockSpotRepository) ListPopular(ctx context.Context, limit int) ([]entity.Spot, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Spot), args.Error(1)
}

func (m *MockSpotRepository) FindOwned(ctx context.Context, ids []string, creator string) ([]entity.Spot, error) {
	args := m.Called(ctx, ids, creator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Spot), args.Error(1)
}

func (m *MockSpotRepository) DeleteOwned(ctx context.Context, ids []string, creator string) (int64, error) {
	args := m.Called(ctx, ids, creator)
	return args.Get(0).(int64), args.Error(1)
}

// MockCacheRepository implements repository.CacheRepository.
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	if fill, ok := args.Get(0).(func(interface{})); ok {
		fill(dest)
		return nil
	}
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockObjectStore implements repository.ObjectStore.
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStore) KeyFromURL(url string) (string, bool) {
	args := m.Called(url)
	return args.String(0), args.Bool(1)
}

// memoryAccounts is an in-memory AccountRepository for multi-step scenarios.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]*entity.Account
	nextID   int
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{accounts: make(map[string]*entity.Account)}
}

func (r *memoryAccounts) FindOne(ctx context.Context, filter repository.AccountFilter) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if matches(a, filter) {
			clone := *a
			return &clone, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func matches(a *entity.Account, f repository.AccountFilter) bool {
	checks := []struct {
		set, equal bool
	}{
		{f.ID != "", a.ID == f.ID},
		{f.Email != "", a.Email == f.Email},
		{f.Username != "", a.Username == f.Username},
	}
	anyMatch, allMatch := false, true
	for _, c := range checks {
		if !c.set {
			continue
		}
		anyMatch = anyMatch || c.equal
		allMatch = allMatch && c.equal
	}
	if f.MatchAny {
		return anyMatch
	}
	return allMatch
}

func (r *memoryAccounts) Insert(ctx context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == account.Email || a.Username == account.Username {
			return apperrors.New(apperrors.ErrConflict, "an account with this email or username already exists")
		}
	}
	r.nextID++
	if account.ID == "" {
		account.ID = fmt.Sprintf("acc-%d", r.nextID)
	}
	account.CreatedAt = time.Now()
	clone := *account
	r.accounts[account.ID] = &clone
	return nil
}

func (r *memoryAccounts) Update(ctx context.Context, id string, fields map[string]interface{}) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	for col, v := range fields {
		switch col {
		case entity.ColumnPassword:
			a.Password = v.(string)
		case entity.ColumnEmailVerified:
			a.EmailVerified = v.(bool)
		case entity.ColumnVerificationCode:
			a.VerificationCode = intPtr(v)
		case entity.ColumnVerificationCodeExpiry:
			a.VerificationCodeExpiry = timePtr(v)
		case entity.ColumnPasswordResetCode:
			a.PasswordResetCode = intPtr(v)
		case entity.ColumnPasswordResetCodeExpiry:
			a.PasswordResetCodeExpiry = timePtr(v)
		}
	}
	clone := *a
	return &clone, nil
}

func (r *memoryAccounts) BindCredentials(ctx context.Context, id, publicKey, secretKey string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if a.HasCredentials() {
		return nil, apperrors.New(apperrors.ErrConflict, "credentials have already been set for this account")
	}
	a.PublicKey, a.SecretKey = &publicKey, &secretKey
	clone := *a
	return &clone, nil
}

func (r *memoryAccounts) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (r *memoryAccounts) List(ctx context.Context) ([]entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	return out, nil
}

// get returns a copy of the stored account.
func (r *memoryAccounts) get(id string) *entity.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *r.accounts[id]
	return &clone
}

func (r *memoryAccounts) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

func intPtr(v interface{}) *int {
	if n, ok := v.(int); ok {
		return &n
	}
	return nil
}

func timePtr(v interface{}) *time.Time {
	if t, ok := v.(time.Time); ok {
		return &t
	}
	return nil
}
