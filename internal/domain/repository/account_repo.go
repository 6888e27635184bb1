package repository

import (
	"context"
	"time"

	"github.com/spotsapp/spots-api/internal/domain/entity"
)

// AccountFilter selects a single account by exact match on the non-empty fields.
// With MatchAny the set fields are alternatives ($or) instead of all being required.
type AccountFilter struct {
	ID       string
	Email    string
	Username string
	MatchAny bool
}

// IsEmpty reports whether no field was set.
func (f AccountFilter) IsEmpty() bool {
	return f.ID == "" && f.Email == "" && f.Username == ""
}

// AccountRepository is the storage contract of the account state machine.
type AccountRepository interface {
	// FindOne returns apperrors.ErrNotFound when nothing matches.
	FindOne(ctx context.Context, filter AccountFilter) (*entity.Account, error)
	// Insert returns an apperrors.ErrConflict when email or username is taken.
	Insert(ctx context.Context, account *entity.Account) error
	// Update merges fields into the account with id and returns the stored row.
	Update(ctx context.Context, id string, fields map[string]interface{}) (*entity.Account, error)
	// BindCredentials sets both keys only while neither is set; otherwise ErrConflict.
	BindCredentials(ctx context.Context, id, publicKey, secretKey string) (*entity.Account, error)
	// ClearExpiredCodes nulls every verification and reset code that expired before now.
	ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context) ([]entity.Account, error)
}
