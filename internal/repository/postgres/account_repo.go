package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/spotsapp/spots-api/internal/domain/entity"
	"github.com/spotsapp/spots-api/internal/domain/repository"
	apperrors "github.com/spotsapp/spots-api/internal/pkg/errors"
)

// AccountRepo implements repository.AccountRepository.
type AccountRepo struct {
	db *gorm.DB
}

// NewAccountRepo creates an account repository.
func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// FindOne returns the first account matching filter.
func (r *AccountRepo) FindOne(ctx context.Context, filter repository.AccountFilter) (*entity.Account, error) {
	if filter.IsEmpty() {
		return nil, fmt.Errorf("account filter must set at least one field")
	}

	var (
		clauses []string
		args    []interface{}
	)
	if filter.ID != "" {
		clauses = append(clauses, "id = ?")
		args = append(args, filter.ID)
	}
	if filter.Email != "" {
		clauses = append(clauses, "email = ?")
		args = append(args, filter.Email)
	}
	if filter.Username != "" {
		clauses = append(clauses, "username = ?")
		args = append(args, filter.Username)
	}
	joiner := " AND "
	if filter.MatchAny {
		joiner = " OR "
	}

	var account entity.Account
	err := r.db.WithContext(ctx).
		Where(strings.Join(clauses, joiner), args...).
		Order("created_at").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// Insert creates a new account. The unique indexes on email and username back up
// the existence check done by the caller.
func (r *AccountRepo) Insert(ctx context.Context, account *entity.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.New(apperrors.ErrConflict, "an account with this email or username already exists")
		}
		return err
	}
	return nil
}

// Update applies a partial update and returns the stored account.
func (r *AccountRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (*entity.Account, error) {
	if len(fields) == 0 {
		return r.FindOne(ctx, repository.AccountFilter{ID: id})
	}

	result := r.db.WithContext(ctx).
		Model(&entity.Account{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return nil, apperrors.New(apperrors.ErrConflict, "an account with this email or username already exists")
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.FindOne(ctx, repository.AccountFilter{ID: id})
}

// BindCredentials writes both keys in one conditional update so a second binding,
// concurrent or not, never overwrites the first.
func (r *AccountRepo) BindCredentials(ctx context.Context, id, publicKey, secretKey string) (*entity.Account, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Account{}).
		Where("id = ?", id).
		Where("(public_key IS NULL OR public_key = '') AND (secret_key IS NULL OR secret_key = '')").
		Updates(map[string]interface{}{
			entity.ColumnPublicKey: publicKey,
			entity.ColumnSecretKey: secretKey,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindOne(ctx, repository.AccountFilter{ID: id}); err != nil {
			return nil, err
		}
		return nil, apperrors.New(apperrors.ErrConflict, "credentials have already been set for this account")
	}
	return r.FindOne(ctx, repository.AccountFilter{ID: id})
}

// ClearExpiredCodes nulls expired verification and reset codes.
func (r *AccountRepo) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	var cleared int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.Account{}).
			Where("verification_code_expiry IS NOT NULL AND verification_code_expiry < ?", now).
			Updates(map[string]interface{}{
				entity.ColumnVerificationCode:       nil,
				entity.ColumnVerificationCodeExpiry: nil,
			})
		if result.Error != nil {
			return result.Error
		}
		cleared += result.RowsAffected

		result = tx.Model(&entity.Account{}).
			Where("password_reset_code_expiry IS NOT NULL AND password_reset_code_expiry < ?", now).
			Updates(map[string]interface{}{
				entity.ColumnPasswordResetCode:       nil,
				entity.ColumnPasswordResetCodeExpiry: nil,
			})
		if result.Error != nil {
			return result.Error
		}
		cleared += result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}

// List returns all accounts, oldest first.
func (r *AccountRepo) List(ctx context.Context) ([]entity.Account, error) {
	var accounts []entity.Account
	err := r.db.WithContext(ctx).Order("created_at").Find(&accounts).Error
	return accounts, err
}
