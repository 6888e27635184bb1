package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is a registered user together with its verification, reset and
// credential-binding state.
type Account struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	Image     string `gorm:"size:512;not null;default:''" json:"image"`
	FirstName string `gorm:"size:100;not null" json:"firstname"`
	LastName  string `gorm:"size:100;not null" json:"lastname"`
	Username  string `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Email     string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password  string `gorm:"size:100;not null" json:"-"`

	EmailVerified          bool       `gorm:"not null;default:false" json:"emailVerified"`
	VerificationCode       *int       `json:"-"`
	VerificationCodeExpiry *time.Time `json:"verificationCodeExpiry,omitempty"`

	PasswordResetCode       *int       `json:"-"`
	PasswordResetCodeExpiry *time.Time `json:"passwordResetCodeExpiry,omitempty"`

	PublicKey *string `gorm:"size:512" json:"publicKey,omitempty"`
	SecretKey *string `gorm:"size:512" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName pins the table name for gorm.
func (Account) TableName() string {
	return "accounts"
}

// BeforeCreate assigns an id when the caller did not.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// FullName is the greeting used in outgoing mail.
func (a *Account) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// HasCredentials reports whether either half of the key pair is set.
func (a *Account) HasCredentials() bool {
	return (a.PublicKey != nil && *a.PublicKey != "") || (a.SecretKey != nil && *a.SecretKey != "")
}

// VerificationCodeMatches is true only when a code is pending and equals code.
func (a *Account) VerificationCodeMatches(code int) bool {
	return a.VerificationCode != nil && *a.VerificationCode == code
}

// ResetCodeMatches is true only when a reset code is pending and equals code.
func (a *Account) ResetCodeMatches(code int) bool {
	return a.PasswordResetCode != nil && *a.PasswordResetCode == code
}

// Column names used by partial updates.
const (
	ColumnPassword                = "password"
	ColumnEmailVerified           = "email_verified"
	ColumnVerificationCode        = "verification_code"
	ColumnVerificationCodeExpiry  = "verification_code_expiry"
	ColumnPasswordResetCode       = "password_reset_code"
	ColumnPasswordResetCodeExpiry = "password_reset_code_expiry"
	ColumnPublicKey               = "public_key"
	ColumnSecretKey               = "secret_key"
)
