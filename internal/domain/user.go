package domain

import (
	"strings"
	"time"
)

// User owns authentication material and verification/lock state. It is
// never hard-deleted while referenced; soft-delete propagates to dependents
// via the event backbone (see internal/events).
type User struct {
	ID             UserID    `gorm:"type:uuid;primaryKey"`
	Username       string    `gorm:"uniqueIndex;size:64;not null"`
	Email          string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash   string    `gorm:"size:255;not null"`
	TOTPSecret     string    `gorm:"size:128"`
	Verified       bool      `gorm:"default:false"`
	Locked         bool      `gorm:"default:false"`
	AliasAccounts  int       `gorm:"default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time `gorm:"index"`
}

func (User) TableName() string { return "users" }

// MaxAliasAccounts is invariant I4's configured cap.
const MaxAliasAccounts = 5

// CanCreateAlias reports whether this user may register another alias
// account without violating I4.
func (u *User) CanCreateAlias() bool {
	return u.AliasAccounts < MaxAliasAccounts
}

// IsActive reports whether the user may authenticate and act.
func (u *User) IsActive() bool {
	return !u.Locked && u.DeletedAt == nil
}

// BackupCode is a single hashed 2FA recovery code. IsLegacyHash tells a
// legacy SHA-256 hash apart from an Argon2 hash by the CodeHash prefix.
type BackupCode struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	UserID   UserID `gorm:"type:uuid;index;not null"`
	CodeHash string `gorm:"size:255;not null"`
	IsUsed   bool   `gorm:"default:false"`
	CreatedAt time.Time
	UsedAt    *time.Time
}

func (BackupCode) TableName() string { return "user_backup_codes" }

// IsLegacyHash reports whether CodeHash is a pre-migration SHA-256 hex
// digest rather than an Argon2 PHC string. Legacy hashes can never be
// verified again and must force regeneration instead of being checked.
func (b *BackupCode) IsLegacyHash() bool {
	return !strings.HasPrefix(b.CodeHash, "$argon2")
}
