package models

import "time"

// RefreshToken is the persisted lineage record for one issued refresh token.
// TokenID is the jti claim embedded in the signed token; there is exactly one
// record per issued token and records are never reused. Rows are kept after
// revocation so replayed tokens can be detected; only the retention sweep
// removes long-expired revoked rows.
type RefreshToken struct {
	TokenID           string     `gorm:"primaryKey;size:36" json:"token_id"`
	UserID            string     `gorm:"index;size:36;not null" json:"user_id"`
	IssuedAt          time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt         time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt         *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	ReplacedByTokenID *string    `gorm:"size:36" json:"replaced_by_token_id,omitempty"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

// IsRevoked reports whether the record has been revoked. RevokedAt is set
// exactly once and never cleared.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired reports whether the record's advisory expiry has passed. The
// signed token enforces its own exp claim; this mirrors it for lineage checks.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.IsRevoked() && !now.Before(t.ExpiresAt)
}

// IsActive reports whether the record may still mint a successor: not
// revoked and not past expiry.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && now.Before(t.ExpiresAt)
}
