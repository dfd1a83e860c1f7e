package services

import (
	"time"

	"github.com/invoicemenecer/api/internal/models"
	"gorm.io/gorm"
)

// RefreshTokenStore persists refresh token lineage records. All mutations go
// through conditional updates so two concurrent rotations of the same token
// can never both succeed.
type RefreshTokenStore struct {
	db *gorm.DB
}

func NewRefreshTokenStore(db *gorm.DB) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

// WithTx returns a view of the store bound to the given transaction.
func (s *RefreshTokenStore) WithTx(tx *gorm.DB) *RefreshTokenStore {
	return &RefreshTokenStore{db: tx}
}

// Insert persists a new lineage record. TokenID is the primary key, so a
// duplicate insert fails rather than silently sharing an identifier.
func (s *RefreshTokenStore) Insert(record *models.RefreshToken) error {
	return s.db.Create(record).Error
}

// FindByTokenID returns the record for a jti, or nil when absent.
func (s *RefreshTokenStore) FindByTokenID(tokenID string) (*models.RefreshToken, error) {
	var record models.RefreshToken
	err := s.db.Where("token_id = ?", tokenID).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// RevokeAndLink marks a record revoked and points it at its successor in a
// single conditional update. It reports false when the record was already
// revoked, which is how the loser of a concurrent rotation finds out.
func (s *RefreshTokenStore) RevokeAndLink(tokenID string, at time.Time, replacedByTokenID string) (bool, error) {
	result := s.db.Model(&models.RefreshToken{}).
		Where("token_id = ? AND revoked_at IS NULL", tokenID).
		Updates(map[string]interface{}{
			"revoked_at":           at,
			"replaced_by_token_id": replacedByTokenID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Revoke marks a record revoked without linking a successor. Revoking an
// already-revoked record is a no-op, so the operation is idempotent.
func (s *RefreshTokenStore) Revoke(tokenID string, at time.Time) (bool, error) {
	result := s.db.Model(&models.RefreshToken{}).
		Where("token_id = ? AND revoked_at IS NULL", tokenID).
		Update("revoked_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RevokeAllForUser revokes every active record owned by a user. Used when an
// account is deleted.
func (s *RefreshTokenStore) RevokeAllForUser(userID string, at time.Time) error {
	return s.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}

// PurgeExpiredRevoked deletes revoked records whose expiry passed before the
// cutoff. Lineage needed for replay detection stays until then.
func (s *RefreshTokenStore) PurgeExpiredRevoked(cutoff time.Time) (int64, error) {
	result := s.db.
		Where("revoked_at IS NOT NULL AND expires_at < ?", cutoff).
		Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}
