package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

type GormSessions struct {
	DB *gorm.DB
}

func (r *GormSessions) Insert(ctx context.Context, s *models.Session) error {
	return translate(r.DB.WithContext(ctx).Create(s).Error)
}

func (r *GormSessions) FindByJTI(ctx context.Context, jti string) (*models.Session, error) {
	var s models.Session
	if err := r.DB.WithContext(ctx).Where("jti = ?", jti).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// Revoke is idempotent: revoking an unknown or already revoked session is not an error.
func (r *GormSessions) Revoke(ctx context.Context, jti string) error {
	return translate(r.DB.WithContext(ctx).Model(&models.Session{}).
		Where("jti = ?", jti).
		Update("revoked", true).Error)
}

func (r *GormSessions) RevokeUser(ctx context.Context, userID uint) error {
	return translate(r.DB.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error)
}

func (r *GormSessions) DeleteEnded(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("revoked = ? OR expires_at <= ?", true, now.UTC()).
		Delete(&models.Session{})
	return res.RowsAffected, translate(res.Error)
}
