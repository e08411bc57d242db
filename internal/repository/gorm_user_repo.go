package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/pkg/log"
)

// GormUserRepository implements UserRepository using GORM. The users
// table is owned by the account service; this repository only reads it.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// GetByID resolves a user identity.
func (r *GormUserRepository) GetByID(ctx context.Context, id uint) (*domain.UserMini, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		log.Ctx(ctx).Error().Err(err).Uint(log.FieldUserID, id).Msg("failed to get user")
		return nil, err
	}
	return model.ToDomain(), nil
}
