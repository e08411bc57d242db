package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/pkg/log"
)

// GormLikeRepository implements LikeRepository using GORM.
type GormLikeRepository struct {
	db *gorm.DB
}

// NewGormLikeRepository creates a GORM-based like repository.
func NewGormLikeRepository(db *gorm.DB) *GormLikeRepository {
	return &GormLikeRepository{db: db}
}

// Toggle flips the (user, message) like. The composite unique index keeps
// concurrent toggles from double-counting: a create that loses the race
// falls through to the delete path.
func (r *GormLikeRepository) Toggle(ctx context.Context, userID, messageID uint) (bool, error) {
	l := log.Ctx(ctx)

	res := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&domain.LikeModel{})
	if res.Error != nil {
		l.Error().Err(res.Error).Uint(log.FieldMessageID, messageID).Msg("failed to delete like")
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	like := domain.LikeModel{UserID: userID, MessageID: messageID}
	if err := r.db.WithContext(ctx).Create(&like).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent toggle inserted first; treat this call as the
			// unlike half of the pair.
			del := r.db.WithContext(ctx).
				Where("user_id = ? AND message_id = ?", userID, messageID).
				Delete(&domain.LikeModel{})
			if del.Error != nil {
				return false, del.Error
			}
			return false, nil
		}
		l.Error().Err(err).Uint(log.FieldMessageID, messageID).Msg("failed to create like")
		return false, err
	}
	return true, nil
}

type likeCountRow struct {
	MessageID uint
	N         int64
}

// Counts returns like totals for the given messages in one grouped query.
func (r *GormLikeRepository) Counts(ctx context.Context, messageIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(messageIDs))
	if len(messageIDs) == 0 {
		return counts, nil
	}

	var rows []likeCountRow
	err := r.db.WithContext(ctx).
		Model(&domain.LikeModel{}).
		Select("message_id, COUNT(*) AS n").
		Where("message_id IN ?", messageIDs).
		Group("message_id").
		Scan(&rows).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to count likes")
		return nil, err
	}

	for _, row := range rows {
		counts[row.MessageID] = row.N
	}
	return counts, nil
}

// LikedBy returns which of the given messages the user has liked.
func (r *GormLikeRepository) LikedBy(ctx context.Context, userID uint, messageIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(messageIDs))
	if len(messageIDs) == 0 {
		return liked, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&domain.LikeModel{}).
		Where("user_id = ? AND message_id IN ?", userID, messageIDs).
		Pluck("message_id", &ids).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Uint(log.FieldUserID, userID).Msg("failed to load viewer likes")
		return nil, err
	}

	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// CountFor returns the authoritative like count for one message.
func (r *GormLikeRepository) CountFor(ctx context.Context, messageID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.LikeModel{}).
		Where("message_id = ?", messageID).
		Count(&count).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Uint(log.FieldMessageID, messageID).Msg("failed to count message likes")
		return 0, err
	}
	return count, nil
}
