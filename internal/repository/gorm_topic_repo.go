package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Specto0/specto/internal/domain"
	"github.com/Specto0/specto/pkg/log"
)

// GormTopicRepository implements TopicRepository using GORM.
type GormTopicRepository struct {
	db *gorm.DB
}

// NewGormTopicRepository creates a GORM-based topic repository.
func NewGormTopicRepository(db *gorm.DB) *GormTopicRepository {
	return &GormTopicRepository{db: db}
}

// Ensure finds or lazily creates the topic for a movie/series.
func (r *GormTopicRepository) Ensure(ctx context.Context, req *domain.EnsureTopicRequest) (*domain.Topic, bool, error) {
	l := log.Ctx(ctx)

	var model domain.TopicModel
	err := r.db.WithContext(ctx).
		Where("tmdb_id = ? AND media_type = ?", req.TmdbID, req.MediaType).
		First(&model).Error
	if err == nil {
		return model.ToDomain(), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error().Err(err).Msg("failed to look up topic")
		return nil, false, err
	}

	model = domain.TopicModel{
		Type:        domain.TopicTypeCustom,
		Title:       req.Title,
		Description: fmt.Sprintf("Discussion about %s", req.Title),
		TmdbID:      req.TmdbID,
		MediaType:   req.MediaType,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a creation race; the winner's row is the topic.
			var existing domain.TopicModel
			if ferr := r.db.WithContext(ctx).
				Where("tmdb_id = ? AND media_type = ?", req.TmdbID, req.MediaType).
				First(&existing).Error; ferr == nil {
				return existing.ToDomain(), false, nil
			}
		}
		l.Error().Err(err).Msg("failed to create topic")
		return nil, false, err
	}

	l.Debug().Uint(log.FieldTopicID, model.ID).Msg("topic created")
	return model.ToDomain(), true, nil
}

// GetByID retrieves a topic by ID.
func (r *GormTopicRepository) GetByID(ctx context.Context, id uint) (*domain.Topic, error) {
	var model domain.TopicModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		log.Ctx(ctx).Error().Err(err).Uint(log.FieldTopicID, id).Msg("failed to get topic")
		return nil, err
	}
	return model.ToDomain(), nil
}

// Exists reports whether a topic exists.
func (r *GormTopicRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.TopicModel{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Uint(log.FieldTopicID, id).Msg("failed to check topic existence")
		return false, err
	}
	return count > 0, nil
}

// ListRecent returns the most recently created topics.
func (r *GormTopicRepository) ListRecent(ctx context.Context, limit int) ([]domain.Topic, error) {
	if limit < 1 {
		limit = 20
	}

	var models []domain.TopicModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list topics")
		return nil, err
	}

	topics := make([]domain.Topic, len(models))
	for i, model := range models {
		topics[i] = *model.ToDomain()
	}
	return topics, nil
}
