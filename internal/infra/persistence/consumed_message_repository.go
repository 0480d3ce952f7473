package persistence

import (
	"context"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/domain/entity"
	"github.com/Potenup-community/backend-sub002/internal/domain/repository"
	"gorm.io/gorm/clause"
)

type ConsumedMessageRepository struct {
	db *DB
}

var _ repository.ConsumedMessageRepository = (*ConsumedMessageRepository)(nil)

func NewConsumedMessageRepository(db *DB) *ConsumedMessageRepository {
	return &ConsumedMessageRepository{db: db}
}

func (r *ConsumedMessageRepository) Record(ctx context.Context, msg entity.ConsumedMessage) (bool, error) {
	if msg.ConsumedAt.IsZero() {
		msg.ConsumedAt = time.Now().UTC()
	}
	res := r.db.Write(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&msg)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 0, nil
}
