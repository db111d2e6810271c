package repository

import (
	"context"
	"errors"

	"github.com/sifan077/ShortURL/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrShortURLNotFound signals that no record exists for the requested id.
	ErrShortURLNotFound = errors.New("short url not found")
)

// ShortURLRepository defines the data access contract for short urls.
//
// Add returns the id assigned by the store. GetByID returns
// ErrShortURLNotFound when there is no such record. IncrementClickCount must
// be atomic on the store side; it never loads the record first.
type ShortURLRepository interface {
	Add(ctx context.Context, longURL string) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.ReadShortURL, error)
	Update(ctx context.Context, update model.UpdateShortURL) error
	IncrementClickCount(ctx context.Context, id int64) error
}

// GormShortURLRepository stores records in Postgres through GORM.
type GormShortURLRepository struct {
	db *gorm.DB
}

// NewShortURLRepository returns a GORM-backed ShortURLRepository.
func NewShortURLRepository(db *gorm.DB) *GormShortURLRepository {
	return &GormShortURLRepository{db: db}
}

func (r *GormShortURLRepository) Add(ctx context.Context, longURL string) (int64, error) {
	record := model.ShortURL{LongURL: longURL}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

func (r *GormShortURLRepository) GetByID(ctx context.Context, id int64) (*model.ReadShortURL, error) {
	var view model.ReadShortURL
	err := r.db.WithContext(ctx).
		Model(&model.ShortURL{}).
		Select("long_url").
		Where("id = ?", id).
		Take(&view).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShortURLNotFound
		}
		return nil, err
	}
	return &view, nil
}

// Record loads the full row, click count included. The redirect path never
// needs it.
func (r *GormShortURLRepository) Record(ctx context.Context, id int64) (*model.ShortURL, error) {
	var record model.ShortURL
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShortURLNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *GormShortURLRepository) Update(ctx context.Context, update model.UpdateShortURL) error {
	result := r.db.WithContext(ctx).
		Model(&model.ShortURL{}).
		Where("id = ?", update.ID).
		Update("long_url", update.LongURL)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrShortURLNotFound
	}
	return nil
}

func (r *GormShortURLRepository) IncrementClickCount(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.ShortURL{}).
		Where("id = ?", id).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrShortURLNotFound
	}
	return nil
}
