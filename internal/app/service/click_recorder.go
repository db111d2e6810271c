package service

import (
	"context"

	"github.com/sifan077/ShortURL/internal/app/repository"
)

// ClickRecorder accounts one successful redirect for a short url id.
type ClickRecorder interface {
	RecordClick(ctx context.Context, id int64) error
}

// RepositoryClickRecorder increments the click count in place.
type RepositoryClickRecorder struct {
	repo repository.ShortURLRepository
}

// NewRepositoryClickRecorder returns a recorder that calls
// IncrementClickCount on repo.
func NewRepositoryClickRecorder(repo repository.ShortURLRepository) *RepositoryClickRecorder {
	return &RepositoryClickRecorder{repo: repo}
}

func (r *RepositoryClickRecorder) RecordClick(ctx context.Context, id int64) error {
	return r.repo.IncrementClickCount(ctx, id)
}
