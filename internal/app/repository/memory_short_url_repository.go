package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sifan077/ShortURL/internal/app/model"
)

// MemoryShortURLRepository keeps records in process memory. Ids start at 1
// and are never reused.
type MemoryShortURLRepository struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]*model.ShortURL
	now     func() time.Time
}

// NewMemoryShortURLRepository returns an empty in-memory store.
func NewMemoryShortURLRepository() *MemoryShortURLRepository {
	return &MemoryShortURLRepository{
		records: make(map[int64]*model.ShortURL),
		now:     time.Now,
	}
}

func (r *MemoryShortURLRepository) Add(ctx context.Context, longURL string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.records[r.nextID] = &model.ShortURL{
		ID:        r.nextID,
		LongURL:   longURL,
		CreatedAt: r.now().UTC(),
	}
	return r.nextID, nil
}

func (r *MemoryShortURLRepository) GetByID(ctx context.Context, id int64) (*model.ReadShortURL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrShortURLNotFound
	}
	return &model.ReadShortURL{LongURL: record.LongURL}, nil
}

// Record returns a copy of the full record.
func (r *MemoryShortURLRepository) Record(_ context.Context, id int64) (*model.ShortURL, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrShortURLNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *MemoryShortURLRepository) Update(ctx context.Context, update model.UpdateShortURL) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[update.ID]
	if !ok {
		return ErrShortURLNotFound
	}
	record.LongURL = update.LongURL
	return nil
}

func (r *MemoryShortURLRepository) IncrementClickCount(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return ErrShortURLNotFound
	}
	record.ClickCount++
	return nil
}
