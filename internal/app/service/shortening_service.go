package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sifan077/ShortURL/internal/app/model"
	"github.com/sifan077/ShortURL/internal/app/repository"
	infraPrometheus "github.com/sifan077/ShortURL/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Failure messages returned to callers of CreateShortURL.
const (
	MessageInvalidURL      = "URL invalid"
	MessageCouldNotPersist = "could not persist"
)

// DefaultClickTimeout bounds a single detached click increment.
const DefaultClickTimeout = 5 * time.Second

// Encoder maps store ids to short codes and back.
type Encoder interface {
	Encode(id int64) (string, error)
	Decode(code string) (int64, bool)
}

// ShorteningService creates short urls and resolves short codes. It never
// returns an error to its caller: failures become a failed result or a nil
// response.
type ShorteningService struct {
	repo         repository.ShortURLRepository
	encoder      Encoder
	clicks       ClickRecorder
	clickTimeout time.Duration
	logger       *zap.Logger

	inflight sync.WaitGroup
}

// Option customises a ShorteningService.
type Option func(*ShorteningService)

// WithClickRecorder replaces the default recorder, which increments through
// the repository.
func WithClickRecorder(r ClickRecorder) Option {
	return func(s *ShorteningService) {
		s.clicks = r
	}
}

// WithClickTimeout bounds each detached click operation.
func WithClickTimeout(d time.Duration) Option {
	return func(s *ShorteningService) {
		if d > 0 {
			s.clickTimeout = d
		}
	}
}

// NewShorteningService returns a service over repo and enc.
func NewShorteningService(repo repository.ShortURLRepository, enc Encoder, logger *zap.Logger, opts ...Option) *ShorteningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ShorteningService{
		repo:         repo,
		encoder:      enc,
		clickTimeout: DefaultClickTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clicks == nil {
		s.clicks = NewRepositoryClickRecorder(repo)
	}
	return s
}

// CreateShortURL validates longURL, persists it and returns
// scheme://host/<code>.
func (s *ShorteningService) CreateShortURL(ctx context.Context, longURL, scheme, host string) (result model.CreateShortURLResult) {
	if err := ValidateLongURL(longURL); err != nil {
		infraPrometheus.ShortURLsCreated.WithLabelValues(infraPrometheus.ResultInvalid).Inc()
		s.logger.Info("rejected long url", zap.String("long_url", truncate(longURL)), zap.Error(err))
		return model.CreateFailed(MessageInvalidURL)
	}

	defer func() {
		if r := recover(); r != nil {
			infraPrometheus.ShortURLsCreated.WithLabelValues(infraPrometheus.ResultFailure).Inc()
			s.logger.Error("panic while creating short url",
				zap.String("long_url", longURL),
				zap.Any("panic", r),
			)
			result = model.CreateFailed(MessageCouldNotPersist)
		}
	}()

	id, err := s.repo.Add(ctx, longURL)
	if err != nil || id == 0 {
		infraPrometheus.ShortURLsCreated.WithLabelValues(infraPrometheus.ResultFailure).Inc()
		s.logger.Error("failed to persist short url",
			zap.String("long_url", longURL),
			zap.Int64("id", id),
			zap.Error(err),
		)
		return model.CreateFailed(MessageCouldNotPersist)
	}

	code, err := s.encoder.Encode(id)
	if err != nil {
		infraPrometheus.ShortURLsCreated.WithLabelValues(infraPrometheus.ResultFailure).Inc()
		s.logger.Error("failed to encode short url id", zap.Int64("id", id), zap.Error(err))
		return model.CreateFailed(MessageCouldNotPersist)
	}

	infraPrometheus.ShortURLsCreated.WithLabelValues(infraPrometheus.ResultSuccess).Inc()
	s.logger.Debug("short url created", zap.Int64("id", id), zap.String("code", code))
	return model.CreateSucceeded(scheme + "://" + host + "/" + code)
}

// HandleShortURLRequest resolves code. It returns nil when the code is
// malformed, unknown or cannot be looked up. A successful lookup dispatches
// a click increment that outlives the request.
func (s *ShorteningService) HandleShortURLRequest(ctx context.Context, code string, headers http.Header) (resp *model.RedirectResponse) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while resolving short code", zap.String("code", code), zap.Any("panic", r))
			resp = nil
		}
	}()

	id, ok := s.encoder.Decode(code)
	if !ok || id == 0 {
		infraPrometheus.Redirects.WithLabelValues(infraPrometheus.ResultNotFound).Inc()
		s.logger.Warn("could not decode short code", zap.String("code", code))
		return nil
	}

	view, err := s.repo.GetByID(ctx, id)
	if err != nil {
		infraPrometheus.Redirects.WithLabelValues(infraPrometheus.ResultNotFound).Inc()
		if !errors.Is(err, repository.ErrShortURLNotFound) {
			s.logger.Error("failed to load short url", zap.Int64("id", id), zap.Error(err))
		}
		return nil
	}

	s.dispatchClick(id)

	infraPrometheus.Redirects.WithLabelValues(infraPrometheus.ResultFound).Inc()
	return &model.RedirectResponse{
		LongURL:   view.LongURL,
		WantsJSON: WantsJSON(headers),
	}
}

// Wait blocks until every dispatched click operation has finished.
func (s *ShorteningService) Wait() {
	s.inflight.Wait()
}

func (s *ShorteningService) dispatchClick(id int64) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				infraPrometheus.ClickIncrements.WithLabelValues(infraPrometheus.ResultFailure).Inc()
				s.logger.Error("panic while recording click", zap.Int64("id", id), zap.Any("panic", r))
			}
		}()

		// Detached from the request so a client disconnect cannot drop the click.
		ctx, cancel := context.WithTimeout(context.Background(), s.clickTimeout)
		defer cancel()

		if err := s.clicks.RecordClick(ctx, id); err != nil {
			infraPrometheus.ClickIncrements.WithLabelValues(infraPrometheus.ResultFailure).Inc()
			s.logger.Error("failed to record click", zap.Int64("id", id), zap.Error(err))
			return
		}
		infraPrometheus.ClickIncrements.WithLabelValues(infraPrometheus.ResultSuccess).Inc()
	}()
}

var (
	longURLValidator = validator.New()
	longURLRule      = fmt.Sprintf("required,max=%d,url", model.MaxLongURLLength)
)

// ValidateLongURL accepts absolute URIs of 1 to 2048 characters. Hierarchical
// URLs must name a host, and a one-letter scheme is read as a drive letter.
func ValidateLongURL(longURL string) error {
	if err := longURLValidator.Var(longURL, longURLRule); err != nil {
		return err
	}
	u, err := url.Parse(longURL)
	if err != nil {
		return err
	}
	if len(u.Scheme) < 2 {
		return errors.New("long url scheme is a drive letter")
	}
	if u.Opaque == "" && u.Host == "" {
		return errors.New("long url has no host")
	}
	return nil
}

// WantsJSON guesses from request headers whether the client is a script or a
// browser page expecting JSON rather than a redirect.
func WantsJSON(headers http.Header) bool {
	if headers == nil {
		return false
	}
	if strings.Contains(strings.ToLower(headers.Get("Accept")), "application/json") {
		return true
	}
	if strings.EqualFold(headers.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	if strings.EqualFold(headers.Get("Sec-Fetch-Mode"), "cors") {
		return true
	}
	if strings.Contains(strings.ToLower(headers.Get("Referer")), "/swagger") {
		return true
	}
	_, hasOrigin := headers[http.CanonicalHeaderKey("Origin")]
	return hasOrigin
}

func truncate(s string) string {
	const max = 256
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
