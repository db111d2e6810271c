package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shorturl"

// Label values shared by the collectors below.
const (
	ResultHit         = "hit"
	ResultNegativeHit = "negative_hit"
	ResultMiss        = "miss"
	ResultSuccess     = "success"
	ResultInvalid     = "invalid"
	ResultFailure     = "failure"
	ResultFound       = "found"
	ResultNotFound    = "not_found"
)

var (
	// CacheLookups counts cache-aside lookups by outcome.
	CacheLookups = promauto.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Short url cache lookups by result.",
	}, []string{"result"})

	// ShortURLsCreated counts shorten requests by outcome.
	ShortURLsCreated = promauto.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "created_total",
		Help:      "Shorten requests by result.",
	}, []string{"result"})

	// Redirects counts short code lookups by outcome.
	Redirects = promauto.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "redirects_total",
		Help:      "Short code lookups by result.",
	}, []string{"result"})

	// ClickIncrements counts detached click accounting attempts by outcome.
	ClickIncrements = promauto.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "click_increments_total",
		Help:      "Click count increments by result.",
	}, []string{"result"})
)
