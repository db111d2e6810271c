// Package encoder maps store ids to short codes and back.
//
// Codes are Hashids over the alphabet [a-zA-Z0-9]: deterministic for a given
// salt and minimum length, and reversible without touching any storage.
package encoder

import (
	"errors"
	"fmt"
	"strings"

	hashids "github.com/speps/go-hashids/v2"
)

// Alphabet is the full set of characters a code may contain.
const Alphabet = hashids.DefaultAlphabet

var (
	// ErrInvalidConfig is returned when the encoder cannot be built from the given parameters.
	ErrInvalidConfig = errors.New("encoder: invalid configuration")
	// ErrNegativeID is returned when asked to encode an id below zero.
	ErrNegativeID = errors.New("encoder: id must not be negative")
)

// Config holds the two fixed encoder parameters.
type Config struct {
	Salt      string
	MinLength int
}

// Hashids is a stateless, concurrency-safe id <-> code codec.
type Hashids struct {
	h         *hashids.HashID
	minLength int
}

// New builds an encoder for cfg. The same cfg always yields the same codes.
func New(cfg Config) (*Hashids, error) {
	if cfg.MinLength < 0 {
		return nil, fmt.Errorf("%w: min length %d", ErrInvalidConfig, cfg.MinLength)
	}

	data := hashids.NewData()
	data.Alphabet = Alphabet
	data.Salt = cfg.Salt
	data.MinLength = cfg.MinLength

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &Hashids{h: h, minLength: cfg.MinLength}, nil
}

// Encode returns the short code for id.
func (e *Hashids) Encode(id int64) (string, error) {
	if id < 0 {
		return "", ErrNegativeID
	}
	code, err := e.h.EncodeInt64([]int64{id})
	if err != nil {
		return "", fmt.Errorf("encoder: encode %d: %w", id, err)
	}
	return code, nil
}

// Decode returns the id behind code. It reports false for anything that is
// not a code this encoder could have produced: empty input, characters
// outside the alphabet, codes shorter than the minimum length, or codes
// carrying more than one number.
func (e *Hashids) Decode(code string) (id int64, ok bool) {
	if len(code) == 0 || len(code) < e.minLength || !inAlphabet(code) {
		return 0, false
	}

	defer func() {
		if r := recover(); r != nil {
			id, ok = 0, false
		}
	}()

	ids, err := e.h.DecodeInt64WithError(code)
	if err != nil || len(ids) != 1 || ids[0] < 0 {
		return 0, false
	}

	// The library already re-encodes to verify; this guards against
	// alternate spellings if that ever changes.
	canonical, err := e.h.EncodeInt64(ids)
	if err != nil || canonical != code {
		return 0, false
	}

	return ids[0], true
}

func inAlphabet(code string) bool {
	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}
