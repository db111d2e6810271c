package model

import "time"

// MaxLongURLLength bounds the stored long_url column.
const MaxLongURLLength = 2048

// ShortURL is the persisted record behind every short code. The id is
// assigned by the store and the code is derived from it, never stored.
type ShortURL struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	LongURL    string    `gorm:"size:2048;not null"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	ClickCount int64     `gorm:"not null;default:0"`
}

func (ShortURL) TableName() string {
	return "short_urls"
}

// ReadShortURL is the projection served on the redirect path.
type ReadShortURL struct {
	LongURL string `json:"longUrl"`
}

// UpdateShortURL carries a full overwrite of the mutable fields of a record.
type UpdateShortURL struct {
	ID      int64
	LongURL string
}

// CreateShortURLResult is the outcome of a shorten request. Exactly one of
// ShortURL or Message is meaningful, depending on Success.
type CreateShortURLResult struct {
	Success  bool
	ShortURL string
	Message  string
}

func CreateSucceeded(shortURL string) CreateShortURLResult {
	return CreateShortURLResult{Success: true, ShortURL: shortURL}
}

func CreateFailed(message string) CreateShortURLResult {
	return CreateShortURLResult{Message: message}
}

// RedirectResponse tells the transport where to send the client and whether
// it asked for JSON instead of a redirect.
type RedirectResponse struct {
	LongURL   string
	WantsJSON bool
}
