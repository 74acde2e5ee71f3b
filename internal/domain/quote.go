package domain

import "time"

// Source identifies one of the two external price feeds.
type Source string

const (
	// SourceBase quotes the base asset in the stablecoin (e.g. ANIME/USDT).
	SourceBase Source = "base"
	// SourceFX quotes the stablecoin in the local currency (e.g. USDT/IDR).
	SourceFX Source = "fx"
)

// Valid reports whether s is one of the two known sources.
func (s Source) Valid() bool {
	return s == SourceBase || s == SourceFX
}

// Quote is the latest value reported by one feed.
type Quote struct {
	Source      Source    `json:"source"`
	Value       float64   `json:"value"`
	LastUpdated time.Time `json:"last_updated"`
}

// IsSet reports whether the feed has reported at least once.
// Only positive values are ever stored, so a zero value means never reported.
func (q Quote) IsSet() bool {
	return q.Value > 0
}
