package model

import "time"

// Headline is a scored news item. Symbols is nil when no ticker was found.
type Headline struct {
	Timestamp time.Time
	Source    string
	Title     string
	Symbols   []Symbol
	Sentiment *float64
	URL       string
}
