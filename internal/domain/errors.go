package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks a missing or invalid credential, DSN or universe. Fatal at startup.
	ErrConfig = errors.New("config: invalid configuration")
	// ErrProviderFetch marks a network, auth or provider-side failure while fetching data.
	ErrProviderFetch = errors.New("provider: fetch failed")
	// ErrMalformedRecord marks a provider record that cannot be normalized.
	ErrMalformedRecord = errors.New("normalize: malformed record")
	// ErrStorage marks a pool or statement failure in a sink.
	ErrStorage = errors.New("storage: write failed")
)

// MalformedRecordError names the field that failed normalization.
type MalformedRecordError struct {
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s: field %q %s", ErrMalformedRecord.Error(), e.Field, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// Malformed builds a MalformedRecordError.
func Malformed(field, reason string) error {
	return &MalformedRecordError{Field: field, Reason: reason}
}

// ConfigErrorf wraps a formatted message with ErrConfig.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// FetchError wraps err with ErrProviderFetch, keeping the original chain.
func FetchError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s %s: %w", ErrProviderFetch, provider, op, err)
}

// StorageError wraps err with ErrStorage, keeping the original chain.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Error classes reported in logs and run summaries.
const (
	ClassConfig          = "config"
	ClassProviderFetch   = "provider_fetch"
	ClassMalformedRecord = "malformed_record"
	ClassStorage         = "storage"
	ClassUnknown         = "unknown"
)

// Classify maps err onto the error taxonomy. A nil error yields "".
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return ClassConfig
	case errors.Is(err, ErrProviderFetch):
		return ClassProviderFetch
	case errors.Is(err, ErrMalformedRecord):
		return ClassMalformedRecord
	case errors.Is(err, ErrStorage):
		return ClassStorage
	default:
		return ClassUnknown
	}
}
