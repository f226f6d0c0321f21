package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

type stubBars struct{ key string }

func (s stubBars) Name() string { return "stub" }

func (s stubBars) FetchBars(ctx context.Context, symbol model.Symbol, interval string, r model.DateRange) ([]port.RawRecord, error) {
	return nil, nil
}

func TestRegistryBarSource(t *testing.T) {
	RegisterBarSource("stub", func(s Settings) (port.BarSource, error) {
		return stubBars{key: s.APIKey}, nil
	})

	src, err := NewBarSource("stub", Settings{APIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, "k", src.(stubBars).key)

	_, err = NewBarSource("nope", Settings{})
	require.ErrorIs(t, err, domain.ErrConfig)

	_, err = NewQuoteStream("nope", Settings{})
	require.ErrorIs(t, err, domain.ErrConfig)
}
