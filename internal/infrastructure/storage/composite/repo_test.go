package composite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mdingest/internal/domain/model"
	"mdingest/internal/infrastructure/storage"
)

type mockPublisher struct {
	published []model.Quote
	err       error
	closed    int
}

func (m *mockPublisher) PublishQuote(ctx context.Context, q model.Quote) error {
	m.published = append(m.published, q)
	return m.err
}

func (m *mockPublisher) Close() error {
	m.closed++
	return nil
}

func TestCompositePublishesOnlyNewQuotes(t *testing.T) {
	pub := &mockPublisher{}
	repo := New(storage.NewMemorySink(), nil, pub)
	ctx := context.Background()
	q := model.Quote{Timestamp: time.Unix(1714573800, 0), Symbol: "AAPL", Last: model.Float(189.5)}

	ok, err := repo.InsertQuote(ctx, q)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.InsertQuote(ctx, q)
	require.NoError(t, err)
	require.False(t, ok)

	require.Len(t, pub.published, 1)
}

func TestCompositePublishFailureKeepsWrite(t *testing.T) {
	pub := &mockPublisher{err: errors.New("redis down")}
	repo := New(storage.NewMemorySink(), pub)

	ok, err := repo.InsertQuote(context.Background(), model.Quote{Timestamp: time.Unix(1, 0), Symbol: "AAPL", Bid: model.Float(1)})
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.Close())
	require.Equal(t, 1, pub.closed)
}
