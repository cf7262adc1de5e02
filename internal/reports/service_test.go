package reports

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	calls   atomic.Int64
	summary Summary
}

func (r *countingRepo) BuildSummary(ctx context.Context) (Summary, error) {
	r.calls.Add(1)
	return r.summary, nil
}

func testSummary() Summary {
	return Summary{
		TotalVendors:      3,
		ActiveVendors:     2,
		TotalProducts:     10,
		LowStockProducts:  1,
		TotalPOs:          4,
		POsByStatus:       map[string]int{"draft": 1, "received": 3},
		TotalInvoices:     2,
		InvoicesByPayment: map[string]int{"pending": 1, "paid": 1},
		OutstandingAmount: decimal.RequireFromString("1500.50"),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, repo RepositoryPort) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(testLogger(), repo, NewCache(client, time.Minute)), mr
}

func TestSummaryIsCached(t *testing.T) {
	repo := &countingRepo{summary: testSummary()}
	svc, _ := newTestService(t, repo)

	first, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, first.TotalVendors)
	require.True(t, first.OutstandingAmount.Equal(decimal.RequireFromString("1500.50")))

	second, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.EqualValues(t, 1, repo.calls.Load(), "second read must come from cache")
}

func TestSummaryRebuildsAfterTTL(t *testing.T) {
	repo := &countingRepo{summary: testSummary()}
	svc, mr := newTestService(t, repo)

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, repo.calls.Load())
}

func TestSummaryInvalidate(t *testing.T) {
	repo := &countingRepo{summary: testSummary()}
	svc, _ := newTestService(t, repo)

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.InvalidateSummary(context.Background()))

	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, repo.calls.Load())
}

func TestSummaryWithoutRedisFallsThrough(t *testing.T) {
	repo := &countingRepo{summary: testSummary()}
	svc := NewService(testLogger(), repo, NewCache(nil, time.Minute))

	for i := 0; i < 3; i++ {
		s, err := svc.Summary(context.Background())
		require.NoError(t, err)
		require.Equal(t, 10, s.TotalProducts)
	}
	require.EqualValues(t, 3, repo.calls.Load())
}

func TestSummaryConcurrentReadersShareOneBuild(t *testing.T) {
	repo := &countingRepo{summary: testSummary()}
	svc, _ := newTestService(t, repo)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Summary(context.Background())
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, repo.calls.Load())
}
