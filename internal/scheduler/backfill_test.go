package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/service"
	"github.com/ndewijer/portfolio-performance/internal/testutil"
)

type staticLister []string

func (l staticLister) GetPortfolioIDs(context.Context) ([]string, error) { return l, nil }

type scriptedBackfiller struct {
	errs  map[string]error
	calls []string
}

func (b *scriptedBackfiller) BackfillPortfolio(_ context.Context, id string) (service.BackfillResult, error) {
	b.calls = append(b.calls, id)
	if err := b.errs[id]; err != nil {
		return service.BackfillResult{}, err
	}
	return service.BackfillResult{Dates: 1, Written: 1}, nil
}

func nopLogger() zerolog.Logger { return zerolog.New(io.Discard) }

func TestBackfillJob_Run(t *testing.T) {
	t.Run("continues past a failing portfolio", func(t *testing.T) {
		b := &scriptedBackfiller{errs: map[string]error{"b": errors.New("disk full")}}
		job := NewBackfillJob(staticLister{"a", "b", "c"}, b, time.Minute, nopLogger())

		err := job.Run()
		assert.EqualError(t, err, "backfill failed for 1 of 3 portfolios")
		assert.Equal(t, []string{"a", "b", "c"}, b.calls)
	})

	t.Run("stops at rate limit", func(t *testing.T) {
		b := &scriptedBackfiller{errs: map[string]error{"b": apperrors.ErrRateLimited}}
		job := NewBackfillJob(staticLister{"a", "b", "c"}, b, time.Minute, nopLogger())

		require.NoError(t, job.Run())
		assert.Equal(t, []string{"a", "b"}, b.calls)
	})
}

// TestBackfillJob_Integration runs the job over real storage.
//
// WHY: The scheduled job is the only thing that writes snapshots for days
// nobody has queried yet. A second run must reuse every stored day.
func TestBackfillJob_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	day := testutil.Day(t, "2024-01-02")
	provider := testutil.NewFakeProvider().
		WithValue(model.PriceKey("AAPL", model.MarketUS), day, "105")
	svc := testutil.NewTestServices(t, db, provider)

	p := testutil.NewPortfolio().WithCurrencies("USD", "USD").Build(t, db)
	testutil.NewTransaction(p.ID).WithDate(day).Build(t, db)

	job := NewBackfillJob(svc.Portfolios, svc.Snapshots, time.Minute, nopLogger())
	require.NoError(t, job.Run())
	testutil.AssertRowCount(t, db, "transaction_snapshot", 1)

	queries := provider.QueryCount()
	require.NoError(t, job.Run())
	assert.Equal(t, queries, provider.QueryCount())
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(nopLogger())
	job := NewBackfillJob(staticLister{}, &scriptedBackfiller{}, time.Minute, nopLogger())

	assert.Error(t, s.AddJob("every tuesday", job))
	require.NoError(t, s.AddJob("0 3 * * *", job))
	require.NoError(t, s.RunNow(job))

	s.Start()
	s.Stop()
}
