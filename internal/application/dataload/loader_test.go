package dataload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/alejandrodnm/stratlab/internal/application/fallback"
	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/simulate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	report  domain.DataHealthReport
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeChecker) DataHealth(_ context.Context, _ string, _ domain.DateRange) (domain.DataHealthReport, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	return f.report, f.err
}

func newLoader(c *fakeChecker) *Loader {
	exec := fallback.New(false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewLoader(exec, c, simulate.NewGenerator(simulate.NewSeededSource(3)))
}

func year() domain.DateRange {
	rg, _ := domain.ParseDateRange("2023-01-01", "2023-12-31")
	return rg
}

func TestLoad_Ready(t *testing.T) {
	l := newLoader(&fakeChecker{report: domain.DataHealthReport{Status: domain.HealthFair, TotalCandles: 240}})
	assert.Equal(t, domain.DataIdle, l.Status())

	report, err := l.Load(context.Background(), "INFY", year())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthFair, report.Status)
	assert.Equal(t, domain.DataReady, l.Status())

	last, ok := l.LastReport()
	require.True(t, ok)
	assert.Equal(t, 240, last.TotalCandles)
}

func TestLoad_Critical(t *testing.T) {
	l := newLoader(&fakeChecker{report: domain.DataHealthReport{Status: domain.HealthCritical, Gaps: 12}})

	report, err := l.Load(context.Background(), "INFY", year())
	assert.ErrorIs(t, err, domain.ErrDataNotReady)
	assert.Equal(t, 12, report.Gaps)
	assert.Equal(t, domain.DataError, l.Status())
}

func TestLoad_UnreachableSimulatesGood(t *testing.T) {
	l := newLoader(&fakeChecker{err: fmt.Errorf("%w: connection refused", domain.ErrRemoteUnreachable)})

	report, err := l.Load(context.Background(), "INFY", year())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthGood, report.Status)
	assert.Equal(t, "simulated", report.Note)
	assert.Equal(t, domain.DataReady, l.Status())
}

func TestLoad_Rejected(t *testing.T) {
	l := newLoader(&fakeChecker{err: fmt.Errorf("%w: unknown symbol", domain.ErrRemoteRejected)})

	_, err := l.Load(context.Background(), "NOPE", year())
	assert.ErrorIs(t, err, domain.ErrRemoteRejected)
	assert.Equal(t, domain.DataError, l.Status())
	assert.False(t, l.Fetching())
}

func TestLoad_RejectsOverlap(t *testing.T) {
	c := &fakeChecker{
		report:  domain.DataHealthReport{Status: domain.HealthGood},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	l := newLoader(c)

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), "INFY", year())
		done <- err
	}()
	<-c.entered
	assert.True(t, l.Fetching())
	assert.Equal(t, domain.DataLoading, l.Status())

	_, err := l.Load(context.Background(), "INFY", year())
	assert.ErrorIs(t, err, domain.ErrFetchInProgress)

	close(c.block)
	require.NoError(t, <-done)
	assert.False(t, l.Fetching())
	assert.Equal(t, domain.DataReady, l.Status())
}

func TestLoad_InvalidRange(t *testing.T) {
	l := newLoader(&fakeChecker{})
	_, err := l.Load(context.Background(), "INFY", domain.DateRange{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, domain.DataError, l.Status())
}

func TestLoad_InvalidRangeClearsPreviousReady(t *testing.T) {
	l := newLoader(&fakeChecker{report: domain.DataHealthReport{Status: domain.HealthGood, TotalCandles: 250}})
	_, err := l.Load(context.Background(), "INFY", year())
	require.NoError(t, err)
	require.Equal(t, domain.DataReady, l.Status())

	_, err = l.Load(context.Background(), "INFY", domain.DateRange{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, domain.DataError, l.Status())
	_, ok := l.LastReport()
	assert.False(t, ok)
}
