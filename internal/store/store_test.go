package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-ledger/internal/parking"
)

var t0 = time.Date(2024, 5, 10, 8, 0, 0, 123456789, time.UTC)

// populatedState drives a real service so the snapshot has every shape:
// occupied lots, exited paid records and active records.
func populatedState(t *testing.T) parking.SystemState {
	t.Helper()
	ctx := context.Background()
	svc := parking.NewService(nil, parking.NewRateTable(2.5, 1))

	_, err := svc.CreateLots(ctx, 2, 1)
	require.NoError(t, err)
	_, err = svc.Park(ctx, parking.Car, "ABC123", t0)
	require.NoError(t, err)
	res, err := svc.Park(ctx, parking.Motorcycle, "MC1", t0)
	require.NoError(t, err)
	_, err = svc.Remove(ctx, "MC1", t0.Add(90*time.Minute))
	require.NoError(t, err)
	require.NoError(t, svc.MarkPaid(ctx, res.HistoryID))

	return svc.GetState()
}

func assertSameState(t *testing.T, want parking.SystemState, got *parking.SystemState) {
	t.Helper()
	require.NotNil(t, got)

	assert.True(t, want.Revenue.Equal(got.Revenue), "revenue %s != %s", want.Revenue, got.Revenue)
	assert.True(t, want.Rates.CarHourlyRate.Equal(got.Rates.CarHourlyRate))
	assert.True(t, want.Rates.MotorcycleHourlyRate.Equal(got.Rates.MotorcycleHourlyRate))

	require.Len(t, got.CarLots, len(want.CarLots))
	require.Len(t, got.MotorcycleLots, len(want.MotorcycleLots))
	assert.True(t, got.CarLots[0].Occupied)
	assert.Equal(t, "ABC123", got.CarLots[0].Vehicle.LicensePlate)
	assert.True(t, got.CarLots[0].Vehicle.EntryTime.Equal(t0), "timestamps must round-trip")

	require.Len(t, got.History, len(want.History))
	for i := range want.History {
		w, g := want.History[i], got.History[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.IsPaid, g.IsPaid)
		assert.True(t, w.EntryTime.Equal(g.EntryTime))
		if w.ExitTime == nil {
			assert.Nil(t, g.ExitTime)
			assert.Nil(t, g.Fee)
			continue
		}
		require.NotNil(t, g.ExitTime)
		assert.True(t, w.ExitTime.Equal(*g.ExitTime))
		require.NotNil(t, g.Fee)
		assert.True(t, w.Fee.Equal(*g.Fee))
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded, "empty store is not an error")

	want := populatedState(t)
	require.NoError(t, s.Save(ctx, &want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assertSameState(t, want, got)
	assert.Equal(t, 1, s.Saves())
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "parking.db")

	s, err := OpenSQLite(ctx, path, "parkingState")
	require.NoError(t, err)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	want := populatedState(t)
	require.NoError(t, s.Save(ctx, &want))

	want.Revenue = want.Revenue.Add(decimal.NewFromInt(10))
	require.NoError(t, s.Save(ctx, &want), "second save upserts")
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(ctx, path, "parkingState")
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assertSameState(t, want, got)

	other, err := OpenSQLite(ctx, path, "otherKey")
	require.NoError(t, err)
	defer other.Close()
	missing, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestServiceRestoresFromSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "parking.db")

	s, err := OpenSQLite(ctx, path, "parkingState")
	require.NoError(t, err)
	defer s.Close()

	svc := parking.NewService(s, parking.DefaultRates())
	_, err = svc.CreateLots(ctx, 1, 1)
	require.NoError(t, err)
	_, err = svc.Park(ctx, parking.Car, "ABC123", t0)
	require.NoError(t, err)

	restarted := parking.NewService(s, parking.DefaultRates())
	require.True(t, restarted.Restore(ctx))

	res, err := restarted.Remove(ctx, "ABC123", t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, res.Fee.Equal(decimal.NewFromInt(2)))
	assert.NotEmpty(t, res.HistoryID)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	s, err := OpenPostgres(ctx, url, "parking-test-"+time.Now().Format("150405.000000"))
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	want := populatedState(t)
	require.NoError(t, s.Save(ctx, &want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assertSameState(t, want, got)
}

type flakyStore struct {
	mu       sync.Mutex
	failures int
	calls    int
	saved    []*parking.SystemState
}

func (f *flakyStore) Load(ctx context.Context) (*parking.SystemState, error) {
	return nil, nil
}

func (f *flakyStore) Save(ctx context.Context, state *parking.SystemState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient")
	}
	f.saved = append(f.saved, state)
	return nil
}

func TestAsyncWriterRetriesAndFlushesOnClose(t *testing.T) {
	next := &flakyStore{failures: 2}
	w := NewAsyncWriter(next, WithRetry(5, time.Millisecond, 5*time.Millisecond))

	state := populatedState(t)
	require.NoError(t, w.Save(context.Background(), &state))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Close(ctx))

	next.mu.Lock()
	defer next.mu.Unlock()
	assert.Equal(t, 3, next.calls)
	require.Len(t, next.saved, 1)
	assert.Same(t, &state, next.saved[0])

	assert.ErrorIs(t, w.Save(context.Background(), &state), ErrWriterClosed)
}

func TestAsyncWriterGivesUp(t *testing.T) {
	next := &flakyStore{failures: 100}
	w := NewAsyncWriter(next, WithRetry(3, time.Millisecond, time.Millisecond))

	state := populatedState(t)
	require.NoError(t, w.Save(context.Background(), &state))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Close(ctx))

	next.mu.Lock()
	defer next.mu.Unlock()
	assert.Equal(t, 3, next.calls)
	assert.Empty(t, next.saved)
}

func TestAsyncWriterLastStateWins(t *testing.T) {
	next := &flakyStore{}
	w := NewAsyncWriter(next)

	ctx := context.Background()
	var last *parking.SystemState
	for i := 0; i < 50; i++ {
		s := parking.SystemState{Revenue: decimal.NewFromInt(int64(i))}
		last = &s
		require.NoError(t, w.Save(ctx, last))
	}

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, w.Close(closeCtx))

	next.mu.Lock()
	defer next.mu.Unlock()
	require.NotEmpty(t, next.saved)
	assert.LessOrEqual(t, len(next.saved), 50)
	assert.Same(t, last, next.saved[len(next.saved)-1])
}

func TestAsyncWriterDelegatesLoad(t *testing.T) {
	mem := NewMemoryStore()
	want := populatedState(t)
	require.NoError(t, mem.Save(context.Background(), &want))

	w := NewAsyncWriter(mem)
	defer w.Close(context.Background())

	got, err := w.Load(context.Background())
	require.NoError(t, err)
	assertSameState(t, want, got)
}
