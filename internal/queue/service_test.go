package queue

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"service-queue/internal/flag"
	"service-queue/internal/models"
	"service-queue/internal/store"
	"service-queue/internal/store/sqlstore"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeStore struct {
	insertFn         func(ctx context.Context, entry models.Entry) (models.Entry, error)
	insertNumberedFn func(ctx context.Context, entry models.Entry, from, to time.Time) (models.Entry, error)
	findFn           func(ctx context.Context, filter store.Filter, sort store.Sort) ([]models.Entry, error)
	firstFn          func(ctx context.Context, filter store.Filter) (models.Entry, bool, error)
	updateWhereFn    func(ctx context.Context, filter store.Filter, changes store.Changes) (int64, error)
}

func (f fakeStore) Insert(ctx context.Context, entry models.Entry) (models.Entry, error) {
	if f.insertFn == nil {
		return entry, nil
	}
	return f.insertFn(ctx, entry)
}

func (f fakeStore) InsertNumbered(ctx context.Context, entry models.Entry, from, to time.Time) (models.Entry, error) {
	if f.insertNumberedFn == nil {
		return entry, nil
	}
	return f.insertNumberedFn(ctx, entry, from, to)
}

func (f fakeStore) Find(ctx context.Context, filter store.Filter, sort store.Sort) ([]models.Entry, error) {
	if f.findFn == nil {
		return nil, nil
	}
	return f.findFn(ctx, filter, sort)
}

func (f fakeStore) First(ctx context.Context, filter store.Filter) (models.Entry, bool, error) {
	if f.firstFn == nil {
		return models.Entry{}, false, nil
	}
	return f.firstFn(ctx, filter)
}

func (f fakeStore) UpdateWhere(ctx context.Context, filter store.Filter, changes store.Changes) (int64, error) {
	if f.updateWhereFn == nil {
		return 0, nil
	}
	return f.updateWhereFn(ctx, filter, changes)
}

type failingFlags struct {
	err error
}

func (f failingFlags) Raise(context.Context, string, flag.Severity) error { return f.err }

func (f failingFlags) Peek(context.Context, string) (flag.Severity, error) {
	return flag.NothingNew, f.err
}

func (f failingFlags) ReadAndClear(context.Context, string) (flag.Severity, error) {
	return flag.NothingNew, f.err
}

type testEnv struct {
	svc   *Service
	flags *flag.MemoryStore
	clock *testClock
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	ctx := context.Background()

	clock := newTestClock()
	st, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver: sqlstore.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "queue.db"),
		Clock:  clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	flags := flag.NewMemoryStore()
	svc, err := NewService(Config{
		Entries:        st,
		Flags:          flags,
		Scope:          "test",
		Clock:          clock.Now,
		Location:       time.UTC,
		PollInterval:   5 * time.Millisecond,
		DefaultTimeout: time.Second,
		MaxTimeout:     2 * time.Second,
	})
	require.NoError(t, err)
	return testEnv{svc: svc, flags: flags, clock: clock}
}

func (e testEnv) consumeFlag(t *testing.T) flag.Severity {
	t.Helper()
	v, err := e.flags.ReadAndClear(context.Background(), "test")
	require.NoError(t, err)
	return v
}

func TestNewServiceRequiresStores(t *testing.T) {
	_, err := NewService(Config{Flags: flag.NewMemoryStore()})
	assert.Error(t, err)

	_, err = NewService(Config{Entries: fakeStore{}})
	assert.Error(t, err)
}

func TestUUIDKeys(t *testing.T) {
	a, err := UUIDKeys{}.NewKey()
	require.NoError(t, err)
	b, err := UUIDKeys{}.NewKey()
	require.NoError(t, err)

	assert.Regexp(t, `^sqm-[0-9a-f-]{36}$`, a)
	assert.NotEqual(t, a, b)
}

func TestEffectiveTimeout(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, time.Second, env.svc.EffectiveTimeout(0))
	assert.Equal(t, time.Second, env.svc.EffectiveTimeout(-time.Second))
	assert.Equal(t, 1500*time.Millisecond, env.svc.EffectiveTimeout(1500*time.Millisecond))
	assert.Equal(t, 2*time.Second, env.svc.EffectiveTimeout(time.Hour))
}

func TestNewServiceDefaults(t *testing.T) {
	svc, err := NewService(Config{Entries: fakeStore{}, Flags: flag.NewMemoryStore()})
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, svc.pollInterval)
	assert.Equal(t, DefaultPollTimeout, svc.defaultTimeout)
	assert.Equal(t, DefaultPollTimeout, svc.maxTimeout)
	assert.Equal(t, "default", svc.scope)
	assert.NotNil(t, svc.logger)
}

func TestCreateNumbersUnnamedEntriesPerDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		entry, err := env.svc.Create(ctx, "")
		require.NoError(t, err)
		require.NotNil(t, entry.Number)
		assert.Equal(t, want, *entry.Number)
		assert.Nil(t, entry.ClientName)
		assert.Equal(t, models.StatusWaiting, entry.Status)
		assert.Nil(t, entry.Location)
		env.clock.Advance(time.Minute)
	}

	named, err := env.svc.Create(ctx, "  Maria  ")
	require.NoError(t, err)
	assert.Nil(t, named.Number)
	require.NotNil(t, named.ClientName)
	assert.Equal(t, "Maria", *named.ClientName)

	assert.Equal(t, flag.NewData, env.consumeFlag(t))

	env.clock.Advance(24 * time.Hour)
	next, err := env.svc.Create(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, next.Number)
	assert.Equal(t, 1, *next.Number)
}

func TestCreateConcurrentNumbersAreUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 10
	numbers := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := env.svc.Create(ctx, "")
			if assert.NoError(t, err) && assert.NotNil(t, entry.Number) {
				numbers <- *entry.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[int]bool{}
	for number := range numbers {
		assert.False(t, seen[number], "duplicate number %d", number)
		seen[number] = true
	}
	for want := 1; want <= n; want++ {
		assert.True(t, seen[want], "missing number %d", want)
	}
}

func TestCreatePropagatesStorageError(t *testing.T) {
	boom := errors.New("disk full")
	flags := flag.NewMemoryStore()
	svc, err := NewService(Config{
		Entries: fakeStore{
			insertNumberedFn: func(context.Context, models.Entry, time.Time, time.Time) (models.Entry, error) {
				return models.Entry{}, boom
			},
		},
		Flags: flags,
		Scope: "test",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "")
	assert.ErrorIs(t, err, boom)

	v, err := flags.Peek(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, flag.NothingNew, v)
}

func TestCreateSurvivesFlagFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc, err := NewService(Config{
		Entries: fakeStore{},
		Flags:   failingFlags{err: errors.New("redis down")},
		Logger:  zap.New(core),
	})
	require.NoError(t, err)

	entry, err := svc.Create(context.Background(), "Ana")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.Key)
	assert.Equal(t, 1, logs.FilterMessage("raise queue flag failed").Len())
}

func TestChangeStatusSummon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entry, err := env.svc.Create(ctx, "")
	require.NoError(t, err)
	env.consumeFlag(t)

	_, err = env.svc.ChangeStatus(ctx, entry.Key, "S", "   ")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, flag.NothingNew, env.consumeFlag(t))

	env.clock.Advance(5 * time.Minute)
	affected, err := env.svc.ChangeStatus(ctx, entry.Key, "summoned", " Guichê 3 ")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.Equal(t, flag.NewCall, env.consumeFlag(t))

	got, found, err := env.svc.Get(ctx, entry.Key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.StatusSummoned, got.Status)
	require.NotNil(t, got.Location)
	assert.Equal(t, "Guichê 3", *got.Location)
	require.NotNil(t, got.SummonedAt)
	assert.True(t, got.SummonedAt.Equal(env.clock.Now()))
	assert.Nil(t, got.ServedAt)
	assert.Nil(t, got.CanceledAt)
}

func TestChangeStatusRejectsLongLocation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entry, err := env.svc.Create(ctx, "")
	require.NoError(t, err)

	long := ""
	for i := 0; i < MaxLocationLength+1; i++ {
		long += "x"
	}
	_, err = env.svc.ChangeStatus(ctx, entry.Key, "S", long)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.ChangeStatus(ctx, entry.Key, "S", long[:MaxLocationLength])
	assert.NoError(t, err)
}

func TestChangeStatusTransitions(t *testing.T) {
	cases := []struct {
		name    string
		path    []string
		target  string
		wantErr error
		want    models.Status
	}{
		{name: "waiting to served", target: "D", want: models.StatusServed},
		{name: "waiting to canceled", target: "C", want: models.StatusCanceled},
		{name: "summoned to served", path: []string{"S"}, target: "D", want: models.StatusServed},
		{name: "summoned to canceled", path: []string{"S"}, target: "canceled", want: models.StatusCanceled},
		{name: "summoned again", path: []string{"S"}, target: "S", wantErr: ErrInvalidTransition, want: models.StatusSummoned},
		{name: "served is terminal", path: []string{"D"}, target: "C", wantErr: ErrAlreadyFinalized, want: models.StatusServed},
		{name: "canceled is terminal", path: []string{"C"}, target: "S", wantErr: ErrAlreadyFinalized, want: models.StatusCanceled},
		{name: "back to waiting", target: "W", wantErr: ErrInvalidStatus, want: models.StatusWaiting},
		{name: "unknown status", target: "X", wantErr: ErrInvalidStatus, want: models.StatusWaiting},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()

			entry, err := env.svc.Create(ctx, "")
			require.NoError(t, err)
			for _, step := range tt.path {
				env.clock.Advance(time.Minute)
				_, err := env.svc.ChangeStatus(ctx, entry.Key, step, "Sala 1")
				require.NoError(t, err)
			}
			before, _, err := env.svc.Get(ctx, entry.Key)
			require.NoError(t, err)
			env.consumeFlag(t)

			env.clock.Advance(time.Minute)
			affected, err := env.svc.ChangeStatus(ctx, entry.Key, tt.target, "Sala 2")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, affected)
				assert.Equal(t, flag.NothingNew, env.consumeFlag(t))

				after, _, err := env.svc.Get(ctx, entry.Key)
				require.NoError(t, err)
				assert.Equal(t, before, after)
				return
			}

			require.NoError(t, err)
			assert.EqualValues(t, 1, affected)
			assert.Equal(t, flag.NewData, env.consumeFlag(t))

			after, _, err := env.svc.Get(ctx, entry.Key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, after.Status)
			require.NotNil(t, after.LastCall())
			assert.True(t, after.LastCall().Equal(env.clock.Now()))
			assert.Equal(t, before.SummonedAt, after.SummonedAt)
		})
	}
}

func TestChangeStatusNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.ChangeStatus(context.Background(), "sqm-missing", "D", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangeStatusLostRaceIsNotAnError(t *testing.T) {
	flags := flag.NewMemoryStore()
	var gotFilter store.Filter
	svc, err := NewService(Config{
		Entries: fakeStore{
			firstFn: func(context.Context, store.Filter) (models.Entry, bool, error) {
				return models.Entry{ID: 7, Key: "sqm-7", Status: models.StatusWaiting}, true, nil
			},
			updateWhereFn: func(_ context.Context, filter store.Filter, _ store.Changes) (int64, error) {
				gotFilter = filter
				return 0, nil
			},
		},
		Flags: flags,
		Scope: "test",
	})
	require.NoError(t, err)

	affected, err := svc.ChangeStatus(context.Background(), "sqm-7", "D", "")
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.Equal(t, "sqm-7", gotFilter.Key)
	assert.Equal(t, []models.Status{models.StatusWaiting}, gotFilter.Statuses)

	v, err := flags.Peek(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, flag.NothingNew, v)
}

func TestChangeStatusPropagatesStorageError(t *testing.T) {
	boom := errors.New("connection reset")
	svc, err := NewService(Config{
		Entries: fakeStore{
			firstFn: func(context.Context, store.Filter) (models.Entry, bool, error) {
				return models.Entry{}, false, boom
			},
		},
		Flags: flag.NewMemoryStore(),
	})
	require.NoError(t, err)

	_, err = svc.ChangeStatus(context.Background(), "sqm-1", "S", "Sala 1")
	assert.ErrorIs(t, err, boom)
}

func TestGetBlankKey(t *testing.T) {
	env := newTestEnv(t)
	_, found, err := env.svc.Get(context.Background(), "  ")
	require.NoError(t, err)
	assert.False(t, found)
}
