package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceLocker(t *testing.T) {
	t.Run("serializes one resource", func(t *testing.T) {
		locker := NewResourceLocker()
		resource := uuid.New()

		var inside, maxInside int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := locker.Lock(context.Background(), resource)
				if !assert.NoError(t, err) {
					return
				}
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxInside)
		assert.Empty(t, locker.locks)
	})

	t.Run("different resources do not block", func(t *testing.T) {
		locker := NewResourceLocker()
		unlockA, err := locker.Lock(context.Background(), uuid.New())
		require.NoError(t, err)
		defer unlockA()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		unlockB, err := locker.Lock(ctx, uuid.New())
		require.NoError(t, err)
		unlockB()
	})

	t.Run("honours context while waiting", func(t *testing.T) {
		locker := NewResourceLocker()
		resource := uuid.New()
		unlock, err := locker.Lock(context.Background(), resource)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(ctx, resource)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()
		unlock()
		assert.Empty(t, locker.locks)
	})
}

func TestOfferStore(t *testing.T) {
	ctx := context.Background()
	slots := []domain.AlternativeSlot{{
		Date:      domain.NewDate(2025, time.March, 10),
		Start:     domain.MustParseClock("12:00"),
		End:       domain.MustParseClock("13:00"),
		IsSameDay: true,
	}}

	t.Run("save load delete", func(t *testing.T) {
		store := NewOfferStore(time.Minute)
		require.NoError(t, store.Save(ctx, "k", slots))

		got, err := store.Load(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, slots, got)

		require.NoError(t, store.Delete(ctx, "k"))
		got, err = store.Load(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("latest offer replaces earlier one", func(t *testing.T) {
		store := NewOfferStore(time.Minute)
		require.NoError(t, store.Save(ctx, "k", slots))
		require.NoError(t, store.Save(ctx, "k", nil))

		got, err := store.Load(ctx, "k")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("entries expire", func(t *testing.T) {
		now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
		store := NewOfferStore(time.Minute)
		store.now = func() time.Time { return now }
		require.NoError(t, store.Save(ctx, "k", slots))

		now = now.Add(2 * time.Minute)
		got, err := store.Load(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
