package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
	"github.com/felixgeelhaar/coachbook/internal/booking/infrastructure/persistence"
)

func TestSQLiteOfferStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewSQLiteOfferStore(newConn(t), time.Minute)

	missing, err := store.Load(ctx, "nothing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	slots := []domain.AlternativeSlot{
		{Date: monday, Start: domain.MustParseClock("08:00"), End: domain.MustParseClock("09:00"), IsSameDay: true},
		{Date: monday.AddDays(1), Start: domain.MustParseClock("10:00"), End: domain.MustParseClock("11:00")},
	}
	require.NoError(t, store.Save(ctx, "k", slots))

	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, slots, got)

	t.Run("save replaces", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "k", slots[:1]))
		got, err := store.Load(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, slots[:1], got)
	})

	require.NoError(t, store.Delete(ctx, "k"))
	got, err = store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteOfferStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewSQLiteOfferStore(newConn(t), time.Millisecond)

	require.NoError(t, store.Save(ctx, "k", []domain.AlternativeSlot{
		{Date: monday, Start: domain.MustParseClock("08:00"), End: domain.MustParseClock("09:00"), IsSameDay: true},
	}))
	time.Sleep(5 * time.Millisecond)

	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}
