package postgres_test

import (
	"context"
	"testing"
	"time"

	"dexcollector/internal/analytics"
	"dexcollector/pkg/storage/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestTokenDayRoundTrip
func TestTokenDayRoundTrip(t *testing.T) {
	p := analytics.DayPoint{
		Date:              1_700_006_400,
		PriceUSD:          1.25,
		TotalLiquidityUSD: 1000,
		DailyVolumeUSD:    50,
		Filled:            true,
	}
	rec := postgres.ToTokenDayRecord("0xtoken", p)
	assert.Equal(t, "0xtoken", rec.Token)
	assert.Equal(t, time.Unix(1_700_006_400, 0).UTC(), rec.Date)
	assert.Equal(t, p, postgres.ToDayPoint(rec))
}

// go test -v --run TestTokenDayCRUD
func TestTokenDayCRUD(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	token := "0xcrud000000000000000000000000000000000001"
	day := time.Now().UTC().Truncate(24 * time.Hour)
	require.NoError(t, client.DeleteTokenDaysBefore(ctx, day.Add(48*time.Hour)))

	records := []postgres.TokenDayRecord{
		{Token: token, Date: day.Add(-24 * time.Hour), PriceUSD: 1, DailyVolumeUSD: 10},
		{Token: token, Date: day, PriceUSD: 2, DailyVolumeUSD: 20},
	}
	require.NoError(t, client.UpsertTokenDays(ctx, records))

	// upsert refreshes existing rows instead of duplicating them
	records[1].PriceUSD = 3
	require.NoError(t, client.UpsertTokenDays(ctx, records[1:]))

	got, err := client.GetTokenDays(ctx, token)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].PriceUSD)
	assert.Equal(t, 3.0, got[1].PriceUSD)

	one, err := client.GetTokenDay(ctx, token, day)
	require.NoError(t, err)
	assert.Equal(t, 20.0, one.DailyVolumeUSD)

	require.NoError(t, client.DeleteTokenDaysBefore(ctx, day.Add(48*time.Hour)))
	_, err = client.GetTokenDay(ctx, token, day)
	assert.Error(t, err)
}

// go test -v --run TestHistoryBlob
func TestHistoryBlob(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	ns := "test_namespace_" + time.Now().Format("150405.000")

	b, err := client.ReadHistoryBlob(ctx, ns)
	require.NoError(t, err)
	assert.Nil(t, b)

	require.NoError(t, client.WriteHistoryBlob(ctx, ns, []byte(`{"a":1}`)))
	require.NoError(t, client.WriteHistoryBlob(ctx, ns, []byte(`{"a":2}`)))

	b, err = client.ReadHistoryBlob(ctx, ns)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(b))
}
