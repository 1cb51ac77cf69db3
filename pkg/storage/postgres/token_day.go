package postgres

import (
	"context"
	"errors"
	"time"

	"dexcollector/internal/analytics"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertTokenDays writes day buckets, refreshing values of buckets that
// already exist for the same token and date.
func (p *PostgresClient) UpsertTokenDays(ctx context.Context, records []TokenDayRecord) error {
	if len(records) == 0 {
		return nil
	}
	return p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "token"},
			{Name: "date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"price_usd",
			"total_liquidity_token",
			"total_liquidity_usd",
			"total_liquidity_eth",
			"daily_volume_eth",
			"daily_volume_token",
			"daily_volume_usd",
			"filled",
			"updated_at",
		}),
	}).CreateInBatches(records, 500).Error
}

// GetTokenDays returns the stored chart of a token in date order.
func (p *PostgresClient) GetTokenDays(ctx context.Context, token string) ([]TokenDayRecord, error) {
	var out []TokenDayRecord
	err := p.DB.WithContext(ctx).
		Where("token = ?", token).
		Order("date ASC").
		Find(&out).Error
	return out, err
}

// GetTokenDay returns a single bucket.
func (p *PostgresClient) GetTokenDay(ctx context.Context, token string, date time.Time) (*TokenDayRecord, error) {
	var rec TokenDayRecord
	err := p.DB.WithContext(ctx).
		Where("token = ? AND date = ?", token, date).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *PostgresClient) DeleteTokenDaysBefore(ctx context.Context, before time.Time) error {
	return p.DB.WithContext(ctx).
		Where("date < ?", before).
		Delete(&TokenDayRecord{}).Error
}

// ReadHistoryBlob returns (nil, nil) when the namespace has no row yet.
func (p *PostgresClient) ReadHistoryBlob(ctx context.Context, namespace string) ([]byte, error) {
	var blob HistoryBlob
	err := p.DB.WithContext(ctx).Where("namespace = ?", namespace).First(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}

func (p *PostgresClient) WriteHistoryBlob(ctx context.Context, namespace string, data []byte) error {
	return p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&HistoryBlob{Namespace: namespace, Data: data}).Error
}

// ToTokenDayRecord converts a chart bucket into a row for token.
func ToTokenDayRecord(token string, p analytics.DayPoint) TokenDayRecord {
	return TokenDayRecord{
		Token:               token,
		Date:                time.Unix(p.Date, 0).UTC(),
		PriceUSD:            p.PriceUSD,
		TotalLiquidityToken: p.TotalLiquidityToken,
		TotalLiquidityUSD:   p.TotalLiquidityUSD,
		TotalLiquidityETH:   p.TotalLiquidityETH,
		DailyVolumeETH:      p.DailyVolumeETH,
		DailyVolumeToken:    p.DailyVolumeToken,
		DailyVolumeUSD:      p.DailyVolumeUSD,
		Filled:              p.Filled,
	}
}

// ToDayPoint is the inverse of ToTokenDayRecord. Pair lists are not stored.
func ToDayPoint(r TokenDayRecord) analytics.DayPoint {
	return analytics.DayPoint{
		Date:                r.Date.Unix(),
		PriceUSD:            r.PriceUSD,
		TotalLiquidityToken: r.TotalLiquidityToken,
		TotalLiquidityUSD:   r.TotalLiquidityUSD,
		TotalLiquidityETH:   r.TotalLiquidityETH,
		DailyVolumeETH:      r.DailyVolumeETH,
		DailyVolumeToken:    r.DailyVolumeToken,
		DailyVolumeUSD:      r.DailyVolumeUSD,
		Filled:              r.Filled,
	}
}
