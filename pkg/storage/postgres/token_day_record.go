package postgres

import "time"

// TokenDayRecord is one filled day bucket of a token chart.
type TokenDayRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Token string    `gorm:"type:varchar(42);not null;index:idx_token_day,unique"`
	Date  time.Time `gorm:"not null;index:idx_token_day,unique"`

	PriceUSD            float64 `gorm:"type:numeric;not null"`
	TotalLiquidityToken float64 `gorm:"type:numeric;not null"`
	TotalLiquidityUSD   float64 `gorm:"type:numeric;not null"`
	TotalLiquidityETH   float64 `gorm:"type:numeric;not null"`
	DailyVolumeETH      float64 `gorm:"type:numeric;not null"`
	DailyVolumeToken    float64 `gorm:"type:numeric;not null"`
	DailyVolumeUSD      float64 `gorm:"type:numeric;not null"`

	// Filled marks buckets synthesized for days without trading.
	Filled bool `gorm:"not null;default:false"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (TokenDayRecord) TableName() string {
	return "token_day_record"
}

// HistoryBlob stores one history cache namespace.
type HistoryBlob struct {
	Namespace string    `gorm:"primaryKey;type:text"`
	Data      []byte    `gorm:"type:bytea;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (HistoryBlob) TableName() string {
	return "history_blob"
}
