package subgraph

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Response is the GraphQL response envelope returned by the subgraph.
type Response struct {
	Data   json.RawMessage `json:"data"`   // Delay decoding, shape varies per query
	Errors []ErrorEntry    `json:"errors"` // Present when the query failed (fully or partially)
}

type ErrorEntry struct {
	Message string `json:"message"`
}

// Token is a token entity as returned by TokenFields.
// BigDecimal and BigInt fields arrive as JSON strings.
type Token struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Symbol             string          `json:"symbol"`
	DerivedETH         decimal.Decimal `json:"derivedETH"`
	TradeVolume        decimal.Decimal `json:"tradeVolume"`
	TradeVolumeUSD     decimal.Decimal `json:"tradeVolumeUSD"`
	UntrackedVolumeUSD decimal.Decimal `json:"untrackedVolumeUSD"`
	TotalLiquidity     decimal.Decimal `json:"totalLiquidity"`
	TxCount            decimal.Decimal `json:"txCount"`
}

// TokenRef is the slim token shape embedded in pairs and transactions.
type TokenRef struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol,omitempty"`
	Name       string          `json:"name,omitempty"`
	DerivedETH decimal.Decimal `json:"derivedETH"`
}

type Pair struct {
	ID         string          `json:"id"`
	Token0     TokenRef        `json:"token0"`
	Token1     TokenRef        `json:"token1"`
	ReserveUSD decimal.Decimal `json:"reserveUSD"`
}

// TokenDataResponse is the result of TokenDataQuery: the token itself plus
// the pairs it participates in on either side.
type TokenDataResponse struct {
	Tokens []Token `json:"tokens"`
	Pairs0 []Pair  `json:"pairs0"`
	Pairs1 []Pair  `json:"pairs1"`
}

// TokenDayData is one day bucket of token history.
type TokenDayData struct {
	ID                  string          `json:"id"`
	Date                int64           `json:"date"`
	PriceUSD            decimal.Decimal `json:"priceUSD"`
	TotalLiquidityToken decimal.Decimal `json:"totalLiquidityToken"`
	TotalLiquidityUSD   decimal.Decimal `json:"totalLiquidityUSD"`
	TotalLiquidityETH   decimal.Decimal `json:"totalLiquidityETH"`
	DailyVolumeETH      decimal.Decimal `json:"dailyVolumeETH"`
	DailyVolumeToken    decimal.Decimal `json:"dailyVolumeToken"`
	DailyVolumeUSD      decimal.Decimal `json:"dailyVolumeUSD"`
	MostLiquidPairs     []Pair          `json:"mostLiquidPairs"`
}

type TxRef struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp,string"`
}

type TxPair struct {
	Token0 TokenRef `json:"token0"`
	Token1 TokenRef `json:"token1"`
}

type Mint struct {
	Transaction TxRef           `json:"transaction"`
	Pair        TxPair          `json:"pair"`
	To          string          `json:"to"`
	Liquidity   decimal.Decimal `json:"liquidity"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	AmountUSD   decimal.Decimal `json:"amountUSD"`
}

type Burn struct {
	Transaction TxRef           `json:"transaction"`
	Pair        TxPair          `json:"pair"`
	Sender      string          `json:"sender"`
	Liquidity   decimal.Decimal `json:"liquidity"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	AmountUSD   decimal.Decimal `json:"amountUSD"`
}

type Swap struct {
	ID          string          `json:"id"`
	Transaction TxRef           `json:"transaction"`
	Pair        TxPair          `json:"pair"`
	Amount0In   decimal.Decimal `json:"amount0In"`
	Amount0Out  decimal.Decimal `json:"amount0Out"`
	Amount1In   decimal.Decimal `json:"amount1In"`
	Amount1Out  decimal.Decimal `json:"amount1Out"`
	AmountUSD   decimal.Decimal `json:"amountUSD"`
	To          string          `json:"to"`
}

// Transactions groups recent liquidity and swap events for a set of pairs.
type Transactions struct {
	Mints []Mint `json:"mints"`
	Burns []Burn `json:"burns"`
	Swaps []Swap `json:"swaps"`
}

type Bundle struct {
	ID       string          `json:"id"`
	EthPrice decimal.Decimal `json:"ethPrice"`
}

// Block maps a timestamp to the first block mined after it.
type Block struct {
	Timestamp int64 `json:"timestamp"`
	Number    int64 `json:"number"`
}

// Factory holds exchange-wide cumulative counters.
type Factory struct {
	ID                 string          `json:"id"`
	TotalVolumeUSD     decimal.Decimal `json:"totalVolumeUSD"`
	TotalVolumeETH     decimal.Decimal `json:"totalVolumeETH"`
	UntrackedVolumeUSD decimal.Decimal `json:"untrackedVolumeUSD"`
	TotalLiquidityUSD  decimal.Decimal `json:"totalLiquidityUSD"`
	TotalLiquidityETH  decimal.Decimal `json:"totalLiquidityETH"`
	TxCount            decimal.Decimal `json:"txCount"`
	PairCount          int64           `json:"pairCount"`
}
