package subgraph

import (
	"fmt"
	"strings"
)

const tokenFields = `
  fragment TokenFields on Token {
    id
    name
    symbol
    derivedETH
    tradeVolume
    tradeVolumeUSD
    untrackedVolumeUSD
    totalLiquidity
    txCount
  }
`

const transactionPairFields = `
    transaction {
      id
      timestamp
    }
    pair {
      token0 {
        id
        symbol
      }
      token1 {
        id
        symbol
      }
    }
`

// blockClause renders the time-travel argument; zero means latest.
func blockClause(block int64) string {
	if block <= 0 {
		return ""
	}
	return fmt.Sprintf("block: {number: %d}", block)
}

// TokenDataQuery fetches one token, optionally as of a block, together with
// the top pairs that hold it on either side.
func TokenDataQuery(address string, block int64) string {
	address = strings.ToLower(address)
	return tokenFields + fmt.Sprintf(`
  query tokens {
    tokens(%s where: {id: "%s"}) {
      ...TokenFields
    }
    pairs0: pairs(where: {token0: "%s"}, first: 50, orderBy: reserveUSD, orderDirection: desc) {
      id
    }
    pairs1: pairs(where: {token1: "%s"}, first: 50, orderBy: reserveUSD, orderDirection: desc) {
      id
    }
  }
`, blockClause(block), address, address, address)
}

// TokensCurrentQuery lists the top tokens by lifetime volume.
const TokensCurrentQuery = tokenFields + `
  query tokens {
    tokens(first: 200, orderBy: tradeVolumeUSD, orderDirection: desc) {
      ...TokenFields
    }
  }
`

// TokensDynamicQuery lists the top tokens as of the given block.
func TokensDynamicQuery(block int64) string {
	return tokenFields + fmt.Sprintf(`
  query tokens {
    tokens(%s first: 200, orderBy: tradeVolumeUSD, orderDirection: desc) {
      ...TokenFields
    }
  }
`, blockClause(block))
}

// TokenChartQuery pages through token day data in ascending date order.
// Variables: tokenAddr, skip.
func TokenChartQuery(pageSize int) string {
	return fmt.Sprintf(`
  query tokenDayDatas($tokenAddr: String!, $skip: Int!) {
    tokenDayDatas(first: %d, skip: $skip, orderBy: date, orderDirection: asc, where: { token: $tokenAddr }) {
      id
      date
      priceUSD
      totalLiquidityToken
      totalLiquidityUSD
      totalLiquidityETH
      dailyVolumeETH
      dailyVolumeToken
      dailyVolumeUSD
      mostLiquidPairs {
        id
        token0 {
          id
          derivedETH
        }
        token1 {
          id
          derivedETH
        }
      }
    }
  }
`, pageSize)
}

// FilteredTransactionsQuery returns recent mints, burns and swaps across a
// set of pairs. Variables: allPairs.
const FilteredTransactionsQuery = `
  query($allPairs: [Bytes]!) {
    mints(first: 20, where: { pair_in: $allPairs }, orderBy: timestamp, orderDirection: desc) {` + transactionPairFields + `
      to
      liquidity
      amount0
      amount1
      amountUSD
    }
    burns(first: 20, where: { pair_in: $allPairs }, orderBy: timestamp, orderDirection: desc) {` + transactionPairFields + `
      sender
      liquidity
      amount0
      amount1
      amountUSD
    }
    swaps(first: 30, where: { pair_in: $allPairs }, orderBy: timestamp, orderDirection: desc) {` + transactionPairFields + `
      id
      amount0In
      amount0Out
      amount1In
      amount1Out
      amountUSD
      to
    }
  }
`

// PricesByBlockQuery asks for the token's derivedETH (aliased t{timestamp})
// and the ETH/USD bundle price (aliased b{timestamp}) at every block.
func PricesByBlockQuery(address string, blocks []Block) string {
	address = strings.ToLower(address)

	var sb strings.Builder
	sb.WriteString("query blocks {")
	for _, b := range blocks {
		fmt.Fprintf(&sb, `
    t%d: token(id: "%s", block: { number: %d }) {
      derivedETH
    }`, b.Timestamp, address, b.Number)
	}
	for _, b := range blocks {
		fmt.Fprintf(&sb, `
    b%d: bundle(id: "1", block: { number: %d }) {
      ethPrice
    }`, b.Timestamp, b.Number)
	}
	sb.WriteString("\n  }\n")
	return sb.String()
}

// EthPriceQuery returns the ETH/USD bundle, optionally as of a block.
func EthPriceQuery(block int64) string {
	return fmt.Sprintf(`
  query bundles {
    bundles(where: { id: 1 } %s) {
      id
      ethPrice
    }
  }
`, blockClause(block))
}

// GlobalDataQuery returns the factory counters, optionally as of a block.
func GlobalDataQuery(factory string, block int64) string {
	return fmt.Sprintf(`
  query pancakeFactories {
    pancakeFactories(%s where: { id: "%s" }) {
      id
      totalVolumeUSD
      totalVolumeETH
      untrackedVolumeUSD
      totalLiquidityUSD
      totalLiquidityETH
      txCount
      pairCount
    }
  }
`, blockClause(block), strings.ToLower(factory))
}

// MetaQuery returns the latest block the subgraph has indexed.
const MetaQuery = `
  query meta {
    _meta {
      block {
        number
      }
    }
  }
`

// GetBlockQuery finds the first block strictly between from and to.
// Variables: timestampFrom, timestampTo.
const GetBlockQuery = `
  query blocks($timestampFrom: Int!, $timestampTo: Int!) {
    blocks(first: 1, orderBy: timestamp, orderDirection: asc, where: { timestamp_gt: $timestampFrom, timestamp_lt: $timestampTo }) {
      id
      number
      timestamp
    }
  }
`

// GetBlocksQuery resolves many timestamps at once, aliased t{timestamp}.
func GetBlocksQuery(timestamps []int64) string {
	var sb strings.Builder
	sb.WriteString("query blocks {")
	for _, ts := range timestamps {
		fmt.Fprintf(&sb, `
    t%d: blocks(first: 1, orderBy: timestamp, orderDirection: desc, where: { timestamp_gt: %d, timestamp_lt: %d }) {
      number
    }`, ts, ts, ts+blockWindow)
	}
	sb.WriteString("\n  }\n")
	return sb.String()
}
