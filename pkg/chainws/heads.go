package chainws

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// HeadMessage is an eth_subscription notification carrying a block header.
type HeadMessage struct {
	Method string `json:"method"` // "eth_subscription" for notifications
	Params struct {
		Subscription string `json:"subscription"`
		Result       struct {
			Number    string `json:"number"`    // hex encoded
			Timestamp string `json:"timestamp"` // hex encoded
			Hash      string `json:"hash"`
		} `json:"result"`
	} `json:"params"`
}

// HeadTracker remembers the highest block number seen on the stream.
type HeadTracker struct {
	latest atomic.Int64
}

func (h *HeadTracker) Latest() int64 {
	return h.latest.Load()
}

// Observe raises the latest block to n if n is higher.
func (h *HeadTracker) Observe(n int64) {
	for {
		cur := h.latest.Load()
		if n <= cur || h.latest.CompareAndSwap(cur, n) {
			return
		}
	}
}

// MakeMessageHandler returns a function that parses newHeads notifications
// and feeds them to the tracker. Subscription acks and other frames are ignored.
func MakeMessageHandler(logger *zap.Logger, tracker *HeadTracker) func(msg []byte) {
	return func(msg []byte) {
		var parsed HeadMessage
		if err := json.Unmarshal(msg, &parsed); err != nil {
			logger.Warn("failed to parse head message", zap.Error(err))
			return
		}
		if parsed.Method != "eth_subscription" {
			return
		}

		n, err := parseHex(parsed.Params.Result.Number)
		if err != nil {
			logger.Warn("invalid block number", zap.String("number", parsed.Params.Result.Number), zap.Error(err))
			return
		}
		tracker.Observe(n)
	}
}

func parseHex(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimPrefix(s, "0x"), 16, 64)
}
