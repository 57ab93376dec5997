package persistence

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/talgya/star-market/internal/engine"
)

// TradeLog buffers trades from the engine and writes them in batches, so
// the engine never waits on disk.
type TradeLog struct {
	db      *DB
	ch      chan engine.TradeRecord
	dropped atomic.Int64
}

// NewTradeLog creates a log with room for buffer pending trades.
func NewTradeLog(db *DB, buffer int) *TradeLog {
	if buffer <= 0 {
		buffer = 256
	}
	return &TradeLog{db: db, ch: make(chan engine.TradeRecord, buffer)}
}

// Record queues a trade. It never blocks; when the buffer is full the trade
// is dropped and counted.
func (l *TradeLog) Record(tr engine.TradeRecord) {
	select {
	case l.ch <- tr:
	default:
		l.dropped.Add(1)
	}
}

// Dropped returns how many trades were lost to a full buffer.
func (l *TradeLog) Dropped() int64 { return l.dropped.Load() }

// Run flushes queued trades every interval until ctx is cancelled, then
// flushes whatever is left.
func (l *TradeLog) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Flush(context.Background())
			return
		case <-ticker.C:
			l.Flush(ctx)
		}
	}
}

// Flush writes every queued trade.
func (l *TradeLog) Flush(ctx context.Context) int {
	var batch []engine.TradeRecord
	for {
		select {
		case tr := <-l.ch:
			batch = append(batch, tr)
			continue
		default:
		}
		break
	}
	if len(batch) == 0 {
		return 0
	}
	if err := l.db.AppendTrades(ctx, batch); err != nil {
		slog.Error("trade log flush failed", "trades", len(batch), "error", err)
		return 0
	}
	return len(batch)
}
