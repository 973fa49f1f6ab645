package storage

import (
	"go.uber.org/zap"

	"github.com/uhyunpark/papertrade/pkg/ledger"
	"github.com/uhyunpark/papertrade/pkg/util"
)

// Recorder journals registry commits. Journal failures are logged and never
// undo the commit.
type Recorder struct {
	journal Journal
	clock   util.Clock
	log     *zap.SugaredLogger
}

func NewRecorder(j Journal, clock util.Clock, log *zap.SugaredLogger) *Recorder {
	return &Recorder{journal: j, clock: clock, log: log}
}

func (r *Recorder) PlayerRegistered(p ledger.Player) {
	err := r.journal.RecordPlayer(PlayerRecord{
		PlayerID:     p.ID,
		StartingCash: p.StartingCash,
		RegisteredAt: r.clock.Now().UTC(),
	})
	if err != nil {
		r.log.Errorw("journal_player_failed", "player_id", p.ID, "err", err)
	}
}

func (r *Recorder) OrderRecorded(playerID string, seq int, o ledger.Order) {
	err := r.journal.RecordOrder(OrderRecord{
		PlayerID:   playerID,
		Seq:        seq,
		Symbol:     o.Symbol,
		Side:       o.Side.String(),
		Quantity:   o.Quantity,
		T:          o.Time,
		RecordedAt: r.clock.Now().UTC(),
	})
	if err != nil {
		r.log.Errorw("journal_order_failed", "player_id", playerID, "seq", seq, "err", err)
	}
}

var _ ledger.OrderObserver = (*Recorder)(nil)
