package handhistory

import (
	"io"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raydebug/puretexaspoker-sub007/internal/deck"
	"github.com/raydebug/puretexaspoker-sub007/internal/game"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestMonitor(t *testing.T, showHoles bool) *Monitor {
	t.Helper()
	mon, err := NewMonitor(MonitorConfig{
		TableID:    "t1",
		TableName:  "main",
		Stakes:     "1/2",
		OutputDir:  t.TempDir(),
		FlushHands: 1,
		ShowHoles:  showHoles,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mon.Close() })
	return mon
}

// playHand feeds the monitor a small heads-up hand that folds out preflop.
func playHand(mon *Monitor, hand int) {
	mon.OnEvent("t1", game.HandStartEvent{Hand: hand, Dealer: 0, SmallBlindSeat: 0, BigBlindSeat: 1})
	mon.OnEvent("t1", game.HoleCardsEvent{PlayerID: "p0", Seat: 0, Cards: []deck.Card{deck.MustParse("As"), deck.MustParse("Kd")}})
	mon.OnEvent("t1", game.ActionEvent{Entry: game.ActionHistoryEntry{Seq: 1, Hand: hand, Seat: 0, Kind: game.KindSmallBlind, Amount: 1, Phase: game.PhasePreflop}})
	mon.OnEvent("t1", game.ActionEvent{Entry: game.ActionHistoryEntry{Seq: 2, Hand: hand, Seat: 1, Kind: game.KindBigBlind, Amount: 2, Phase: game.PhasePreflop}})
	mon.OnEvent("t1", game.ActionEvent{Entry: game.ActionHistoryEntry{Seq: 3, Hand: hand, Seat: 0, Kind: "fold", Phase: game.PhasePreflop}, Auto: true})
	mon.OnEvent("t1", game.HandResultEvent{Result: game.HandResult{
		Hand:   hand,
		Awards: []game.PotAward{{Pot: 0, Amount: 3, Winners: []game.SeatWin{{Seat: 1, Amount: 3}}}},
	}})
}

func readHistory(t *testing.T, mon *Monitor) string {
	t.Helper()
	data, err := os.ReadFile(mon.Path())
	require.NoError(t, err)
	return string(data)
}

func TestMonitorRendersCompletedHand(t *testing.T) {
	mon := newTestMonitor(t, true)
	playHand(mon, 1)
	require.NoError(t, mon.Flush())

	out := readHistory(t, mon)
	assert.Contains(t, out, "hand #1  table main  1/2")
	assert.Contains(t, out, "dealer seat 0, small blind seat 0, big blind seat 1")
	assert.Contains(t, out, "dealt seat 0: A♠ K♦")
	assert.Contains(t, out, "[preflop] seat 0 small_blind 1")
	assert.Contains(t, out, "[preflop] seat 1 big_blind 2")
	assert.Contains(t, out, "[preflop] seat 0 fold (auto)")
	assert.Contains(t, out, "seat 1 wins 3 from pot 0")
}

func TestMonitorOmitsHoleCardsByDefault(t *testing.T) {
	mon := newTestMonitor(t, false)
	playHand(mon, 1)
	require.NoError(t, mon.Flush())

	assert.NotContains(t, readHistory(t, mon), "dealt seat")
}

func TestMonitorRendersShowdown(t *testing.T) {
	mon := newTestMonitor(t, false)
	board := []deck.Card{
		deck.MustParse("2c"), deck.MustParse("7d"), deck.MustParse("Js"),
		deck.MustParse("Kh"), deck.MustParse("3s"),
	}
	mon.OnEvent("t1", game.HandStartEvent{Hand: 4, Dealer: 1, SmallBlindSeat: 0, BigBlindSeat: 1})
	mon.OnEvent("t1", game.StreetEvent{Phase: game.PhaseFlop, Board: board[:3]})
	mon.OnEvent("t1", game.HandResultEvent{Result: game.HandResult{
		Hand:  4,
		Board: board,
		Showdown: []game.ShownHand{
			{Seat: 0, Cards: []deck.Card{deck.MustParse("As"), deck.MustParse("Ks")}, Rank: "pair"},
		},
		Awards: []game.PotAward{{Pot: 0, Amount: 4, Winners: []game.SeatWin{{Seat: 0, Amount: 4}}}},
	}})
	require.NoError(t, mon.Flush())

	out := readHistory(t, mon)
	assert.Contains(t, out, "flop: 2♣ 7♦ J♠")
	assert.Contains(t, out, "board: 2♣ 7♦ J♠ K♥ 3♠")
	assert.Contains(t, out, "shows seat 0: A♠ K♠ (pair)")
	assert.Contains(t, out, "seat 0 wins 4 from pot 0")
}

func TestMonitorBuffersUntilFlush(t *testing.T) {
	mon := newTestMonitor(t, false)
	playHand(mon, 1)

	assert.Empty(t, readHistory(t, mon), "hands stay buffered until a flush")
	require.NoError(t, mon.Flush())
	assert.NotEmpty(t, readHistory(t, mon))
}

func TestMonitorNotifiesAtFlushThreshold(t *testing.T) {
	mon := newTestMonitor(t, false)
	notified := 0
	mon.SetFlushNotifier(func() { notified++ })

	playHand(mon, 1)
	assert.Equal(t, 1, notified, "one completed hand hits the threshold of one")

	playHand(mon, 2)
	assert.Equal(t, 2, notified)
}

func TestMonitorDiscardsUnfinishedHandOnNewStart(t *testing.T) {
	mon := newTestMonitor(t, false)
	mon.OnEvent("t1", game.HandStartEvent{Hand: 1, Dealer: 0, SmallBlindSeat: 0, BigBlindSeat: 1})
	mon.OnEvent("t1", game.ActionEvent{Entry: game.ActionHistoryEntry{Seq: 1, Hand: 1, Seat: 0, Kind: "fold", Phase: game.PhasePreflop}})

	playHand(mon, 2)
	require.NoError(t, mon.Flush())

	out := readHistory(t, mon)
	assert.NotContains(t, out, "hand #1")
	assert.Contains(t, out, "hand #2")
}

func TestManagerLifecycle(t *testing.T) {
	mgr := NewManager(discardLogger(), ManagerConfig{BaseDir: t.TempDir(), FlushHands: 1})

	mon, err := mgr.CreateMonitor("t1", "main", "1/2")
	require.NoError(t, err)

	_, err = mgr.CreateMonitor("t1", "main", "1/2")
	require.Error(t, err, "one monitor per table")

	playHand(mon, 1)
	mgr.Shutdown()

	data, err := os.ReadFile(mon.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "hand #1", "shutdown flushes buffered hands")
}
