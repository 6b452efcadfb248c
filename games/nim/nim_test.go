package nim

import (
	"errors"
	"testing"

	"github.com/ai-rumble/Cerveau/internal/game"
)

type nopConn struct{}

func (nopConn) Send(event string, data any) error { return nil }
func (nopConn) Close() error                      { return nil }

func startNim(t *testing.T) *game.Game {
	t.Helper()
	cat := game.NewCatalog()
	Register(cat)
	m, err := cat.Load("nim")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	g := game.New(m, "1")
	seats := []game.Seat{
		{Name: "alice", ClientType: "test", Conn: nopConn{}},
		{Name: "bob", ClientType: "test", Conn: nopConn{}},
	}
	if err := g.Start(seats); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return g
}

func pileSizes(g *game.Game) []int {
	piles, _ := g.Attr("piles").([]any)
	sizes := make([]int, len(piles))
	for i, p := range piles {
		sizes[i], _ = game.AsInt(p.(game.Object).Attributes()["size"])
	}
	return sizes
}

func TestNimSetup(t *testing.T) {
	g := startNim(t)

	sizes := pileSizes(g)
	if len(sizes) != pileCount {
		t.Fatalf("Expected %d piles, got %d", pileCount, len(sizes))
	}
	for i, s := range sizes {
		if s < 1 || s > maxPileSize {
			t.Errorf("Pile %d has size %d out of range", i, s)
		}
	}

	current, _ := g.Attr("currentPlayer").(*game.Player)
	if current != g.Players()[0] {
		t.Error("Expected the first player to move first")
	}
	// The first runTurn order is queued for sending.
	orders := g.PopOrders()
	if len(orders) != 1 || orders[0].Name != "runTurn" {
		t.Fatalf("Expected one runTurn order, got %v", orders)
	}
}

// Plays a full match: each turn the current player empties the first pile.
func TestNimFullMatch(t *testing.T) {
	g := startNim(t)

	for turns := 0; !g.Over(); turns++ {
		if turns > 50 {
			t.Fatal("Match did not converge")
		}
		orders := g.PopOrders()
		if len(orders) != 1 {
			t.Fatalf("Expected exactly one order per turn, got %d", len(orders))
		}
		o := orders[0]
		p := o.Player

		sizes := pileSizes(g)
		err := g.DispatchRun(p, nil, "take", map[string]any{
			"pile":   0.0,
			"amount": float64(sizes[0]),
		}, func(v any) {
			if v != true {
				t.Errorf("Expected take to return true, got %v", v)
			}
		})
		if err != nil {
			t.Fatalf("take failed: %v", err)
		}

		if g.Over() {
			break
		}
		if err := g.ResolveFinished(p, o.Index, true); err != nil {
			t.Fatalf("finished failed: %v", err)
		}
	}

	var winner *game.Player
	for _, p := range g.Players() {
		if p.Won() {
			winner = p
		}
	}
	if winner == nil {
		t.Fatal("Expected a winner")
	}
	if winner.ReasonWon() != "Took the last stone" {
		t.Errorf("Expected win by taking the last stone, got %q", winner.ReasonWon())
	}
	if len(pileSizes(g)) != 0 {
		t.Errorf("Expected all piles gone, got %v", pileSizes(g))
	}
}

func TestNimOutOfTurn(t *testing.T) {
	g := startNim(t)
	g.PopOrders()
	intruder := g.Players()[1]

	err := g.DispatchRun(intruder, nil, "take", map[string]any{"pile": 0.0, "amount": 1.0}, func(any) {})
	var violation *game.RuleViolation
	if !errors.As(err, &violation) {
		t.Fatalf("Expected RuleViolation, got %v", err)
	}
	if intruder.InvalidCount() != 1 {
		t.Errorf("Expected violation recorded, got %d", intruder.InvalidCount())
	}
}

func TestNimBadArguments(t *testing.T) {
	g := startNim(t)
	g.PopOrders()
	p := g.Players()[0]

	cases := []map[string]any{
		{"pile": 99.0, "amount": 1.0},  // no such pile
		{"pile": 0.0, "amount": 0.0},   // must take at least one
		{"pile": 0.0, "amount": 100.0}, // more than the pile holds
		{},                             // defaults: pile -1
	}
	for i, args := range cases {
		err := g.DispatchRun(p, nil, "take", args, func(any) {})
		var violation *game.RuleViolation
		if !errors.As(err, &violation) {
			t.Errorf("Case %d: expected RuleViolation, got %v", i, err)
		}
	}
	if g.Over() {
		t.Error("Expected game to continue below the invalid limit")
	}
}

func TestNimFinishWithoutTaking(t *testing.T) {
	g := startNim(t)
	orders := g.PopOrders()
	p := orders[0].Player

	err := g.ResolveFinished(p, orders[0].Index, true)
	var violation *game.RuleViolation
	if !errors.As(err, &violation) {
		t.Fatalf("Expected RuleViolation, got %v", err)
	}

	// The player is ordered to take the turn again.
	again := g.PopOrders()
	if len(again) != 1 || again[0].Name != "runTurn" || again[0].Player != p {
		t.Errorf("Expected a repeat runTurn for the same player, got %v", again)
	}
	current, _ := g.Attr("currentPlayer").(*game.Player)
	if current != p {
		t.Error("Expected the turn not to pass")
	}
}
