package guess

import (
	"testing"

	"github.com/ai-rumble/Cerveau/internal/game"
)

type nopConn struct{}

func (nopConn) Send(event string, data any) error { return nil }
func (nopConn) Close() error                      { return nil }

func startGuess(t *testing.T) *game.Game {
	t.Helper()
	cat := game.NewCatalog()
	Register(cat)
	m, err := cat.Load("guess")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	g := game.New(m, "1")
	seats := []game.Seat{
		{Name: "alice", Conn: nopConn{}},
		{Name: "bob", Conn: nopConn{}},
	}
	if err := g.Start(seats); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return g
}

func TestGuessSecretStaysHidden(t *testing.T) {
	g := startGuess(t)

	secret, ok := g.Scratch["secret"].(int)
	if !ok || secret < lowerBound || secret > upperBound {
		t.Fatalf("Expected secret in [%d,%d], got %v", lowerBound, upperBound, g.Scratch["secret"])
	}

	// Scratch state must not leak into attributes visible to clients.
	if g.Attr("secret") != nil {
		t.Error("Expected secret absent from serialized attributes")
	}
}

// Binary search always finds the number well within the turn budget.
func TestGuessFullMatch(t *testing.T) {
	g := startGuess(t)
	secret := g.Scratch["secret"].(int)

	lo, hi := lowerBound, upperBound
	for turns := 0; !g.Over(); turns++ {
		if turns > 20 {
			t.Fatal("Match did not converge")
		}
		orders := g.PopOrders()
		if len(orders) != 1 || orders[0].Name != "makeGuess" {
			t.Fatalf("Expected one makeGuess order, got %v", orders)
		}
		o := orders[0]

		mid := (lo + hi) / 2
		// Clients report numbers as JSON floats.
		if err := g.ResolveFinished(o.Player, o.Index, float64(mid)); err != nil {
			t.Fatalf("finished failed: %v", err)
		}
		if mid < secret {
			lo = mid + 1
		} else if mid > secret {
			hi = mid - 1
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
	if winner.ReasonWon() != "Guessed the number" {
		t.Errorf("Expected win by guessing, got %q", winner.ReasonWon())
	}
}

func TestGuessHintsAccumulate(t *testing.T) {
	g := startGuess(t)
	secret := g.Scratch["secret"].(int)

	// A deliberately wrong guess.
	wrong := lowerBound
	if secret == wrong {
		wrong = upperBound
	}

	orders := g.PopOrders()
	if err := g.ResolveFinished(orders[0].Player, orders[0].Index, float64(wrong)); err != nil {
		t.Fatalf("finished failed: %v", err)
	}

	guesses, _ := g.Attr("guesses").([]any)
	if len(guesses) != 1 {
		t.Fatalf("Expected 1 recorded guess, got %d", len(guesses))
	}
	entry := guesses[0].(map[string]any)
	hint := entry["hint"]
	if hint != "too low" && hint != "too high" {
		t.Errorf("Unexpected hint %v", hint)
	}

	// The turn passed to the opponent.
	current, _ := g.Attr("currentPlayer").(*game.Player)
	if current != g.Players()[1] {
		t.Error("Expected the turn to pass to the second player")
	}
}

func TestGuessAskOpponentDeferred(t *testing.T) {
	g := startGuess(t)
	g.PopOrders()
	asker := g.Players()[0]
	other := g.Players()[1]

	var answer any
	replies := 0
	err := g.DispatchRun(asker, nil, "askOpponent", map[string]any{"question": "warm?"}, func(v any) {
		answer = v
		replies++
	})
	if err != nil {
		t.Fatalf("askOpponent failed: %v", err)
	}
	if replies != 0 {
		t.Fatal("Expected the answer to wait for the opponent")
	}

	// The opponent got a provideHint order carrying the question.
	orders := g.PopOrders()
	if len(orders) != 1 || orders[0].Name != "provideHint" || orders[0].Player != other {
		t.Fatalf("Expected provideHint for the opponent, got %v", orders)
	}
	if len(orders[0].Args) != 1 || orders[0].Args[0] != "warm?" {
		t.Errorf("Expected question in order args, got %v", orders[0].Args)
	}

	if err := g.ResolveFinished(other, orders[0].Index, "getting warmer"); err != nil {
		t.Fatalf("finished failed: %v", err)
	}
	if replies != 1 {
		t.Fatalf("Expected exactly one reply, got %d", replies)
	}
	if answer != "getting warmer" {
		t.Errorf("Expected relayed answer, got %v", answer)
	}
}
