package game

import (
	"errors"
	"testing"

	"github.com/ai-rumble/Cerveau/internal/state"
)

func runGame(t *testing.T, ops map[string]map[string]Operation) (*Game, *Player) {
	t.Helper()
	m := testModule(2)
	m.Ops = ops
	g := New(m, "1")
	if err := g.Start([]Seat{{Conn: &nopConn{}}, {Conn: &nopConn{}}}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return g, g.Players()[0]
}

func TestDispatchRunImmediate(t *testing.T) {
	g, p := runGame(t, map[string]map[string]Operation{
		"Game": {
			"add": {
				Args: []Arg{
					{Name: "a", Default: 0},
					{Name: "b", Default: 10},
				},
				Returns: ToInt,
				Handler: func(ctx *RunContext) (Outcome, error) {
					a, _ := AsInt(ctx.Args["a"])
					b, _ := AsInt(ctx.Args["b"])
					return Immediate(a + b), nil
				},
			},
		},
	})

	var got any
	// b omitted: default 10 applies. JSON numbers arrive as float64.
	err := g.DispatchRun(p, nil, "add", map[string]any{"a": 5.0}, func(v any) { got = v })
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != 15 {
		t.Errorf("Expected 15, got %v (%T)", got, got)
	}
}

func TestDispatchRunDeferred(t *testing.T) {
	var replied any
	replies := 0

	ops := map[string]map[string]Operation{
		"Game": {
			"ask": {
				Returns: ToString,
				Handler: func(ctx *RunContext) (Outcome, error) {
					other := ctx.Game.Players()[1]
					reply := ctx.AsyncReturn
					order := ctx.Game.IssueOrder(other, "answer", nil, func(returned any) error {
						reply(returned)
						return nil
					})
					return Deferred(order), nil
				},
			},
		},
	}
	g, asker := runGame(t, ops)

	err := g.DispatchRun(asker, nil, "ask", nil, func(v any) {
		replied = v
		replies++
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if replies != 0 {
		t.Fatal("Expected no reply before the order finishes")
	}

	// The opponent reports; the deferred answer reaches the asker, coerced.
	other := g.Players()[1]
	if err := g.ResolveFinished(other, 0, 42.0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if replies != 1 {
		t.Fatalf("Expected exactly one reply, got %d", replies)
	}
	if replied != "42" {
		t.Errorf("Expected coerced \"42\", got %v (%T)", replied, replied)
	}
}

func TestDispatchRunViolation(t *testing.T) {
	g, p := runGame(t, map[string]map[string]Operation{
		"Game": {
			"cheat": {
				Handler: func(ctx *RunContext) (Outcome, error) {
					return Outcome{}, ctx.Game.Violate(ctx.Player, "nice try")
				},
			},
		},
	})
	entries := len(g.Entries())

	replies := 0
	err := g.DispatchRun(p, nil, "cheat", nil, func(v any) { replies++ })

	var violation *RuleViolation
	if !errors.As(err, &violation) {
		t.Fatalf("Expected RuleViolation, got %v", err)
	}
	if replies != 0 {
		t.Error("Expected no reply on violation")
	}
	if p.InvalidCount() != 1 {
		t.Errorf("Expected 1 invalid recorded, got %d", p.InvalidCount())
	}
	// Rejected runs do not mutate state and are not logged.
	if len(g.Entries()) != entries {
		t.Error("Expected no gamelog entry for rejected run")
	}
}

func TestDispatchRunUnknownOperation(t *testing.T) {
	g, p := runGame(t, nil)
	err := g.DispatchRun(p, nil, "nonsense", nil, func(any) {})
	if !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("Expected ErrUnknownOperation, got %v", err)
	}
}

func TestDispatchRunObjectTarget(t *testing.T) {
	ops := map[string]map[string]Operation{
		"Thing": {
			"poke": {
				Handler: func(ctx *RunContext) (Outcome, error) {
					return Immediate(ctx.Caller.ID()), nil
				},
			},
		},
	}
	g, p := runGame(t, ops)
	obj, err := g.CreateObject("Thing", nil)
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}

	var got any
	err = g.DispatchRun(p, state.RefTo(obj.ID()), "poke", nil, func(v any) { got = v })
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != obj.ID() {
		t.Errorf("Expected caller to be the referenced object, got %v", got)
	}
}

func TestDispatchRunForgedTarget(t *testing.T) {
	g, p := runGame(t, nil)

	err := g.DispatchRun(p, state.RefTo("404"), "poke", nil, func(any) {})
	if !errors.Is(err, ErrBadTarget) {
		t.Errorf("Expected ErrBadTarget for unknown ref, got %v", err)
	}

	err = g.DispatchRun(p, "not even a ref", "poke", nil, func(any) {})
	if !errors.Is(err, ErrBadTarget) {
		t.Errorf("Expected ErrBadTarget for non-ref target, got %v", err)
	}
}

func TestCoercers(t *testing.T) {
	if ToBool("true") != true || ToBool(0.0) != false || ToBool(true) != true {
		t.Error("ToBool coercion mismatch")
	}
	if ToInt(3.9) != 3 || ToInt("12") != 12 {
		t.Error("ToInt coercion mismatch")
	}
	if ToString(42.0) != "42" || ToString("x") != "x" {
		t.Error("ToString coercion mismatch")
	}
}
