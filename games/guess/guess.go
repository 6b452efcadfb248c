// Package guess - модуль правил "угадай число": сервер загадывает число,
// игроки по очереди называют варианты, после каждого промаха в состояние
// добавляется подсказка. Первый угадавший побеждает.
//
// Модуль демонстрирует возврат результата ордера с приведением типа и
// отложенный (deferred) результат run-операции через AsyncReturn.
package guess

import (
	"math/rand"
	"time"

	"github.com/ai-rumble/Cerveau/internal/game"
)

const (
	lowerBound = 1
	upperBound = 100
)

const (
	attrGuesses = "guesses" // []any из строк-подсказок, видны клиентам
	attrLower   = "lower"
	attrUpper   = "upper"
	attrCurrent = "currentPlayer"
	scratchNum  = "secret" // загаданное число живет вне снапшотов
)

// Register добавляет игру в каталог.
func Register(c *game.Catalog) {
	c.Register("guess", load)
}

func load() (*game.Module, error) {
	return &game.Module{
		Name:        "guess",
		PlayerCount: 2,

		Ops: map[string]map[string]game.Operation{
			"Game": {
				"askOpponent": {
					Args:    []game.Arg{{Name: "question", Default: ""}},
					Returns: game.ToString,
					Handler: handleAskOpponent,
				},
			},
		},

		OrderDone: map[string]game.OrderDoneFunc{
			"makeGuess": guessFinished,
		},
		OrderReturns: map[string]game.Coercer{
			"makeGuess": game.ToInt,
		},

		Begin: begin,
	}, nil
}

func begin(g *game.Game) map[string]any {
	seed := time.Now().UnixNano()
	rng := rand.New(rand.NewSource(seed))

	g.Scratch[scratchNum] = rng.Intn(upperBound-lowerBound+1) + lowerBound

	first := g.Players()[0]
	g.SetAttr(attrGuesses, []any{})
	g.SetAttr(attrLower, lowerBound)
	g.SetAttr(attrUpper, upperBound)
	g.SetAttr(attrCurrent, first)

	g.IssueOrder(first, "makeGuess", []any{lowerBound, upperBound}, nil)

	return map[string]any{"seed": seed}
}

// guessFinished обрабатывает вариант игрока. Возврат уже приведен
// к int через OrderReturns.
func guessFinished(g *game.Game, p *game.Player, returned any) error {
	if g.Over() {
		return nil
	}

	guess, ok := game.AsInt(returned)
	if !ok {
		issueNext(g, p) // игрок обязан ходить снова
		return g.Violate(p, "makeGuess must return a number, got %v", returned)
	}

	secret := g.Scratch[scratchNum].(int)
	if guess == secret {
		g.DeclareWinner(p, "Guessed the number")
		return nil
	}

	hint := "too low"
	if guess > secret {
		hint = "too high"
	}
	guesses, _ := g.Attr(attrGuesses).([]any)
	g.SetAttr(attrGuesses, append(guesses, map[string]any{
		"player": p,
		"guess":  guess,
		"hint":   hint,
	}))

	next := opponentOf(g, p)
	if next == nil {
		return nil
	}
	g.SetAttr(attrCurrent, next)
	issueNext(g, next)
	return nil
}

// issueNext выдает следующий ордер makeGuess с актуальными границами.
func issueNext(g *game.Game, p *game.Player) {
	g.IssueOrder(p, "makeGuess", []any{g.Attr(attrLower), g.Attr(attrUpper)}, nil)
}

// handleAskOpponent - run-операция Game.askOpponent{question}. Ответ не
// известен сразу: противнику выдается ордер provideHint, и результат run
// уходит спрашивавшему только после отчета противника.
func handleAskOpponent(ctx *game.RunContext) (game.Outcome, error) {
	g := ctx.Game
	p := ctx.Player

	other := opponentOf(g, p)
	if other == nil {
		return game.Outcome{}, g.Violate(p, "no opponent to ask")
	}

	question, _ := ctx.Args["question"].(string)
	reply := ctx.AsyncReturn
	order := g.IssueOrder(other, "provideHint", []any{question}, func(returned any) error {
		reply(returned)
		return nil
	})
	return game.Deferred(order), nil
}

func opponentOf(g *game.Game, p *game.Player) *game.Player {
	for _, other := range g.Players() {
		if other != p && !other.Lost() {
			return other
		}
	}
	return nil
}
