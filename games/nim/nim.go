// Package nim - модуль правил классического нима: кучки камней,
// игроки по очереди берут из одной кучки сколько угодно камней,
// взявший последний камень побеждает.
//
// Модуль намеренно маленький, но прогоняет весь протокол ядра:
// ордеры с цепочкой ходов, run-операции, игровые объекты-кучки
// с удалением из реестра и нарушения правил.
package nim

import (
	"math/rand"
	"time"

	"github.com/ai-rumble/Cerveau/internal/game"
)

const (
	pileCount   = 3
	maxPileSize = 7
)

// Ключи состояния игры.
const (
	attrPiles   = "piles"         // []any из ссылок на объекты Pile
	attrCurrent = "currentPlayer" // ссылка на игрока, чей ход
	scratchTurn = "turnTaken"     // брал ли текущий игрок камни в этом ходу
)

// Register добавляет ним в каталог игр.
func Register(c *game.Catalog) {
	c.Register("nim", load)
}

func load() (*game.Module, error) {
	return &game.Module{
		Name:        "nim",
		PlayerCount: 2,

		Constructors: map[string]game.Constructor{
			"Pile": newPile,
		},

		Ops: map[string]map[string]game.Operation{
			"Game": {
				"take": {
					Args: []game.Arg{
						{Name: "pile", Default: -1},
						{Name: "amount", Default: 1},
					},
					Returns: game.ToBool,
					Handler: handleTake,
				},
			},
		},

		OrderDone: map[string]game.OrderDoneFunc{
			"runTurn": turnFinished,
		},
		OrderReturns: map[string]game.Coercer{
			"runTurn": game.ToBool,
		},

		Begin: begin,
	}, nil
}

// newPile создает кучку камней. Размер берется из init.
func newPile(g *game.Game, id string, init map[string]any) game.Object {
	size, _ := game.AsInt(init["size"])
	return game.NewBase(id, "Pile", map[string]any{"size": size})
}

// begin раскладывает кучки и выдает первый ордер. Сид генерации
// возвращается в лог партии, чтобы раскладку можно было воспроизвести.
func begin(g *game.Game) map[string]any {
	seed := time.Now().UnixNano()
	rng := rand.New(rand.NewSource(seed))

	piles := make([]any, 0, pileCount)
	for i := 0; i < pileCount; i++ {
		pile, err := g.CreateObject("Pile", map[string]any{"size": rng.Intn(maxPileSize) + 1})
		if err != nil {
			g.Log.WithError(err).Error("nim: failed to create pile")
			continue
		}
		piles = append(piles, pile)
	}

	first := g.Players()[0]
	g.SetAttr(attrPiles, piles)
	g.SetAttr(attrCurrent, first)
	g.Scratch[scratchTurn] = false

	g.IssueOrder(first, "runTurn", nil, nil)

	return map[string]any{"seed": seed}
}

// handleTake - run-операция Game.take{pile, amount}.
func handleTake(ctx *game.RunContext) (game.Outcome, error) {
	g := ctx.Game
	p := ctx.Player

	current, _ := g.Attr(attrCurrent).(*game.Player)
	if current != p {
		return game.Outcome{}, g.Violate(p, "not your turn")
	}
	if taken, _ := g.Scratch[scratchTurn].(bool); taken {
		return game.Outcome{}, g.Violate(p, "you already took stones this turn")
	}

	piles, _ := g.Attr(attrPiles).([]any)
	pileIdx, ok := game.AsInt(ctx.Args["pile"])
	if !ok || pileIdx < 0 || pileIdx >= len(piles) {
		return game.Outcome{}, g.Violate(p, "pile %v does not exist", ctx.Args["pile"])
	}
	amount, ok := game.AsInt(ctx.Args["amount"])
	if !ok || amount < 1 {
		return game.Outcome{}, g.Violate(p, "amount must be at least 1")
	}

	pile := piles[pileIdx].(game.Object)
	size, _ := game.AsInt(pile.Attributes()["size"])
	if amount > size {
		return game.Outcome{}, g.Violate(p, "pile %d has only %d stones", pileIdx, size)
	}

	size -= amount
	pile.Attributes()["size"] = size
	g.Scratch[scratchTurn] = true

	// Пустая кучка выбывает из партии и из снапшотов.
	if size == 0 {
		piles = append(piles[:pileIdx], piles[pileIdx+1:]...)
		g.SetAttr(attrPiles, piles)
		g.Registry.Release(pile.ID())
	}

	if len(piles) == 0 {
		g.DeclareWinner(p, "Took the last stone")
	}

	return game.Immediate(true), nil
}

// turnFinished - клиент отчитался, что закончил ход runTurn.
func turnFinished(g *game.Game, p *game.Player, returned any) error {
	if g.Over() {
		return nil
	}

	current, _ := g.Attr(attrCurrent).(*game.Player)
	if current != p {
		// Отчет не от того игрока: ордер уже закрыт, но ход не передаем.
		return g.Violate(p, "finished a turn out of order")
	}

	if taken, _ := g.Scratch[scratchTurn].(bool); !taken {
		// Ход "закончен", а камни не взяты - нарушение; ходить заново.
		g.IssueOrder(p, "runTurn", nil, nil)
		return g.Violate(p, "finished turn without taking any stones")
	}

	next := opponentOf(g, p)
	if next == nil {
		return nil // противник уже выбыл, победитель определится проверкой
	}

	g.Scratch[scratchTurn] = false
	g.SetAttr(attrCurrent, next)
	g.IssueOrder(next, "runTurn", nil, nil)
	return nil
}

func opponentOf(g *game.Game, p *game.Player) *game.Player {
	for _, other := range g.Players() {
		if other != p && !other.Lost() {
			return other
		}
	}
	return nil
}
