package game

import (
	"errors"
	"fmt"

	"github.com/ai-rumble/Cerveau/internal/state"
)

// Ордер - единица работы, отправляемая клиенту: "исполни у себя операцию
// name с аргументами args и отчитайся finished". Индексы монотонны
// и не переиспользуются; внутри потока одного клиента ордеры доставляются
// строго в порядке выдачи.

// FinishedFunc - колбэк на завершение конкретного ордера.
type FinishedFunc func(returned any) error

// Order ждет отчета клиента ровно один раз.
type Order struct {
	Index  int
	Player *Player
	Name   string
	Args   []any

	done FinishedFunc
}

// IssueOrder ставит ордер в очередь на отправку. Игровая логика, выдавшая
// ордер, получает его же как маркер "результат придет асинхронно"
// (см. Deferred в run.go).
func (g *Game) IssueOrder(p *Player, name string, args []any, done FinishedFunc) *Order {
	if args == nil {
		args = []any{}
	}
	o := &Order{
		Index:  len(g.orders),
		Player: p,
		Name:   name,
		Args:   args,
		done:   done,
	}
	g.orders = append(g.orders, o)
	g.pending[o.Index] = o
	return o
}

// PopOrders возвращает ордеры, выданные с прошлого вызова, и помечает их
// отправленными. Каждый ордер уходит в сеть не больше одного раза.
func (g *Game) PopOrders() []*Order {
	fresh := g.orders[g.popIndex:]
	g.popIndex = len(g.orders)
	return fresh
}

// PendingCount - сколько ордеров еще ждут отчета.
func (g *Game) PendingCount() int { return len(g.pending) }

// AbandonOrders снимает с ожидания все ордеры игрока. Вызывается при
// его дисконнекте: отчеты по ним уже никогда не придут.
func (g *Game) AbandonOrders(p *Player) {
	for idx, o := range g.pending {
		if o.Player == p {
			delete(g.pending, idx)
		}
	}
}

// ResolveFinished сопоставляет отчет клиента с ожидающим ордером
// и выполняет его колбэк.
//
// Возможные исходы:
//   - nil: все хорошо, цикл мутации зафиксирован;
//   - *RuleViolation: логика отклонила ход, цикл все равно зафиксирован;
//   - протокольная ошибка (ErrUnknownOrder и пр.): состояние не тронуто;
//   - иная ошибка: внутренняя, фатальна для сессии.
func (g *Game) ResolveFinished(p *Player, orderIndex int, raw any) error {
	o, ok := g.pending[orderIndex]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOrder, orderIndex)
	}
	if o.Player != p {
		return fmt.Errorf("%w: order %d was issued to another player", ErrUnknownOrder, orderIndex)
	}

	// Ордер считается закрытым с момента сопоставления: повторный
	// finished с тем же индексом получит ErrUnknownOrder.
	delete(g.pending, orderIndex)

	returned, err := state.ResolveRefs(raw, g.Registry)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBadArguments, err)
	}
	if coerce, ok := g.module.OrderReturns[o.Name]; ok && coerce != nil {
		returned = coerce(returned)
	}

	done := o.done
	if done == nil {
		if h, ok := g.module.OrderDone[o.Name]; ok && h != nil {
			done = func(r any) error { return h(g, p, r) }
		}
	}
	if done == nil {
		return fmt.Errorf("%w: %q", ErrNoHandler, o.Name)
	}

	cbErr := done(returned)

	var violation *RuleViolation
	if cbErr != nil && !errors.As(cbErr, &violation) {
		return cbErr // внутренняя ошибка - наверх, без фиксации цикла
	}
	if violation != nil {
		g.RecordViolation(violation)
	}

	g.commit("finished", map[string]any{
		"player":   state.RefTo(p.ID()),
		"order":    o.Name,
		"returned": state.Marshal(returned),
	})

	if violation != nil {
		return violation
	}
	return nil
}
