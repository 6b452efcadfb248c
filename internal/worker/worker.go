// Package worker исполняет одну игровую сессию в изолированной горутине.
// Воркер монопольно владеет движком игры и сокетами участников:
// все протокольные операции (разбор finished, run-запросы, фиксация
// циклов мутации) выполняются строго по одной, потому что корректность
// правил опирается на порядок "одно действие полностью улеглось -
// началось следующее".
package worker

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ai-rumble/Cerveau/internal/game"
	"github.com/ai-rumble/Cerveau/internal/gamelog"
	"github.com/ai-rumble/Cerveau/internal/server"
	"github.com/ai-rumble/Cerveau/internal/state"
	"github.com/ai-rumble/Cerveau/pkg/api"
	"github.com/ai-rumble/Cerveau/pkg/logger"
)

// LogSink получает готовый лог партии при завершении воркера.
type LogSink func(gl *gamelog.Gamelog)

// Worker владеет одной игрой и её клиентами от старта до конца партии.
type Worker struct {
	sessionID string

	game    *game.Game
	clients []*server.Client
	players map[*server.Client]*game.Player
	seats   map[*game.Player]*server.Client

	inbox chan server.Event
	sink  LogSink

	// issuedAt - когда ордер ушел клиенту; по finished списываем
	// израсходованное время из бюджета игрока. Само принуждение
	// к проигрышу при исчерпании - политика игры, не ядра.
	issuedAt map[int]time.Time

	done bool

	// quit закрывается при выходе из Run. Лобби по нему отличает
	// "inbox на мгновение полон" от "воркер завершился и никто не читает".
	quit chan struct{}

	log *logrus.Entry
}

func New(module *game.Module, sessionID string, clients []*server.Client, sink LogSink) *Worker {
	return &Worker{
		sessionID: sessionID,
		game:      game.New(module, sessionID),
		clients:   clients,
		players:   map[*server.Client]*game.Player{},
		seats:     map[*game.Player]*server.Client{},
		inbox:     make(chan server.Event, 64),
		sink:      sink,
		issuedAt:  map[int]time.Time{},
		quit:      make(chan struct{}),
		log:       logger.ForSession(module.Name, sessionID).WithField("component", "worker"),
	}
}

// Inbox - канал, в который лобби перенаправляет сообщения клиентов
// после передачи сессии.
func (w *Worker) Inbox() chan<- server.Event { return w.inbox }

// Done закрывается, когда воркер завершил работу и inbox больше не читается.
func (w *Worker) Done() <-chan struct{} { return w.quit }

// Game открыт для тестов и инспекции; снаружи воркера его не мутируют.
func (w *Worker) Game() *game.Game { return w.game }

// Run - жизненный цикл сессии. Запускается в собственной горутине.
func (w *Worker) Run() {
	defer close(w.quit)
	w.log.Info("Session worker started")

	if err := w.start(); err != nil {
		w.fail(err)
		return
	}
	w.flush()

	for !w.game.Over() && !w.done {
		ev, ok := <-w.inbox
		if !ok {
			break
		}
		if fatal := w.handle(ev); fatal != nil {
			w.fail(fatal)
			return
		}
		w.flush()
	}

	w.finish()
}

// start создает игроков из переданных клиентов и запускает игру.
func (w *Worker) start() error {
	seats := make([]game.Seat, len(w.clients))
	for i, c := range w.clients {
		seats[i] = game.Seat{Name: c.Name, ClientType: c.Type, Conn: c}
	}
	if err := w.game.Start(seats); err != nil {
		return err
	}
	for i, p := range w.game.Players() {
		w.players[w.clients[i]] = p
		w.seats[p] = w.clients[i]
	}
	return nil
}

// handle разбирает одно событие клиента. Возвращенная ошибка фатальна
// для сессии; нарушения правил и протокольные ошибки гасятся здесь же
// ответом invalid.
func (w *Worker) handle(ev server.Event) error {
	p, known := w.players[ev.Client]
	if !known {
		return nil // клиент уже отключен и забыт
	}

	if ev.Err != nil {
		w.disconnect(ev.Client, p)
		return nil
	}

	switch ev.Msg.Event {
	case api.EventFinished:
		var data api.FinishedData
		if err := json.Unmarshal(ev.Msg.Data, &data); err != nil {
			w.invalid(ev.Client, "malformed finished data", nil)
			return nil
		}
		if err := data.Validate(); err != nil {
			w.invalid(ev.Client, err.Error(), nil)
			return nil
		}

		w.spendTime(p, data.OrderIndex)
		return w.reportErr(ev.Client, w.game.ResolveFinished(p, data.OrderIndex, data.Returned))

	case api.EventRun:
		var data api.RunData
		if err := json.Unmarshal(ev.Msg.Data, &data); err != nil {
			w.invalid(ev.Client, "malformed run data", nil)
			return nil
		}
		if err := data.Validate(); err != nil {
			w.invalid(ev.Client, err.Error(), nil)
			return nil
		}

		client := ev.Client
		reply := func(v any) {
			_ = client.Send(api.EventRan, api.RanData{Returned: state.Marshal(v)})
		}
		return w.reportErr(ev.Client, w.game.DispatchRun(p, data.Caller, data.FunctionName, data.Args, reply))

	default:
		w.invalid(ev.Client, "unexpected event during gameplay: "+ev.Msg.Event, nil)
		return nil
	}
}

// reportErr превращает восстановимые ошибки в invalid-ответы.
func (w *Worker) reportErr(c *server.Client, err error) error {
	if err == nil {
		return nil
	}

	var violation *game.RuleViolation
	if errors.As(err, &violation) {
		w.invalid(c, violation.Message, nil)
		return nil
	}
	if game.IsProtocolError(err) {
		w.invalid(c, err.Error(), nil)
		return nil
	}
	return err // внутренняя ошибка - фатальна
}

func (w *Worker) invalid(c *server.Client, message string, data any) {
	_ = c.Send(api.EventInvalid, api.InvalidData{Message: message, Data: data})
}

// disconnect - обрыв соединения игрока. Его ожидающие ордеры никогда
// не завершатся, поэтому снимаются с ожидания, а сама игра решает,
// что обрыв значит для партии (до старта и после конца - ничего).
func (w *Worker) disconnect(c *server.Client, p *game.Player) {
	w.log.WithFields(logrus.Fields{
		"client": c.ID,
		"player": p.Name(),
	}).Info("Player disconnected")

	w.game.AbandonOrders(p)
	w.game.PlayerDisconnected(p, "Disconnected during gameplay")

	delete(w.players, c)
	delete(w.seats, p)

	if len(w.players) == 0 && !w.game.Over() {
		// Продолжать некому: все сокеты мертвы.
		w.log.Warn("All players disconnected, closing session")
		w.finish()
	}
}

// spendTime списывает из бюджета игрока время, прошедшее с отправки ордера.
func (w *Worker) spendTime(p *game.Player, orderIndex int) {
	sent, ok := w.issuedAt[orderIndex]
	if !ok {
		return
	}
	delete(w.issuedAt, orderIndex)
	p.SpendTime(float64(time.Since(sent).Nanoseconds()))

	if p.TimeRemaining() <= 0 {
		w.log.WithField("player", p.Name()).Warn("Player exceeded time budget")
	}
}

// flush - сетевая синхронизация после каждого улегшегося действия:
// рассылаем новые ордеры и дельту состояния.
func (w *Worker) flush() {
	for _, o := range w.game.PopOrders() {
		c, ok := w.seats[o.Player]
		if !ok {
			continue // игрок отключился, ордер уже снят с ожидания
		}
		w.issuedAt[o.Index] = time.Now()
		_ = c.Send(api.EventOrder, api.OrderData{
			Index: o.Index,
			Name:  o.Name,
			Args:  state.Marshal(o.Args).([]any),
		})
	}

	if _, ok := w.game.ConsumeDelta(); ok {
		for p, c := range w.seats {
			_ = c.Send(api.EventDelta, api.DeltaData{Game: w.game.DeltaFor(p)})
		}
	}
}

// finish - штатное завершение: over всем, лог партии в приемник, сокеты закрыть.
func (w *Worker) finish() {
	if w.done {
		return
	}
	w.done = true

	if w.game.Started() && !w.game.Over() {
		// Сюда попадаем только при массовом дисконнекте; победителя нет.
		w.log.Warn("Session ended without a winner")
	}

	for _, p := range w.game.Players() {
		c, ok := w.seats[p]
		if !ok {
			continue
		}
		reason := p.ReasonWon()
		if p.Lost() {
			reason = p.ReasonLost()
		}
		_ = c.Send(api.EventOver, api.OverData{Won: p.Won(), Lost: p.Lost(), Reason: reason})
	}

	gl := w.game.Gamelog()
	if w.sink != nil {
		w.sink(gl)
	}

	w.log.WithFields(logrus.Fields{
		"deltas":  len(gl.Deltas),
		"winners": gl.Winners,
	}).Info("Session finished")

	w.closeAll()
}

// fail - внутренняя ошибка: сессию продолжать нельзя, но зафиксированные
// записи лога все равно сбрасываем.
func (w *Worker) fail(err error) {
	w.done = true
	w.log.WithError(err).Error("Fatal session error")

	for _, c := range w.clients {
		_ = c.Send(api.EventFatal, api.FatalData{Message: "internal server error, session aborted"})
	}

	if w.sink != nil {
		w.sink(w.game.Gamelog())
	}
	w.closeAll()
}

func (w *Worker) closeAll() {
	for _, c := range w.clients {
		_ = c.Close()
	}
}
