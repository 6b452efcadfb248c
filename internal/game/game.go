package game

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ai-rumble/Cerveau/internal/gamelog"
	"github.com/ai-rumble/Cerveau/internal/state"
	"github.com/ai-rumble/Cerveau/pkg/logger"
)

// Seat - данные одного участника при старте игры.
type Seat struct {
	Name       string
	ClientType string
	Conn       Connection
}

// Game - одна игровая сессия. Владеет игроками, реестром объектов,
// парой снапшотов текущее/предыдущее, машиной побед/поражений и логом
// партии. Все методы вызываются из единственной горутины воркера,
// поэтому блокировок внутри нет.
type Game struct {
	module  *Module
	session string

	Registry *Registry

	players []*Player

	// attrs - сериализуемые поля верхнего уровня самой игры,
	// заполняются модулем правил.
	attrs map[string]any

	// Scratch - несериализуемое рабочее состояние модуля правил
	// (скрытые от клиентов данные, генераторы и т.п.).
	Scratch map[string]any

	// Движок протокола (orders.go)
	orders   []*Order
	pending  map[int]*Order
	popIndex int

	// Снапшоты и лог
	last    state.Snapshot
	current state.Snapshot
	delta   state.Delta
	changed bool
	entries []gamelog.Entry

	started bool
	over    bool

	Log *logrus.Entry
}

func New(m *Module, session string) *Game {
	g := &Game{
		module:  m,
		session: session,
		attrs:   map[string]any{},
		Scratch: map[string]any{},
		pending: map[int]*Order{},
		Log:     logger.ForSession(m.Name, session),
	}
	g.Registry = NewRegistry(m.AllocateID)
	return g
}

func (g *Game) Name() string    { return g.module.Name }
func (g *Game) Session() string { return g.session }
func (g *Game) Started() bool   { return g.started }
func (g *Game) Over() bool      { return g.over }

func (g *Game) Players() []*Player { return g.players }

// Attr и SetAttr - сериализуемые поля самой игры.
func (g *Game) Attr(key string) any       { return g.attrs[key] }
func (g *Game) SetAttr(key string, v any) { g.attrs[key] = v }

// CreateObject создает игровой объект через конструктор модуля правил
// и регистрирует его в реестре.
func (g *Game) CreateObject(typeTag string, init map[string]any) (Object, error) {
	ctor, ok := g.module.Constructors[typeTag]
	if !ok {
		return nil, fmt.Errorf("no constructor for object type %q", typeTag)
	}
	obj := ctor(g, g.Registry.Allocate(), init)
	g.Registry.Track(obj)
	return obj, nil
}

// Start переводит игру NotStarted -> Started: создает игроков из
// подключенных клиентов, один раз вызывает Begin модуля правил
// и фиксирует стартовый цикл мутации.
func (g *Game) Start(seats []Seat) error {
	if g.started {
		return fmt.Errorf("game already started")
	}
	if len(seats) != g.module.PlayerCount {
		return fmt.Errorf("game %q needs %d players, got %d", g.module.Name, g.module.PlayerCount, len(seats))
	}

	for i, seat := range seats {
		name := seat.Name
		if name == "" {
			name = fmt.Sprintf("Player %d", i)
		}
		clientType := seat.ClientType
		if clientType == "" {
			clientType = "Unknown"
		}
		p := newPlayer(g.Registry.Allocate(), name, clientType, seat.Conn)
		g.Registry.Track(p)
		g.players = append(g.players, p)
	}

	var startData map[string]any
	if g.module.Begin != nil {
		startData = g.module.Begin(g)
	}

	g.started = true
	g.commit("start", startData)
	return nil
}

// --- ЦИКЛ МУТАЦИИ ---

// commit фиксирует цикл мутации: сериализует состояние, считает дельту
// от предыдущего снапшота и дописывает запись в лог партии. Пустая дельта
// тоже логируется, но пару снапшотов и "последнюю дельту" не двигает.
func (g *Game) commit(deltaType string, data map[string]any) {
	cur := g.snapshot()
	prev := g.current
	if prev == nil {
		prev = state.Snapshot{}
	}

	delta := state.Diff(prev, cur)
	if !state.IsEmpty(delta) {
		g.last = g.current
		g.current = cur
		g.delta = delta
		g.changed = true
	}

	g.entries = append(g.entries, gamelog.Entry{
		Type: deltaType,
		Data: data,
		Game: delta,
	})
}

// snapshot собирает полное сериализуемое дерево состояния.
// Игроки в списке players - ссылки; полные объекты живут в gameObjects.
// Удаленные из реестра объекты в снапшот не попадают.
func (g *Game) snapshot() state.Snapshot {
	root := state.Snapshot{
		"name":    g.module.Name,
		"session": g.session,
	}
	for k, v := range g.attrs {
		root[k] = state.Marshal(v)
	}

	players := make([]any, len(g.players))
	for i, p := range g.players {
		players[i] = state.RefTo(p.ID())
	}
	root["players"] = players

	objects := map[string]any{}
	g.Registry.EachLive(func(obj Object) {
		serialized := map[string]any{
			"id":             obj.ID(),
			"gameObjectName": obj.TypeTag(),
		}
		for k, v := range obj.Attributes() {
			serialized[k] = state.Marshal(v)
		}
		objects[obj.ID()] = serialized
	})
	root["gameObjects"] = objects

	return root
}

// DeltaFor возвращает последнюю ненулевую дельту, как её должен видеть
// данный игрок. Игры со скрытой информацией могут резать её по-своему;
// базовая реализация одна на всех.
func (g *Game) DeltaFor(p *Player) state.Delta {
	return g.delta
}

// ConsumeDelta отдает дельту для рассылки клиентам, если с прошлого
// вызова состояние менялось.
func (g *Game) ConsumeDelta() (state.Delta, bool) {
	if !g.changed {
		return nil, false
	}
	g.changed = false
	return g.delta, true
}

// Entries - накопленный лог партии. Нужен воркеру при аварийном
// завершении, чтобы сбросить хотя бы зафиксированное.
func (g *Game) Entries() []gamelog.Entry { return g.entries }

// --- ПОБЕДЫ И ПОРАЖЕНИЯ ---

// DeclareLoser объявляет игрока проигравшим и проверяет, не остался ли
// ровно один претендент на победу. После конца игры итоги неизменны:
// поздние объявления игнорируются.
func (g *Game) DeclareLoser(p *Player, reason string) {
	g.declareLoser(p, reason, true)
}

// DeclareLoserNoCheck - как DeclareLoser, но без проверки победителя.
// Для одновременных поражений в одном цикле: модуль объявляет всех
// проигравших и один раз зовет CheckForWinner сам.
func (g *Game) DeclareLoserNoCheck(p *Player, reason string) {
	g.declareLoser(p, reason, false)
}

func (g *Game) declareLoser(p *Player, reason string, checkWinner bool) {
	if g.over {
		return
	}
	if p.Lost() && p.ReasonLost() == reason {
		return
	}
	p.SetAttr(attrLost, true)
	p.SetAttr(attrReasonLost, reason)
	p.SetAttr(attrWon, false)
	p.SetAttr(attrReasonWon, "")

	if checkWinner {
		g.CheckForWinner()
	}
}

// DeclareWinner объявляет победителя: все, кто еще не выиграл и не
// проиграл, проигрывают, и игра завершается. Повторные объявления
// после конца игры - no-op, чтобы гонки одновременных исходов в одном
// цикле не зависели от порядка вызовов.
func (g *Game) DeclareWinner(p *Player, reason string) {
	if g.over {
		return
	}
	p.SetAttr(attrWon, true)
	p.SetAttr(attrReasonWon, reason)
	p.SetAttr(attrLost, false)
	p.SetAttr(attrReasonLost, "")

	for _, other := range g.players {
		if other != p && !other.Won() && !other.Lost() {
			// Без повторной проверки победителя - иначе рекурсия.
			g.declareLoser(other, "Other player won", false)
		}
	}

	g.over = true
}

// CheckForWinner: если после чьего-то поражения ровно один игрок
// остается ни выигравшим, ни проигравшим - он побеждает вчистую.
func (g *Game) CheckForWinner() bool {
	if g.over {
		return true
	}

	var survivor *Player
	for _, p := range g.players {
		if p.Lost() {
			continue
		}
		if survivor != nil {
			return false // претендентов больше одного, решения нет
		}
		survivor = p
	}

	if survivor != nil {
		g.DeclareWinner(survivor, "All other players lost")
		return true
	}
	return false
}

// recordInvalid учитывает нарушение правил. Превышение лимита модуля
// принудительно отправляет игрока в проигрыш, даже если сам обработчик
// нарушения этого не требовал.
func (g *Game) recordInvalid(p *Player, message string) {
	p.invalid = append(p.invalid, message)
	g.Log.WithFields(logrus.Fields{
		"player":   p.Name(),
		"invalids": len(p.invalid),
	}).Debug("Rule violation: ", message)

	if len(p.invalid) > g.module.maxInvalids() {
		g.DeclareLoser(p, message)
	}
}

// RecordViolation учитывает нарушение, пришедшее не через Violate
// (например, модуль вернул голый *RuleViolation).
func (g *Game) RecordViolation(v *RuleViolation) {
	if v.recorded || v.Player == nil {
		return
	}
	v.recorded = true
	g.recordInvalid(v.Player, v.Message)
}

// PlayerDisconnected - обрыв соединения это не ошибка, а игровой переход:
// в идущей партии игрок немедленно проигрывает; до старта и после конца
// игры обрыв ничего не меняет.
func (g *Game) PlayerDisconnected(p *Player, reason string) {
	if p == nil || !g.started || g.over {
		return
	}
	if reason == "" {
		reason = "Disconnected during gameplay"
	}
	g.DeclareLoser(p, reason)
}

// Gamelog собирает итоговый реплей партии.
func (g *Game) Gamelog() *gamelog.Gamelog {
	winners := []int{}
	losers := []int{}
	for i, p := range g.players {
		if p.Won() {
			winners = append(winners, i)
		} else {
			losers = append(losers, i)
		}
	}

	return &gamelog.Gamelog{
		GameName:    g.module.Name,
		GameSession: g.session,
		Deltas:      g.entries,
		Epoch:       time.Now().UnixMilli(),
		Winners:     winners,
		Losers:      losers,
	}
}
