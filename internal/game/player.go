package game

// Connection - хэндл соединения игрока. Реализуется транспортом
// (internal/server.Client); ядру от него нужна только отправка
// и закрытие.
type Connection interface {
	Send(event string, data any) error
	Close() error
}

// Ключи сериализуемых полей игрока.
const (
	attrName          = "name"
	attrClientType    = "clientType"
	attrTimeRemaining = "timeRemaining"
	attrWon           = "won"
	attrLost          = "lost"
	attrReasonWon     = "reasonWon"
	attrReasonLost    = "reasonLost"
)

// defaultTimeBudget - стартовый бюджет времени игрока на ходы, в наносекундах
// (10 секунд). Ядро только учитывает расход; принуждение к проигрышу при
// исчерпании - политика уровнем выше.
const defaultTimeBudget = float64(1e10)

// Player - участник игры. Ровно один на подключенного клиента,
// создается при старте сессии и не заменяется.
type Player struct {
	*Base

	conn    Connection
	invalid []string // человекочитаемые причины нарушений правил
}

func newPlayer(id, name, clientType string, conn Connection) *Player {
	return &Player{
		Base: NewBase(id, "Player", map[string]any{
			attrName:          name,
			attrClientType:    clientType,
			attrTimeRemaining: defaultTimeBudget,
			attrWon:           false,
			attrLost:          false,
			attrReasonWon:     "",
			attrReasonLost:    "",
		}),
		conn: conn,
	}
}

func (p *Player) Name() string {
	s, _ := p.Attr(attrName).(string)
	return s
}

func (p *Player) ClientType() string {
	s, _ := p.Attr(attrClientType).(string)
	return s
}

func (p *Player) Conn() Connection { return p.conn }

func (p *Player) Won() bool {
	b, _ := p.Attr(attrWon).(bool)
	return b
}

func (p *Player) Lost() bool {
	b, _ := p.Attr(attrLost).(bool)
	return b
}

func (p *Player) ReasonWon() string {
	s, _ := p.Attr(attrReasonWon).(string)
	return s
}

func (p *Player) ReasonLost() string {
	s, _ := p.Attr(attrReasonLost).(string)
	return s
}

// TimeRemaining - остаток бюджета времени в наносекундах.
func (p *Player) TimeRemaining() float64 {
	f, _ := p.Attr(attrTimeRemaining).(float64)
	return f
}

// SpendTime списывает израсходованное время хода.
func (p *Player) SpendTime(ns float64) {
	p.SetAttr(attrTimeRemaining, p.TimeRemaining()-ns)
}

// InvalidCount - сколько нарушений правил накопил игрок.
func (p *Player) InvalidCount() int { return len(p.invalid) }
