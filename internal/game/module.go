package game

// Module описывает правила одной игры. Ядро не знает правил - оно только
// гоняет то, что модуль зарегистрировал. Все таблицы собираются один раз
// при загрузке модуля: никакого поиска методов по строкам в рантайме.
type Module struct {
	Name string

	// PlayerCount - сколько клиентов нужно набрать в сессию.
	PlayerCount int

	// MaxInvalids - допустимое число нарушений правил на игрока.
	// Превысивший принудительно проигрывает. 0 означает DefaultMaxInvalids.
	MaxInvalids int

	// Constructors - конструкторы игровых объектов по тегу типа.
	Constructors map[string]Constructor

	// Ops - клиентские run-операции: тег типа цели -> имя операции.
	// Тег "Game" - операции над самой игрой.
	Ops map[string]map[string]Operation

	// OrderDone - обработчики finished по имени ордера, если при выдаче
	// ордера не был задан свой колбэк.
	OrderDone map[string]OrderDoneFunc

	// OrderReturns - приведение типов данных, которые клиент вернул
	// в finished. Клиенты на слабо типизированных рантаймах присылают
	// "true" или 1 вместо булева true.
	OrderReturns map[string]Coercer

	// Begin вызывается ровно один раз при старте игры, когда игроки уже
	// созданы. Возвращенные метаданные (например, сид генерации)
	// попадают в лог партии.
	Begin func(g *Game) map[string]any

	// AllocateID - необязательная подмена стратегии выдачи ID объектов
	// (чтобы скрыть от клиентов их количество).
	AllocateID func() string
}

// DefaultMaxInvalids применяется, если модуль не задал свой лимит.
const DefaultMaxInvalids = 10

// Constructor создает игровой объект под уже выделенный реестром ID.
type Constructor func(g *Game, id string, init map[string]any) Object

// Operation - одна клиентская run-операция.
type Operation struct {
	// Args - ожидаемые именованные аргументы с значениями по умолчанию.
	Args []Arg

	// Returns приводит результат операции к заявленному типу перед
	// отправкой клиенту. nil - отдавать как есть.
	Returns Coercer

	// Handler выполняет операцию. Немедленный результат - Immediate(v);
	// если логика выдала ордер и ответ придет позже - Deferred(order),
	// а значение в итоге уходит через ctx.AsyncReturn.
	Handler RunHandler
}

// Arg - описание одного именованного аргумента операции.
type Arg struct {
	Name    string
	Default any
}

// Coercer приводит значение к ожидаемому типу.
type Coercer func(v any) any

// RunHandler - реализация run-операции.
type RunHandler func(ctx *RunContext) (Outcome, error)

// OrderDoneFunc - обработчик по умолчанию для завершенного ордера.
type OrderDoneFunc func(g *Game, p *Player, returned any) error

func (m *Module) maxInvalids() int {
	if m.MaxInvalids > 0 {
		return m.MaxInvalids
	}
	return DefaultMaxInvalids
}
