package api

import "encoding/json"

// Протокол общения с AI-клиентами.
// Каждый фрейм websocket - это один Envelope: {"event": "...", "data": {...}}.
// Содержимое data зависит от события.

// --- СОБЫТИЯ ---

const (
	// КЛИЕНТ -> СЕРВЕР
	EventPlay     = "play"     // хочу играть в такую-то игру
	EventFinished = "finished" // выполнил ордер сервера
	EventRun      = "run"      // прошу выполнить игровую операцию

	// СЕРВЕР -> КЛИЕНТ
	EventLobbied = "lobbied" // помещен в сессию, ждем остальных
	EventOrder   = "order"   // инструкция клиенту
	EventRan     = "ran"     // результат run-запроса
	EventDelta   = "delta"   // изменение состояния игры с прошлого события
	EventInvalid = "invalid" // протокольная ошибка или нарушение правил
	EventOver    = "over"    // игра окончена
	EventFatal   = "fatal"   // сервер не может продолжать сессию
)

// Envelope это корневой объект любого сообщения протокола.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// --- КЛИЕНТ -> СЕРВЕР ---

// PlayData первое сообщение клиента: во что и с кем он хочет играть.
type PlayData struct {
	GameName string `json:"gameName"`

	// RequestedSession: точный ID, "*" (любая открытая) или "new" (всегда новая).
	RequestedSession string `json:"requestedSession,omitempty"`

	PlayerName string `json:"playerName,omitempty"`
	ClientType string `json:"clientType,omitempty"`
}

// FinishedData отчет клиента о выполненном ордере.
type FinishedData struct {
	OrderIndex int `json:"orderIndex"`

	// Returned - сериализованный результат исполнения ордера.
	// Ссылки на игровые объекты приходят как {"&ref": id}.
	Returned any `json:"returned"`
}

// RunData запрос клиента на выполнение зарегистрированной операции.
type RunData struct {
	// Caller - ссылка {"&ref": id} на объект-цель. null означает саму игру.
	Caller       any            `json:"caller"`
	FunctionName string         `json:"functionName"`
	Args         map[string]any `json:"args,omitempty"`
}

// --- СЕРВЕР -> КЛИЕНТ ---

// LobbiedData подтверждение, что клиент помещен в сессию.
type LobbiedData struct {
	GameName    string    `json:"gameName"`
	GameSession string    `json:"gameSession"`
	Constants   Constants `json:"constants"`
}

// OrderData инструкция, которую клиент обязан исполнить и отчитаться finished.
type OrderData struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Args  []any  `json:"args"`
}

// RanData результат run-запроса. Может прийти с задержкой, если операция
// потребовала исполнения ордера другим клиентом.
type RanData struct {
	Returned any `json:"returned"`
}

// DeltaData минимальное изменение состояния игры, видимое этому игроку.
type DeltaData struct {
	Game any `json:"game"`
}

// InvalidData сообщение об отклоненном запросе. Не фатально для сессии.
type InvalidData struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OverData уведомление о завершении игры с итогом для этого игрока.
type OverData struct {
	Won    bool   `json:"won"`
	Lost   bool   `json:"lost"`
	Reason string `json:"reason,omitempty"`
}

// FatalData сервер столкнулся с внутренней ошибкой и закрывает сессию.
type FatalData struct {
	Message string `json:"message"`
}

// Constants - общие константы протокола, отправляются клиенту в lobbied,
// чтобы обе стороны одинаково кодировали дельты и ссылки.
type Constants struct {
	DeltaRemoved    string `json:"DELTA_REMOVED"`
	DeltaListLength string `json:"DELTA_LIST_LENGTH"`
	GameObjectRef   string `json:"GAME_OBJECT_REF"`
}
