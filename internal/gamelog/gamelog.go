// Package gamelog описывает реплей завершенной партии и его хранение.
// Ядро отдает сюда готовый лог; формат на диске - один JSON-файл на партию.
package gamelog

// Entry - одна запись лога: почему состояние изменилось, контекст
// изменения и сама дельта. Пустая дельта тоже попадает в лог -
// для полноты аудита.
type Entry struct {
	// Type - причина цикла мутации: "start", "finished" или "run".
	Type string `json:"type"`

	// Data - контекст: какой игрок действовал, какая операция,
	// сырые аргументы.
	Data map[string]any `json:"data,omitempty"`

	// Game - дельта состояния игры, произведенная этим циклом.
	Game any `json:"game,omitempty"`
}

// Gamelog - полный реплей одной партии.
type Gamelog struct {
	GameName    string `json:"gameName"`
	GameSession string `json:"gameSession"`

	// Deltas - упорядоченная последовательность всех записей.
	Deltas []Entry `json:"deltas"`

	// Epoch - момент завершения партии, unix-миллисекунды.
	Epoch int64 `json:"epoch"`

	// Winners и Losers - индексы игроков в порядке их посадки.
	Winners []int `json:"winners"`
	Losers  []int `json:"losers"`
}
