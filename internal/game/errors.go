package game

import (
	"errors"
	"fmt"
)

// Таксономия ошибок протокола.
//
// RuleViolation - игрок сделал недопустимый по правилам ход. Отправляется
// обидчику как invalid, увеличивает его счетчик нарушений, сессию не рушит.
//
// Протокольные ошибки (ErrUnknownOrder и прочие сентинелы ниже) - кривой
// запрос: отвечаем отправителю invalid, состояние движка не трогаем,
// нарушением правил не считаем.
//
// Все остальные ошибки - внутренние и фатальны для сессии: воркер не имеет
// права продолжать партию, целостность которой не гарантирована.

var (
	// ErrUnknownOrder - finished с индексом, которого нет среди ожидающих
	// ордеров (в т.ч. повторный отчет по уже закрытому ордеру).
	ErrUnknownOrder = errors.New("no pending order with that index")

	// ErrUnknownOperation - run с незарегистрированной операцией.
	ErrUnknownOperation = errors.New("unknown run operation")

	// ErrBadTarget - цель run-запроса не является игровым объектом.
	ErrBadTarget = errors.New("run target is not a game object")

	// ErrNoHandler - по имени ордера не зарегистрирован обработчик finished.
	ErrNoHandler = errors.New("no handler registered for finished order")

	// ErrBadArguments - аргументы run-запроса не разобрались.
	ErrBadArguments = errors.New("malformed run arguments")
)

// IsProtocolError отличает восстановимые протокольные ошибки от внутренних.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrUnknownOrder) ||
		errors.Is(err, ErrUnknownOperation) ||
		errors.Is(err, ErrBadTarget) ||
		errors.Is(err, ErrNoHandler) ||
		errors.Is(err, ErrBadArguments)
}

// RuleViolation - нарушение правил игры, поднятое игровой логикой.
type RuleViolation struct {
	Player  *Player
	Message string

	// recorded выставляется, когда нарушение уже учтено в счетчике игрока,
	// чтобы движок протокола не засчитал его второй раз.
	recorded bool
}

func (e *RuleViolation) Error() string { return e.Message }

// Violate создает нарушение правил и сразу учитывает его за игроком.
// Модули правил возвращают результат этой функции из обработчиков:
//
//	return game.Outcome{}, g.Violate(p, "pile %d is empty", i)
func (g *Game) Violate(p *Player, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	g.recordInvalid(p, msg)
	return &RuleViolation{Player: p, Message: msg, recorded: true}
}
