package game

import (
	"errors"
	"fmt"

	"github.com/ai-rumble/Cerveau/internal/state"
)

// Run-запрос: клиент просит выполнить зарегистрированную операцию над
// игровым объектом. Выполняет её сервер, но для клиента это выглядит как
// синхронный вызов игровой логики.

// Outcome - результат обработчика операции: либо значение готово сразу,
// либо операция выдала ордер и ответ придет, когда тот завершится.
// Явный тип вместо магического значения-сентинела: логика откладывания
// проверяется компилятором, а не сравнением указателей.
type Outcome struct {
	value any
	order *Order
}

// Immediate - операция завершилась, вот значение.
func Immediate(v any) Outcome { return Outcome{value: v} }

// Deferred - операция ждет завершения ордера; значение обработчик
// отдаст через ctx.AsyncReturn.
func Deferred(o *Order) Outcome { return Outcome{order: o} }

// IsDeferred сообщает, отложен ли результат.
func (o Outcome) IsDeferred() bool { return o.order != nil }

// RunContext - все, что видит обработчик операции.
type RunContext struct {
	Game   *Game
	Player *Player // кто прислал запрос

	// Caller - объект-цель операции. nil для операций над самой игрой.
	Caller Object

	// Args - разрешенные (ссылки заменены живыми объектами) аргументы
	// с подставленными значениями по умолчанию.
	Args map[string]any

	// AsyncReturn отдает отложенный результат, когда ордер, выданный
	// обработчиком, завершился. Вызывать только для Deferred-исходов.
	AsyncReturn func(v any)
}

// DispatchRun находит реализацию операции и выполняет её.
// reply вызывается ровно один раз с результатом - сразу либо позже,
// когда завершится ордер, выданный обработчиком.
//
// Исходы ошибок - как у ResolveFinished: *RuleViolation восстановимо,
// протокольные ошибки не трогают состояние, прочее фатально.
func (g *Game) DispatchRun(p *Player, callerRaw any, fn string, argsRaw map[string]any, reply func(v any)) error {
	// 1. Цель операции
	var caller Object
	typeTag := "Game"
	if callerRaw != nil {
		resolved, err := state.ResolveRefs(callerRaw, g.Registry)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrBadTarget, err)
		}
		obj, ok := resolved.(Object)
		if !ok || !g.Registry.IsTracked(obj) {
			return fmt.Errorf("%w: %v", ErrBadTarget, callerRaw)
		}
		caller = obj
		typeTag = obj.TypeTag()
	}

	op, ok := g.module.Ops[typeTag][fn]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownOperation, typeTag, fn)
	}

	// 2. Аргументы: разрешаем ссылки, подставляем значения по умолчанию
	args := map[string]any{}
	if argsRaw != nil {
		resolved, err := state.ResolveRefs(argsRaw, g.Registry)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrBadArguments, err)
		}
		args, _ = resolved.(map[string]any)
	}
	for _, a := range op.Args {
		if _, present := args[a.Name]; !present {
			args[a.Name] = a.Default
		}
	}

	coerce := op.Returns
	deliver := func(v any) {
		if coerce != nil {
			v = coerce(v)
		}
		reply(v)
	}

	ctx := &RunContext{
		Game:        g,
		Player:      p,
		Caller:      caller,
		Args:        args,
		AsyncReturn: deliver,
	}

	// 3. Вызов
	out, err := op.Handler(ctx)

	var violation *RuleViolation
	if err != nil {
		if !errors.As(err, &violation) {
			return err // внутренняя ошибка
		}
		g.RecordViolation(violation)
		return violation
	}

	// 4. Цикл мутации фиксируется независимо от того, немедленный
	// результат или отложенный.
	g.commit("run", map[string]any{
		"player": state.RefTo(p.ID()),
		"run": map[string]any{
			"caller":       state.Marshal(callerRaw),
			"functionName": fn,
			"args":         state.Marshal(args),
		},
	})

	if out.IsDeferred() {
		return nil // ответ уйдет через AsyncReturn
	}
	deliver(out.value)
	return nil
}
