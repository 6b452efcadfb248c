// Package state превращает живой граф игровых объектов в плоское дерево
// (снапшот) и считает минимальную разницу между двумя снапшотами.
// Движок игры вызывает это после каждой мутации, чтобы рассылать клиентам
// только изменения и собирать реплей.
package state

import (
	"errors"
	"fmt"
)

// Специальные ключи и токены дельта-протокола.
// Игровые данные не должны использовать ключи с префиксом "&".
const (
	// RefKey - ссылка на игровой объект: {"&ref": "7"}.
	// Объекты никогда не встраиваются в снапшот по месту использования,
	// иначе циклический граф зациклил бы сериализацию.
	RefKey = "&ref"

	// LenKey - длина списка в дельте списка.
	LenKey = "&len"
)

// RemovedToken помечает удаленный ключ в дельте.
type RemovedToken struct{}

func (RemovedToken) MarshalJSON() ([]byte, error) {
	return []byte(`"&removed"`), nil
}

// Removed - единственное значение RemovedToken. Сравнивается через ==.
var Removed = RemovedToken{}

// Snapshot - полностью развернутое состояние игры в один момент времени.
type Snapshot = map[string]any

// Delta - минимальная структурная разница между двумя снапшотами.
type Delta = map[string]any

// Ref реализуют все отслеживаемые игровые объекты.
type Ref interface {
	ID() string
}

// Lookup умеет находить живой объект по его ID (реестр объектов сессии).
type Lookup interface {
	Lookup(id string) (Ref, bool)
}

// ErrUnknownRef - клиент прислал ссылку на объект, которого нет в реестре.
var ErrUnknownRef = errors.New("unknown game object reference")

// RefTo создает токен-ссылку на объект с данным ID.
func RefTo(id string) map[string]any {
	return map[string]any{RefKey: id}
}

// IsRef проверяет, является ли значение токеном-ссылкой.
func IsRef(v any) bool {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	_, ok = m[RefKey]
	return ok
}

// Marshal делает сериализуемую копию значения: живые объекты становятся
// токенами {"&ref": id}, контейнеры копируются рекурсивно, скаляры - как есть.
func Marshal(v any) any {
	switch t := v.(type) {
	case Ref:
		return RefTo(t.ID())
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = Marshal(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = Marshal(inner)
		}
		return out
	default:
		return v
	}
}

// ResolveRefs - обратная операция для данных, присланных клиентом:
// токены {"&ref": id} заменяются на живые объекты из реестра.
func ResolveRefs(v any, reg Lookup) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if IsRef(t) {
			id, _ := t[RefKey].(string)
			obj, ok := reg.Lookup(id)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownRef, id)
			}
			return obj, nil
		}
		out := make(map[string]any, len(t))
		for k, inner := range t {
			resolved, err := ResolveRefs(inner, reg)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			resolved, err := ResolveRefs(inner, reg)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}
