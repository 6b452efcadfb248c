// Package game содержит ядро игровой сессии: реестр объектов,
// движок протокола ордеров и run-запросов, машину побед/поражений
// и генерацию лога партии. Правила конкретных игр подключаются
// снаружи как модули (см. module.go и games/).
package game

// Object - любой отслеживаемый объект игры.
// ID уникален в рамках сессии на все её время и никогда не переиспользуется.
type Object interface {
	ID() string
	TypeTag() string

	// Attributes возвращает живую мапу сериализуемых полей объекта.
	// Игровая логика мутирует её напрямую; сериализатор читает её
	// при каждом снапшоте. Значения: скаляры, []any, map[string]any
	// и ссылки на другие Object.
	Attributes() map[string]any
}

// Base - общая часть всех игровых объектов. Встраивается в Player
// и в типы, которые определяют модули правил.
type Base struct {
	id      string
	typeTag string
	attrs   map[string]any
}

// NewBase создает объект с уже выделенным реестром ID.
func NewBase(id, typeTag string, attrs map[string]any) *Base {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &Base{id: id, typeTag: typeTag, attrs: attrs}
}

func (b *Base) ID() string                 { return b.id }
func (b *Base) TypeTag() string            { return b.typeTag }
func (b *Base) Attributes() map[string]any { return b.attrs }

// Attr читает одно сериализуемое поле.
func (b *Base) Attr(key string) any { return b.attrs[key] }

// SetAttr пишет одно сериализуемое поле.
func (b *Base) SetAttr(key string, v any) { b.attrs[key] = v }
