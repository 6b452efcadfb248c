package game

import (
	"strconv"

	"github.com/ai-rumble/Cerveau/internal/state"
)

// Registry владеет всеми игровыми объектами сессии и их идентичностью.
// Остальной код держит только ссылки по ID.
type Registry struct {
	objects map[string]Object
	order   []string // порядок создания - для детерминированных обходов
	removed map[string]bool
	nextID  int

	// allocate выдает следующий ID. По умолчанию - монотонный счетчик
	// строкой. Игры, где плотные ID выдают клиентам количество объектов,
	// могут подменить стратегию через Module.AllocateID.
	allocate func() string
}

func NewRegistry(allocate func() string) *Registry {
	r := &Registry{
		objects: map[string]Object{},
		removed: map[string]bool{},
	}
	if allocate == nil {
		allocate = func() string {
			id := strconv.Itoa(r.nextID)
			r.nextID++
			return id
		}
	}
	r.allocate = allocate
	return r
}

// Allocate выдает новый ID. ID никогда не переиспользуются,
// даже если объект был логически удален.
func (r *Registry) Allocate() string {
	return r.allocate()
}

// Track индексирует объект под его ID.
func (r *Registry) Track(obj Object) {
	r.objects[obj.ID()] = obj
	r.order = append(r.order, obj.ID())
}

// Get возвращает объект по ID. Удаленные объекты остаются адресуемыми.
func (r *Registry) Get(id string) (Object, bool) {
	obj, ok := r.objects[id]
	return obj, ok
}

// Lookup реализует state.Lookup для разрешения клиентских ссылок.
func (r *Registry) Lookup(id string) (state.Ref, bool) {
	obj, ok := r.objects[id]
	if !ok {
		return nil, false
	}
	return obj, true
}

// IsTracked проверяет, что кандидат - это именно живой объект реестра
// под своим собственным ID. Защита от подделанных и протухших ссылок,
// которые может прислать клиент.
func (r *Registry) IsTracked(candidate Object) bool {
	if candidate == nil {
		return false
	}
	obj, ok := r.objects[candidate.ID()]
	return ok && obj == candidate
}

// Release помечает объект удаленным: он исключается из последующих
// снапшотов, но остается адресуемым по ID и ID не освобождается.
func (r *Registry) Release(id string) {
	if _, ok := r.objects[id]; ok {
		r.removed[id] = true
	}
}

// EachLive обходит не-удаленные объекты в порядке создания.
func (r *Registry) EachLive(fn func(obj Object)) {
	for _, id := range r.order {
		if r.removed[id] {
			continue
		}
		fn(r.objects[id])
	}
}
