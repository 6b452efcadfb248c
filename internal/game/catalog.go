package game

import (
	"fmt"
	"sync"
)

// Loader лениво собирает модуль правил. Вызывается один раз,
// при первом запросе игры.
type Loader func() (*Module, error)

// Catalog - реестр доступных игр. Один на процесс, создается в main
// и передается лобби явно - глобального состояния здесь нет.
type Catalog struct {
	mu      sync.Mutex
	loaders map[string]Loader
	loaded  map[string]*Module
}

func NewCatalog() *Catalog {
	return &Catalog{
		loaders: map[string]Loader{},
		loaded:  map[string]*Module{},
	}
}

// Register объявляет игру под её именем.
func (c *Catalog) Register(name string, l Loader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaders[name] = l
}

// Load возвращает модуль правил, загружая его при первом обращении.
// Ошибка загрузки фатальна только для клиента, запросившего эту игру:
// каталог остается рабочим, попытка повторится при следующем запросе.
func (c *Catalog) Load(name string) (*Module, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.loaded[name]; ok {
		return m, nil
	}

	l, ok := c.loaders[name]
	if !ok {
		return nil, fmt.Errorf("unknown game %q", name)
	}

	m, err := l()
	if err != nil {
		return nil, fmt.Errorf("loading game %q: %w", name, err)
	}
	if m.PlayerCount <= 0 {
		return nil, fmt.Errorf("game %q declares no players", name)
	}

	c.loaded[name] = m
	return m, nil
}
