package lobby

import "github.com/ai-rumble/Cerveau/internal/server"

// Session - запись матчинга: кого уже набрали в партию такой-то игры.
// Жизненный цикл: открыта -> заполнена -> отдана воркеру. Отданная
// сессия навсегда покидает открытый пул лобби.
type Session struct {
	GameName string
	ID       string

	// Clients - подобранные подключения в порядке посадки.
	Clients []*server.Client

	// PlayerCount - сколько игроков требует игра.
	PlayerCount int

	dispatched bool
}

// Open - можно ли досаживать в сессию еще игроков.
func (s *Session) Open() bool {
	return !s.dispatched && len(s.Clients) < s.PlayerCount
}

// Full - набран полный состав.
func (s *Session) Full() bool {
	return len(s.Clients) >= s.PlayerCount
}

func (s *Session) remove(c *server.Client) {
	for i, existing := range s.Clients {
		if existing == c {
			s.Clients = append(s.Clients[:i], s.Clients[i+1:]...)
			return
		}
	}
}
