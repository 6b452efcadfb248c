// Package lobby - входная точка для клиентов: принимает подключения,
// группирует их в сессии по имени игры и, когда сессия набрана,
// передает её вместе с сокетами изолированному воркеру.
package lobby

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ai-rumble/Cerveau/internal/game"
	"github.com/ai-rumble/Cerveau/internal/gamelog"
	"github.com/ai-rumble/Cerveau/internal/server"
	"github.com/ai-rumble/Cerveau/internal/state"
	"github.com/ai-rumble/Cerveau/internal/worker"
	"github.com/ai-rumble/Cerveau/pkg/api"
	"github.com/ai-rumble/Cerveau/pkg/logger"
)

// Значения requestedSession с особым смыслом.
const (
	// SessionAny - посади меня в любую открытую сессию этой игры.
	SessionAny = "*"
	// SessionNew - всегда создавай новую сессию.
	SessionNew = "new"
)

// SharedConstants уходят каждому клиенту в lobbied, чтобы клиентские
// библиотеки одинаково с сервером кодировали дельты и ссылки.
var SharedConstants = api.Constants{
	DeltaRemoved:    "&removed",
	DeltaListLength: state.LenKey,
	GameObjectRef:   state.RefKey,
}

// Lobby - единственная горутина, владеющая еще-не-отданными сессиями.
// После передачи воркеру лобби сессию и её сокеты больше не трогает -
// только пересылает опоздавшие события (см. routes).
type Lobby struct {
	catalog  *game.Catalog
	gamelogs *gamelog.Logger

	events chan server.Event

	// sessions: имя игры -> id сессии -> сессия (только открытые).
	sessions    map[string]map[string]*Session
	nextSession int

	// byClient - в какой открытой сессии сидит клиент (для дисконнектов
	// и отсечения повторных play).
	byClient map[uuid.UUID]*Session

	// routes - куда пересылать события клиентов, уже переданных воркерам.
	// Сообщение могло успеть попасть в очередь лобби до переключения
	// sink-а; терять его нельзя.
	routes map[uuid.UUID]route

	log *logrus.Entry
}

// route - маршрут к воркеру: его inbox и сигнал завершения.
// Пока воркер жив, пересылка блокирующая - переполненный на мгновение
// inbox не повод терять сообщение; после done канал никто не читает.
type route struct {
	inbox chan<- server.Event
	done  <-chan struct{}
}

func New(catalog *game.Catalog, gamelogs *gamelog.Logger) *Lobby {
	return &Lobby{
		catalog:     catalog,
		gamelogs:    gamelogs,
		events:      make(chan server.Event, 64),
		sessions:    map[string]map[string]*Session{},
		nextSession: 1,
		byClient:    map[uuid.UUID]*Session{},
		routes:      map[uuid.UUID]route{},
		log:         logger.Log.WithField("component", "lobby"),
	}
}

// Adopt передает лобби владение свежим подключением.
// Вызывается HTTP-сервером до запуска пампов клиента.
func (l *Lobby) Adopt(c *server.Client) {
	c.SetSink(l.events)
}

// Run - цикл лобби. Запускается один раз в собственной горутине.
func (l *Lobby) Run() {
	l.log.Info("Lobby started")
	for ev := range l.events {
		// Клиент уже у воркера - событие не наше, пересылаем.
		if r, ok := l.routes[ev.Client.ID]; ok {
			select {
			case r.inbox <- ev:
			case <-r.done:
				// Воркер завершился, сообщение никому не нужно.
			}
			if ev.Err != nil {
				delete(l.routes, ev.Client.ID)
			}
			continue
		}
		l.handle(ev)
	}
}

func (l *Lobby) handle(ev server.Event) {
	if ev.Err != nil {
		l.clientGone(ev.Client)
		return
	}

	if ev.Msg.Event != api.EventPlay {
		_ = ev.Client.Send(api.EventInvalid, api.InvalidData{
			Message: "expected play, got: " + ev.Msg.Event,
		})
		return
	}

	var data api.PlayData
	if err := json.Unmarshal(ev.Msg.Data, &data); err != nil {
		l.reject(ev.Client, "malformed play data", nil)
		return
	}
	if err := data.Validate(); err != nil {
		l.reject(ev.Client, err.Error(), data)
		return
	}

	l.clientSentPlay(ev.Client, data)
}

// clientSentPlay - клиент сказал, во что и за кого он хочет играть.
func (l *Lobby) clientSentPlay(c *server.Client, data api.PlayData) {
	// Один сокет - одно место. Повторный play занял бы второе место
	// тем же соединением, и воркер никогда не набрал бы живой состав.
	if _, seated := l.byClient[c.ID]; seated {
		_ = c.Send(api.EventInvalid, api.InvalidData{
			Message: "already waiting in a session",
		})
		return
	}

	// Загрузка модуля правил при первом обращении. Неудача фатальна
	// только для этого клиента.
	module, err := l.catalog.Load(data.GameName)
	if err != nil {
		l.log.WithError(err).Warn("Rejecting client: bad game")
		l.reject(c, "invalid game: "+data.GameName, data)
		return
	}

	sess := l.RequestSession(data.GameName, data.RequestedSession, module.PlayerCount)

	c.Name = data.PlayerName
	c.Type = data.ClientType
	sess.Clients = append(sess.Clients, c)
	l.byClient[c.ID] = sess

	_ = c.Send(api.EventLobbied, api.LobbiedData{
		GameName:    sess.GameName,
		GameSession: sess.ID,
		Constants:   SharedConstants,
	})

	l.log.WithFields(logrus.Fields{
		"client":  c.ID,
		"game":    sess.GameName,
		"session": sess.ID,
		"players": len(sess.Clients),
		"needed":  sess.PlayerCount,
	}).Info("Client lobbied")

	if sess.Full() {
		l.dispatch(sess, module)
	}
}

// RequestSession находит открытую сессию под запрос клиента или
// создает новую. requestedID: точный id, "*"/пусто - любая открытая,
// "new" - всегда новая.
func (l *Lobby) RequestSession(gameName, requestedID string, playerCount int) *Session {
	open := l.sessions[gameName]
	if open == nil {
		open = map[string]*Session{}
		l.sessions[gameName] = open
	}

	if requestedID != SessionNew {
		if requestedID == SessionAny || requestedID == "" {
			for _, sess := range open {
				if sess.Open() {
					return sess
				}
			}
		} else if sess, ok := open[requestedID]; ok && sess.Open() {
			return sess
		}
	}

	sess := &Session{
		GameName:    gameName,
		ID:          strconv.Itoa(l.nextSession),
		PlayerCount: playerCount,
	}
	l.nextSession++
	open[sess.ID] = sess
	return sess
}

// dispatch отдает набранную сессию воркеру. С этого шага сокеты
// участников принадлежат воркеру: sink каждого клиента переключается
// на его inbox, а лобби лишь пересылает туда то, что успело осесть
// в его собственной очереди.
func (l *Lobby) dispatch(sess *Session, module *game.Module) {
	sess.dispatched = true
	delete(l.sessions[sess.GameName], sess.ID)

	w := worker.New(module, sess.ID, sess.Clients, func(gl *gamelog.Gamelog) {
		if l.gamelogs == nil {
			return
		}
		if path, err := l.gamelogs.Write(gl); err != nil {
			l.log.WithError(err).Error("Failed to write gamelog")
		} else {
			l.log.WithField("path", path).Info("Gamelog written")
		}
	})

	for _, c := range sess.Clients {
		c.SetSink(w.Inbox())
		l.routes[c.ID] = route{inbox: w.Inbox(), done: w.Done()}
		delete(l.byClient, c.ID)
	}

	l.log.WithFields(logrus.Fields{
		"game":    sess.GameName,
		"session": sess.ID,
	}).Info("🚀 Session dispatched to worker")

	go w.Run()
}

// clientGone - обрыв соединения клиента, который еще сидит в лобби.
func (l *Lobby) clientGone(c *server.Client) {
	if sess, ok := l.byClient[c.ID]; ok {
		sess.remove(c)
		delete(l.byClient, c.ID)
		l.log.WithFields(logrus.Fields{
			"client":  c.ID,
			"game":    sess.GameName,
			"session": sess.ID,
		}).Info("Client left lobby")
	}
}

// reject - отказ клиенту с закрытием соединения.
func (l *Lobby) reject(c *server.Client, message string, data any) {
	_ = c.Send(api.EventInvalid, api.InvalidData{Message: message, Data: data})
	_ = c.Close()
}
