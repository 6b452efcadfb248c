package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ai-rumble/Cerveau/pkg/api"
	"github.com/ai-rumble/Cerveau/pkg/logger"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Event - одно входящее сообщение клиента (или обрыв соединения),
// доставленное текущему владельцу: сначала лобби, после диспетчеризации -
// воркеру сессии.
type Event struct {
	Client *Client
	Msg    api.Envelope
	Err    error // не nil означает, что соединение оборвано и больше событий не будет
}

// Client - посредник между websocket-соединением и ядром.
// Сокетом владеет ровно одна пара пампов; кому уходят прочитанные
// сообщения, решает текущий sink (см. SetSink).
type Client struct {
	ID uuid.UUID

	// Name и Type заполняются из play-сообщения.
	Name string
	Type string

	conn *websocket.Conn
	send chan api.Envelope

	mu   sync.Mutex
	sink chan<- Event

	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.New(),
		conn: conn,
		send: make(chan api.Envelope, 256),
	}
}

// SetSink передает поток входящих сообщений новому владельцу.
// Лобби вызывает это при передаче клиента воркеру и с этого момента
// сокет ему больше не принадлежит. Сообщения, успевшие уйти в старый
// sink, старый владелец обязан переслать новому (см. lobby.Run) -
// так ни один байт не теряется на границе передачи.
func (c *Client) SetSink(ch chan<- Event) {
	c.mu.Lock()
	c.sink = ch
	c.mu.Unlock()
}

func (c *Client) currentSink() chan<- Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink
}

// Send сериализует и ставит сообщение в очередь на отправку.
func (c *Client) Send(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	env := api.Envelope{Event: event, Data: raw}

	defer func() {
		// Канал send закрывается в Close; опоздавшая отправка не должна
		// ронять воркер.
		_ = recover()
	}()
	c.send <- env
	return nil
}

// Close закрывает соединение. Повторные вызовы безопасны.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
	return nil
}

// Start запускает пампы чтения и записи.
func (c *Client) Start() {
	go c.readPump()
	go c.writePump()
}

// readPump читает сообщения клиента и доставляет их текущему владельцу.
func (c *Client) readPump() {
	var readErr error
	defer func() {
		if sink := c.currentSink(); sink != nil {
			sink <- Event{Client: c, Err: readErr}
		}
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.WithError(err).Warn("failed to set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env api.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			readErr = err
			return
		}

		sink := c.currentSink()
		if sink == nil {
			continue // владельца еще нет, сообщение до play игнорируется
		}
		sink <- Event{Client: c, Msg: env}
	}
}

// writePump пишет очередь отправки в сокет и держит ping/pong.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}()

	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
