package lobby

import (
	"testing"

	"github.com/ai-rumble/Cerveau/internal/game"
	"github.com/ai-rumble/Cerveau/internal/server"
	"github.com/ai-rumble/Cerveau/pkg/api"
)

func testLobby() *Lobby {
	cat := game.NewCatalog()
	cat.Register("demo", func() (*game.Module, error) {
		return &game.Module{Name: "demo", PlayerCount: 2}, nil
	})
	return New(cat, nil)
}

func TestRequestSessionAnyJoinsOpen(t *testing.T) {
	l := testLobby()

	first := l.RequestSession("nim", "*", 2)
	first.Clients = append(first.Clients, server.NewClient(nil))

	second := l.RequestSession("nim", "*", 2)
	if second != first {
		t.Error("Expected '*' to join the existing open session")
	}

	// Empty requested session behaves the same.
	third := l.RequestSession("nim", "", 2)
	if third != first {
		t.Error("Expected empty request to join the existing open session")
	}
}

func TestRequestSessionNewAlwaysCreates(t *testing.T) {
	l := testLobby()

	first := l.RequestSession("nim", "new", 2)
	second := l.RequestSession("nim", "new", 2)
	if first == second {
		t.Error("Expected 'new' to always create a fresh session")
	}
	if first.ID == second.ID {
		t.Errorf("Expected distinct session IDs, got %s twice", first.ID)
	}
}

func TestRequestSessionExactID(t *testing.T) {
	l := testLobby()

	sess := l.RequestSession("nim", "new", 2)
	joined := l.RequestSession("nim", sess.ID, 2)
	if joined != sess {
		t.Error("Expected exact ID to join that session")
	}

	// Unknown ID falls back to a new session.
	fresh := l.RequestSession("nim", "no-such-id", 2)
	if fresh == sess {
		t.Error("Expected unknown ID to create a new session")
	}
}

func TestRequestSessionFullIsClosed(t *testing.T) {
	l := testLobby()

	sess := l.RequestSession("nim", "*", 1)
	sess.Clients = append(sess.Clients, server.NewClient(nil))
	if sess.Open() {
		t.Fatal("Expected full session to be closed")
	}

	next := l.RequestSession("nim", "*", 1)
	if next == sess {
		t.Error("Expected full session to be skipped")
	}
}

func TestRequestSessionDispatchedIneligible(t *testing.T) {
	l := testLobby()

	sess := l.RequestSession("nim", "*", 2)
	sess.dispatched = true

	next := l.RequestSession("nim", sess.ID, 2)
	if next == sess {
		t.Error("Expected dispatched session not to accept late joiners")
	}
}

func TestRequestSessionSeparatePerGame(t *testing.T) {
	l := testLobby()

	nim := l.RequestSession("nim", "*", 2)
	guess := l.RequestSession("guess", "*", 2)
	if nim == guess {
		t.Error("Expected sessions to be scoped per game")
	}
}

func TestPlaySeatsClientByID(t *testing.T) {
	l := testLobby()
	c := server.NewClient(nil)

	l.clientSentPlay(c, api.PlayData{GameName: "demo", PlayerName: "alice"})

	sess, ok := l.byClient[c.ID]
	if !ok {
		t.Fatal("Expected client tracked by its connection ID")
	}
	if len(sess.Clients) != 1 || sess.Clients[0] != c {
		t.Errorf("Expected client seated once, got %d seats", len(sess.Clients))
	}
	if c.Name != "alice" {
		t.Errorf("Expected player name recorded, got %q", c.Name)
	}
}

func TestSecondPlayRejected(t *testing.T) {
	l := testLobby()
	c := server.NewClient(nil)

	l.clientSentPlay(c, api.PlayData{GameName: "demo"})
	l.clientSentPlay(c, api.PlayData{GameName: "demo"})

	sess := l.byClient[c.ID]
	if len(sess.Clients) != 1 {
		t.Fatalf("Expected one seat for one socket, got %d", len(sess.Clients))
	}
	if sess.Full() {
		t.Error("Expected session still waiting for a second player")
	}
}

func TestSessionRemove(t *testing.T) {
	a, b := server.NewClient(nil), server.NewClient(nil)
	sess := &Session{GameName: "nim", ID: "1", PlayerCount: 2, Clients: []*server.Client{a, b}}

	sess.remove(a)
	if len(sess.Clients) != 1 || sess.Clients[0] != b {
		t.Errorf("Expected only b left, got %v clients", len(sess.Clients))
	}
	if !sess.Open() {
		t.Error("Expected session reopened after a client left")
	}
}
