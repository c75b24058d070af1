package main

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// pipeConn is an in-memory conn implementation driven by the tests: the test
// plays the client, the session under test plays the server.
type pipeConn struct {
	in     chan string
	out    chan string
	closed chan struct{}
	once   sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		in:     make(chan string, 16),
		out:    make(chan string, 16),
		closed: make(chan struct{}),
	}
}

func (c *pipeConn) readMessage() (string, error) {
	select {
	case msg := <-c.in:
		return msg, nil
	case <-c.closed:
		return "", io.EOF
	}
}

func (c *pipeConn) writeMessage(msg string) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	default:
	}

	select {
	case c.out <- msg:
		return nil
	case <-c.closed:
		return io.ErrClosedPipe
	}
}

func (c *pipeConn) close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *pipeConn) remoteAddr() string {
	return "pipe"
}

func (c *pipeConn) send(t *testing.T, msg string) {
	t.Helper()

	select {
	case c.in <- msg:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out sending to session")
	}
}

func (c *pipeConn) recv(t *testing.T) string {
	t.Helper()

	select {
	case msg := <-c.out:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reply")
		return ""
	}
}

func (c *pipeConn) recvCode(t *testing.T) int {
	t.Helper()

	msg := c.recv(t)
	code, err := strconv.Atoi(strings.Fields(msg)[0])
	if err != nil {
		t.Fatalf("reply %q does not start with a status code", msg)
	}

	return code
}

type testServer struct {
	table *Table
	creds *CredentialStore
}

func newTestServer(names ...string) *testServer {
	secrets := make(map[string]string, len(names))
	for _, name := range names {
		secrets[name] = name + "-secret"
	}

	return &testServer{
		table: NewTable(names, 10),
		creds: &CredentialStore{secrets: secrets},
	}
}

// connect starts a session goroutine and returns its client end plus a
// channel closed when the session terminates.
func (ts *testServer) connect(t *testing.T) (*pipeConn, chan struct{}) {
	t.Helper()

	c := newPipeConn()
	done := make(chan struct{})

	go func() {
		defer close(done)
		newSession(ts.table, ts.creds, c).run()
	}()

	t.Cleanup(func() {
		c.close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("session did not terminate")
		}
	})

	return c, done
}

func (ts *testServer) login(t *testing.T, name string) (*pipeConn, chan struct{}) {
	t.Helper()

	c, done := ts.connect(t)
	c.send(t, "login "+name+" "+name+"-secret")
	if code := c.recvCode(t); code != codeAuthOK {
		t.Fatalf("login reply = %d, want %d", code, codeAuthOK)
	}

	return c, done
}

func TestAuthenticationLoop(t *testing.T) {
	ts := newTestServer("alice")
	c, _ := ts.connect(t)

	c.send(t, "login alice wrong")
	if code := c.recvCode(t); code != codeAuthFailed {
		t.Fatalf("wrong secret reply = %d, want %d", code, codeAuthFailed)
	}

	c.send(t, "login mallory mallory-secret")
	if code := c.recvCode(t); code != codeAuthFailed {
		t.Fatalf("unknown account reply = %d, want %d", code, codeAuthFailed)
	}

	c.send(t, "list")
	if code := c.recvCode(t); code != codeAuthFailed {
		t.Fatalf("non-login message reply = %d, want %d", code, codeAuthFailed)
	}

	c.send(t, "login alice alice-secret")
	if code := c.recvCode(t); code != codeAuthOK {
		t.Fatalf("valid login reply = %d, want %d", code, codeAuthOK)
	}
}

func TestListShowsOccupancy(t *testing.T) {
	ts := newTestServer("alice", "bob")
	a, _ := ts.login(t, "alice")

	a.send(t, "list")
	if got := a.recv(t); got != "3001 10 0 0 0 0 0 0 0 0 0 0" {
		t.Fatalf("empty list reply = %q", got)
	}

	a.send(t, "enter 2")
	if code := a.recvCode(t); code != codeWait {
		t.Fatalf("enter reply = %d, want %d", code, codeWait)
	}

	b, _ := ts.login(t, "bob")
	b.send(t, "list")
	if got := b.recv(t); got != "3001 10 0 1 0 0 0 0 0 0 0 0" {
		t.Fatalf("list reply with one waiting player = %q", got)
	}
}

func TestPairAndTie(t *testing.T) {
	ts := newTestServer("alice", "bob")
	a, _ := ts.login(t, "alice")
	b, _ := ts.login(t, "bob")

	a.send(t, "enter 1")
	if code := a.recvCode(t); code != codeWait {
		t.Fatalf("first enter reply = %d, want %d", code, codeWait)
	}

	b.send(t, "enter 1")
	if code := b.recvCode(t); code != codeGameStarted {
		t.Fatalf("second enter reply = %d, want %d", code, codeGameStarted)
	}
	if code := a.recvCode(t); code != codeGameStarted {
		t.Fatalf("pairing push = %d, want %d", code, codeGameStarted)
	}

	a.send(t, "guess true")
	b.send(t, "guess true")

	if code := a.recvCode(t); code != codeTie {
		t.Fatalf("alice outcome = %d, want %d", code, codeTie)
	}
	if code := b.recvCode(t); code != codeTie {
		t.Fatalf("bob outcome = %d, want %d", code, codeTie)
	}

	a.send(t, "list")
	if got := a.recv(t); got != "3001 10 0 0 0 0 0 0 0 0 0 0" {
		t.Fatalf("room not empty after tie: %q", got)
	}
}

func TestPairWinLose(t *testing.T) {
	ts := newTestServer("alice", "bob")
	a, _ := ts.login(t, "alice")
	b, _ := ts.login(t, "bob")

	a.send(t, "enter 3")
	a.recvCode(t)
	b.send(t, "enter 3")
	b.recvCode(t)
	a.recvCode(t)

	a.send(t, "guess true")
	b.send(t, "guess false")

	aCode := a.recvCode(t)
	bCode := b.recvCode(t)

	switch {
	case aCode == codeWin && bCode == codeLose:
	case aCode == codeLose && bCode == codeWin:
	default:
		t.Fatalf("outcomes = (%d, %d), want one winner and one loser", aCode, bCode)
	}
}

func TestDisconnectForfeit(t *testing.T) {
	ts := newTestServer("alice", "bob")
	a, aDone := ts.login(t, "alice")
	b, _ := ts.login(t, "bob")

	a.send(t, "enter 3")
	a.recvCode(t)
	b.send(t, "enter 3")
	b.recvCode(t)
	a.recvCode(t)

	a.close()
	<-aDone

	if code := b.recvCode(t); code != codeWin {
		t.Fatalf("forfeit notification = %d, want %d", code, codeWin)
	}

	// The guess already in flight is absorbed without a reply or any state
	// change; the next message is answered normally.
	b.send(t, "guess true")
	b.send(t, "list")
	if got := b.recv(t); got != "3001 10 0 0 0 0 0 0 0 0 0 0" {
		t.Fatalf("state after forfeit = %q, want all rooms empty", got)
	}
}

func TestDisconnectWhileWaitingAlone(t *testing.T) {
	ts := newTestServer("alice", "bob")
	a, aDone := ts.login(t, "alice")

	a.send(t, "enter 1")
	if code := a.recvCode(t); code != codeWait {
		t.Fatalf("enter reply = %d, want %d", code, codeWait)
	}

	a.close()
	<-aDone

	b, _ := ts.login(t, "bob")
	b.send(t, "list")
	if got := b.recv(t); got != "3001 10 0 0 0 0 0 0 0 0 0 0" {
		t.Fatalf("room not reset after lone disconnect: %q", got)
	}
}

func TestRoomFull(t *testing.T) {
	ts := newTestServer("alice", "bob", "carol")
	a, _ := ts.login(t, "alice")
	b, _ := ts.login(t, "bob")
	c, _ := ts.login(t, "carol")

	a.send(t, "enter 5")
	a.recvCode(t)
	b.send(t, "enter 5")
	b.recvCode(t)
	a.recvCode(t)

	c.send(t, "enter 5")
	if code := c.recvCode(t); code != codeRoomFull {
		t.Fatalf("third enter reply = %d, want %d", code, codeRoomFull)
	}

	c.send(t, "list")
	if got := c.recv(t); got != "3001 10 0 0 0 0 2 0 0 0 0 0" {
		t.Fatalf("occupancy after rejected join = %q", got)
	}
}

func TestUnrecognizedMessages(t *testing.T) {
	ts := newTestServer("alice", "bob")
	a, _ := ts.login(t, "alice")

	for _, msg := range []string{
		"dance",
		"guess true", // not playing
		"enter 99",   // out of range
		"enter zero",
		"exit now",
	} {
		a.send(t, msg)
		if code := a.recvCode(t); code != codeUnrecognized {
			t.Errorf("%q reply = %d, want %d", msg, code, codeUnrecognized)
		}
	}

	// Lobby-only verbs are unrecognized while playing.
	b, _ := ts.login(t, "bob")
	a.send(t, "enter 1")
	a.recvCode(t)
	b.send(t, "enter 1")
	b.recvCode(t)
	a.recvCode(t)

	for _, msg := range []string{"enter 2", "exit"} {
		a.send(t, msg)
		if code := a.recvCode(t); code != codeUnrecognized {
			t.Errorf("%q while playing reply = %d, want %d", msg, code, codeUnrecognized)
		}
	}
}

func TestExit(t *testing.T) {
	ts := newTestServer("alice")
	a, done := ts.login(t, "alice")

	a.send(t, "exit")
	if code := a.recvCode(t); code != codeBye {
		t.Fatalf("exit reply = %d, want %d", code, codeBye)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session kept running after exit")
	}

	if got := ts.table.Status(ts.table.players["alice"]); got != StatusOffline {
		t.Fatalf("status after exit = %v, want offline", got)
	}
}
