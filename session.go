package main

import (
	"github.com/rs/zerolog/log"
)

// conn abstracts one bidirectional message stream so the session handler can
// drive TCP sockets and websockets alike. writeMessage may be invoked from a
// partner's handler goroutine and must be safe for concurrent use.
type conn interface {
	readMessage() (string, error)
	writeMessage(msg string) error
	close() error
	remoteAddr() string
}

// session drives a single connection through authentication and then the
// command loop against the shared table.
type session struct {
	table *Table
	creds *CredentialStore
	conn  conn

	player *Player
}

func newSession(table *Table, creds *CredentialStore, c conn) *session {
	return &session{
		table: table,
		creds: creds,
		conn:  c,
	}
}

// run handles the connection until logout or transport failure. Any read or
// write error after login triggers removal cleanup, including the forfeit
// push to a playing partner.
func (s *session) run() {
	defer s.conn.close()

	log.Debug().Str("remote", s.conn.remoteAddr()).Msg("connection opened")

	if !s.authenticate() {
		log.Debug().Str("remote", s.conn.remoteAddr()).Msg("connection closed before login")
		return
	}

	s.commandLoop()
}

// authenticate loops until a valid login arrives or the transport fails.
// Failed attempts are answered but never drop the connection.
func (s *session) authenticate() bool {
	for {
		raw, err := s.conn.readMessage()
		if err != nil {
			return false
		}

		if login, ok := parseCommand(raw).(cmdLogin); ok && s.creds.Verify(login.name, login.secret) {
			s.player = s.table.Login(login.name, s.conn)
			if err := s.conn.writeMessage(reply(codeAuthOK)); err != nil {
				s.cleanup()
				return false
			}

			log.Info().
				Str("player", s.player.Name).
				Str("remote", s.conn.remoteAddr()).
				Msg("player logged in")

			return true
		}

		if err := s.conn.writeMessage(reply(codeAuthFailed)); err != nil {
			return false
		}
	}
}

func (s *session) commandLoop() {
	for s.table.Status(s.player) != StatusOffline {
		raw, err := s.conn.readMessage()
		if err != nil {
			s.cleanup()
			return
		}

		// A guess already in flight when the round was resolved by the
		// partner's forfeit is absorbed here, without a reply.
		if s.table.ConsumeVanished(s.player) {
			continue
		}

		if err := s.dispatch(parseCommand(raw)); err != nil {
			s.cleanup()
			return
		}
	}
}

func (s *session) dispatch(cmd command) error {
	switch c := cmd.(type) {
	case cmdList:
		return s.conn.writeMessage(listReply(s.table.ListRooms()))

	case cmdEnter:
		return s.handleEnter(c.room)

	case cmdGuess:
		return s.handleGuess(c.value)

	case cmdExit:
		if s.table.Status(s.player) != StatusLobby {
			return s.conn.writeMessage(reply(codeUnrecognized))
		}

		s.table.RemovePlayer(s.player)
		log.Info().Str("player", s.player.Name).Msg("player logged out")

		return s.conn.writeMessage(reply(codeBye))

	default:
		return s.conn.writeMessage(reply(codeUnrecognized))
	}
}

func (s *session) handleEnter(number int) error {
	if s.table.Status(s.player) != StatusLobby {
		return s.conn.writeMessage(reply(codeUnrecognized))
	}

	result, partner := s.table.JoinRoom(s.player, number-1)

	switch result {
	case JoinWaiting:
		return s.conn.writeMessage(reply(codeWait))
	case JoinPaired:
		s.notify(partner, reply(codeGameStarted))

		log.Info().
			Str("player", s.player.Name).
			Str("partner", partner.player.Name).
			Int("room", number).
			Msg("players paired")

		return s.conn.writeMessage(reply(codeGameStarted))
	case JoinFull:
		return s.conn.writeMessage(reply(codeRoomFull))
	default:
		return s.conn.writeMessage(reply(codeUnrecognized))
	}
}

func (s *session) handleGuess(value bool) error {
	if s.table.Status(s.player) != StatusPlaying {
		return s.conn.writeMessage(reply(codeUnrecognized))
	}

	g := GuessFalse
	if value {
		g = GuessTrue
	}

	result, outcome, partner := s.table.SubmitGuess(s.player, g)
	if result != GuessResolved {
		// The reply arrives with resolution, or not at all.
		return nil
	}

	s.notify(partner, reply(outcomeCode(outcome.opposite())))

	log.Info().
		Str("player", s.player.Name).
		Str("partner", partner.player.Name).
		Int("outcome", outcomeCode(outcome)).
		Msg("round resolved")

	return s.conn.writeMessage(reply(outcomeCode(outcome)))
}

// notify pushes a message to a partner's connection, outside the table lock.
// A failed write means that partner is gone too, and folds into its own
// removal cleanup.
func (s *session) notify(n *notification, msg string) {
	if n == nil || n.conn == nil {
		return
	}

	if err := n.conn.writeMessage(msg); err != nil {
		log.Debug().Str("player", n.player.Name).Err(err).Msg("partner notification failed")
		s.removeWithForfeit(n.player)
	}
}

// removeWithForfeit removes a player from the table and delivers the forfeit
// win to its partner, if one was still in the round. Safe to reach twice for
// the same player; the second removal is a no-op.
func (s *session) removeWithForfeit(p *Player) {
	if partner := s.table.RemovePlayer(p); partner != nil {
		s.notify(partner, reply(codeWin))
	}
}

func (s *session) cleanup() {
	log.Info().
		Str("player", s.player.Name).
		Str("remote", s.conn.remoteAddr()).
		Msg("connection lost")

	s.removeWithForfeit(s.player)
}
