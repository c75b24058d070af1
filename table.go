package main

import (
	"sync"
)

// JoinResult is the outcome of a room join attempt.
type JoinResult int

const (
	JoinWaiting JoinResult = iota
	JoinPaired
	JoinFull
	JoinInvalid
)

// GuessResult is the outcome of a guess submission.
type GuessResult int

const (
	GuessWait GuessResult = iota
	GuessResolved
	GuessNoPartner
)

// notification is a partner push captured under the table lock: the partner
// and the connection it held at that moment. The actual write happens after
// the lock is released, so a stale connection is possible and a failed write
// is treated as that partner having disconnected.
type notification struct {
	player *Player
	conn   conn
}

// Table is the authoritative shared state: the fixed set of rooms plus the
// players known at startup. A single mutex serializes every mutation of room
// occupancy, guesses, and player status; network writes never happen while
// it is held.
type Table struct {
	mu      sync.Mutex
	rooms   []*Room
	players map[string]*Player
}

func NewTable(names []string, roomCount int) *Table {
	t := &Table{
		players: make(map[string]*Player, len(names)),
	}

	for i := 0; i < roomCount; i++ {
		t.rooms = append(t.rooms, newRoom(i))
	}
	for _, name := range names {
		t.players[name] = newPlayer(name)
	}

	return t
}

func (t *Table) RoomCount() int {
	return len(t.rooms)
}

// Login binds a live connection to the named player and moves it to the
// lobby. Returns nil for unknown accounts.
func (t *Table) Login(name string, c conn) *Player {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.players[name]
	if !ok {
		return nil
	}
	p.login(c)

	return p
}

// Status reports p's current status.
func (t *Table) Status(p *Player) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	return p.status
}

// ConsumeVanished reports and clears the partner-vanished latch, discarding
// one in-flight message from a player whose round was resolved by forfeit.
func (t *Table) ConsumeVanished(p *Player) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !p.partnerVanished {
		return false
	}
	p.partnerVanished = false

	return true
}

// ListRooms snapshots the occupancy count of every room.
func (t *Table) ListRooms() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts := make([]int, len(t.rooms))
	for i, r := range t.rooms {
		counts[i] = r.count()
	}

	return counts
}

// JoinRoom places p into the room at index id. The second occupant to arrive
// completes the pair: both players transition to playing atomically, and the
// waiting partner is handed back for a game-started push.
func (t *Table) JoinRoom(p *Player, id int) (JoinResult, *notification) {
	if id < 0 || id >= len(t.rooms) {
		return JoinInvalid, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	room := t.rooms[id]

	switch room.count() {
	case 0:
		room.addPlayer(p)
		p.joinRoom(id)
		return JoinWaiting, nil
	case 1:
		room.addPlayer(p)
		p.joinRoom(id)

		partner := room.partnerOf(p)
		p.status = StatusPlaying
		partner.status = StatusPlaying

		return JoinPaired, &notification{player: partner, conn: partner.conn}
	default:
		return JoinFull, nil
	}
}

// SubmitGuess records p's guess and, once both guesses are present, resolves
// the round: the room is reset, both players return to the lobby, and the
// partner is handed back together with p's outcome so the caller can push
// the opposite framing. Before the partner has guessed it reports GuessWait
// and leaves the room intact. This is the only operation that resets a room
// outside of disconnect handling.
func (t *Table) SubmitGuess(p *Player, g Guess) (GuessResult, Outcome, *notification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.status != StatusPlaying || p.roomID == noRoom {
		return GuessNoPartner, OutcomeWait, nil
	}

	room := t.rooms[p.roomID]
	partner := room.partnerOf(p)
	if partner == nil {
		return GuessNoPartner, OutcomeWait, nil
	}

	room.setGuess(p, g)
	outcome := room.resolve(p)
	if outcome == OutcomeWait {
		return GuessWait, OutcomeWait, nil
	}

	room.reset()
	p.endGame()
	partner.endGame()

	return GuessResolved, outcome, &notification{player: partner, conn: partner.conn}
}

// RemovePlayer handles logout and connection failure. A playing partner wins
// by forfeit: it returns to the lobby, has the vanished latch set if its own
// guess was still pending, and is handed back so the caller can push the
// forfeit win. Any room p occupied is reset. Removing an already-offline
// player is a no-op, which makes cleanup safe to invoke twice.
func (t *Table) RemovePlayer(p *Player) *notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	var partner *notification

	if p.status == StatusPlaying {
		room := t.rooms[p.roomID]
		if other := room.partnerOf(p); other != nil {
			if room.guessOf(other) == GuessUnset {
				other.partnerVanished = true
			}
			partner = &notification{player: other, conn: other.conn}
			other.endGame()
		}
	}

	if p.status == StatusInRoom || p.status == StatusPlaying {
		t.rooms[p.roomID].reset()
	}

	p.logOff()

	return partner
}
