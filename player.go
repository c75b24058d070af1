package main

// Status tracks where a player currently is in the matchmaking flow.
type Status int

const (
	StatusOffline Status = iota
	StatusLobby
	StatusInRoom
	StatusPlaying
)

func (s Status) String() string {
	switch s {
	case StatusOffline:
		return "offline"
	case StatusLobby:
		return "lobby"
	case StatusInRoom:
		return "in_room"
	case StatusPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// noRoom marks a player as unassigned.
const noRoom = -1

// Player is the per-account session state. One Player exists per known
// account, created at startup and reused across logins. Everything except
// Name is guarded by the table lock.
type Player struct {
	Name string

	status Status
	roomID int
	conn   conn

	// partnerVanished absorbs a guess already in flight when the round was
	// resolved by the partner's disconnect. The next message from this
	// player is discarded, and the latch cleared.
	partnerVanished bool
}

func newPlayer(name string) *Player {
	return &Player{
		Name:   name,
		roomID: noRoom,
	}
}

func (p *Player) login(c conn) {
	p.status = StatusLobby
	p.conn = c
}

func (p *Player) joinRoom(id int) {
	p.roomID = id
	p.status = StatusInRoom
}

func (p *Player) endGame() {
	p.roomID = noRoom
	p.status = StatusLobby
}

func (p *Player) logOff() {
	p.roomID = noRoom
	p.status = StatusOffline
	p.conn = nil
	p.partnerVanished = false
}
