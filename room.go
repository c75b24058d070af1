/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
)

// Guess is a submitted boolean guess. Unset until the player chooses.
type Guess int8

const (
	GuessUnset Guess = iota - 1
	GuessFalse
	GuessTrue
)

// Outcome is one player's result for a round.
type Outcome int

const (
	OutcomeWait Outcome = iota
	OutcomeWin
	OutcomeLose
	OutcomeTie
)

// opposite maps an outcome to the partner's framing of the same round.
func (o Outcome) opposite() Outcome {
	switch o {
	case OutcomeWin:
		return OutcomeLose
	case OutcomeLose:
		return OutcomeWin
	default:
		return o
	}
}

type occupant struct {
	player *Player
	guess  Guess
}

// Room is a fixed pairing slot holding at most two players, their guesses,
// and the arbitration coin. Rooms are pre-allocated at startup and cycle
// through empty → waiting → playing → resolved → empty without ever being
// deallocated. All access happens under the table lock.
type Room struct {
	id        int
	occupants []occupant
	coin      Guess
}

func newRoom(id int) *Room {
	return &Room{
		id:   id,
		coin: GuessUnset,
	}
}

func (r *Room) count() int {
	return len(r.occupants)
}

func (r *Room) addPlayer(p *Player) {
	r.occupants = append(r.occupants, occupant{player: p, guess: GuessUnset})
}

// partnerOf returns the other occupant, or nil while p waits alone.
func (r *Room) partnerOf(p *Player) *Player {
	for _, o := range r.occupants {
		if o.player != p {
			return o.player
		}
	}
	return nil
}

func (r *Room) setGuess(p *Player, g Guess) {
	for i := range r.occupants {
		if r.occupants[i].player == p {
			r.occupants[i].guess = g
		}
	}
}

func (r *Room) guessOf(p *Player) Guess {
	for _, o := range r.occupants {
		if o.player == p {
			return o.guess
		}
	}
	return GuessUnset
}

// flipCoin draws the room's arbitration bit. The coin is drawn at most once
// per round; re-entry before reset reuses the first draw.
func (r *Room) flipCoin() {
	if r.coin != GuessUnset {
		return
	}

	var b [1]byte
	if _, err := rand.Read(b[:]); err == nil && b[0]&1 == 1 {
		r.coin = GuessTrue
	} else {
		r.coin = GuessFalse
	}
}

// resolve computes the round outcome for p. Until both guesses are present
// it reports OutcomeWait and has no side effect. Equal guesses tie; when the
// guesses differ the coin decides, making the round a fair flip between the
// two disagreeing players.
func (r *Room) resolve(p *Player) Outcome {
	partner := r.partnerOf(p)
	if partner == nil || r.guessOf(partner) == GuessUnset || r.guessOf(p) == GuessUnset {
		return OutcomeWait
	}

	own := r.guessOf(p)
	if own == r.guessOf(partner) {
		return OutcomeTie
	}

	r.flipCoin()
	if r.coin == own {
		return OutcomeWin
	}
	return OutcomeLose
}

// reset returns the room to its canonical empty state: no occupants, no coin.
func (r *Room) reset() {
	r.occupants = r.occupants[:0]
	r.coin = GuessUnset
}
