/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strconv"
	"strings"
)

// Reply status codes. Every server message starts with one of these,
// followed by its phrase.
const (
	codeAuthOK       = 1001
	codeAuthFailed   = 1002
	codeRoomList     = 3001
	codeWait         = 3011
	codeGameStarted  = 3012
	codeRoomFull     = 3013
	codeWin          = 3021
	codeLose         = 3022
	codeTie          = 3023
	codeBye          = 4001
	codeUnrecognized = 4002
)

var phrases = map[int]string{
	codeAuthOK:       "Authentication successful",
	codeAuthFailed:   "Authentication failed",
	codeWait:         "Wait",
	codeGameStarted:  "Game started. Please guess true or false",
	codeRoomFull:     "The room is full",
	codeWin:          "You are the winner",
	codeLose:         "You lost this game",
	codeTie:          "The result is a tie",
	codeBye:          "Bye bye",
	codeUnrecognized: "Unrecognized message",
}

// reply renders a status code and its phrase as one wire message.
func reply(code int) string {
	return fmt.Sprintf("%d %s", code, phrases[code])
}

// listReply renders the room list reply: the code, the room count, and one
// occupancy count per room.
func listReply(counts []int) string {
	var sb strings.Builder

	sb.WriteString(strconv.Itoa(codeRoomList))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(len(counts)))
	for _, c := range counts {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(c))
	}

	return sb.String()
}

func outcomeCode(o Outcome) int {
	switch o {
	case OutcomeWin:
		return codeWin
	case OutcomeLose:
		return codeLose
	default:
		return codeTie
	}
}

// command is the closed set of client messages. Anything that does not parse
// into one of the concrete variants becomes cmdUnknown, which the session
// answers with codeUnrecognized.
type command interface {
	isCommand()
}

type cmdLogin struct {
	name   string
	secret string
}

type cmdList struct{}

// cmdEnter carries the 1-based room number as sent by the client.
type cmdEnter struct {
	room int
}

type cmdGuess struct {
	value bool
}

type cmdExit struct{}

type cmdUnknown struct{}

func (cmdLogin) isCommand()   {}
func (cmdList) isCommand()    {}
func (cmdEnter) isCommand()   {}
func (cmdGuess) isCommand()   {}
func (cmdExit) isCommand()    {}
func (cmdUnknown) isCommand() {}

// parseCommand tokenizes one raw message on whitespace and maps it onto the
// command set.
func parseCommand(raw string) command {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return cmdUnknown{}
	}

	switch tokens[0] {
	case "login":
		if len(tokens) == 3 {
			return cmdLogin{name: tokens[1], secret: tokens[2]}
		}
	case "list":
		if len(tokens) == 1 {
			return cmdList{}
		}
	case "enter":
		if len(tokens) == 2 {
			if n, err := strconv.Atoi(tokens[1]); err == nil {
				return cmdEnter{room: n}
			}
		}
	case "guess":
		if len(tokens) == 2 && (tokens[1] == "true" || tokens[1] == "false") {
			return cmdGuess{value: tokens[1] == "true"}
		}
	case "exit":
		if len(tokens) == 1 {
			return cmdExit{}
		}
	}

	return cmdUnknown{}
}
