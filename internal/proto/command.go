package proto

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	commandPrefix = "/"

	CommandTokenJoinRoom   = "/joinRoom"
	CommandTokenCreateRoom = "/createRoom"
	CommandTokenExitRoom   = "/exitRoom"
)

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandBroadcast sends text to the other occupants of the current room.
	CommandBroadcast CommandKind = iota
	// CommandJoinRoom moves the client into a room.
	CommandJoinRoom
	// CommandCreateRoom creates an empty room.
	CommandCreateRoom
	// CommandExitRoom leaves the current room.
	CommandExitRoom
	// CommandInvalid is a malformed or unknown slash command.
	CommandInvalid
)

func (k CommandKind) String() string {
	switch k {
	case CommandBroadcast:
		return "broadcast"
	case CommandJoinRoom:
		return "join_room"
	case CommandCreateRoom:
		return "create_room"
	case CommandExitRoom:
		return "exit_room"
	case CommandInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Command is one decoded client message.
type Command struct {
	Kind CommandKind
	// Room is set for CommandJoinRoom and CommandCreateRoom.
	Room string
	// Text is the broadcast body, or the original input for CommandInvalid.
	Text string
}

// Frame turns one transport chunk into a message. The whole chunk is the
// message; false means there is nothing to decode yet. Chunks that are not
// valid UTF-8 are dropped.
func Frame(chunk []byte) (string, bool) {
	if len(chunk) == 0 || !utf8.Valid(chunk) {
		return "", false
	}
	return string(chunk), true
}

// Decode parses a single message. It never fails: anything that is not a
// known slash command is either a broadcast or an invalid command.
func Decode(line string) Command {
	if !strings.HasPrefix(line, commandPrefix) {
		return Command{Kind: CommandBroadcast, Text: line}
	}

	token, arg := splitCommand(line)
	switch token {
	case CommandTokenJoinRoom:
		if arg == "" {
			return Command{Kind: CommandInvalid, Text: line}
		}
		return Command{Kind: CommandJoinRoom, Room: arg}
	case CommandTokenCreateRoom:
		if arg == "" {
			return Command{Kind: CommandInvalid, Text: line}
		}
		return Command{Kind: CommandCreateRoom, Room: arg}
	case CommandTokenExitRoom:
		return Command{Kind: CommandExitRoom}
	default:
		return Command{Kind: CommandInvalid, Text: line}
	}
}

// splitCommand splits on the first whitespace run. The argument keeps any
// trailing bytes as sent; it is empty when only whitespace follows the token.
func splitCommand(line string) (string, string) {
	idx := strings.IndexFunc(line, unicode.IsSpace)
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimLeftFunc(line[idx:], unicode.IsSpace)
}
