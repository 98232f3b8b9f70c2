package proto

import (
	"fmt"

	"github.com/muesli/termenv"
)

// NoticeKind selects how a line is presented to a client.
type NoticeKind int

const (
	// NoticeChat is a message relayed from another user.
	NoticeChat NoticeKind = iota
	// NoticeSuccess confirms the client's own command.
	NoticeSuccess
	// NoticeError reports a rejected command.
	NoticeError
	// NoticeSystem announces room activity to its occupants.
	NoticeSystem
)

// WelcomeBanner is written once when a connection opens.
const WelcomeBanner = `
    Welcome to Athena! Here are the commands you can use:
    * /joinRoom <roomName>
    * /createRoom <roomName>
    * /exitRoom

    Once you're in a room, type anything to broadcast a message to all users in the room.

`

// Renderer formats notices for the wire.
type Renderer struct {
	profile termenv.Profile
}

// NewRenderer returns a renderer that colours notices with ANSI escapes
// when color is true and writes plain text otherwise.
func NewRenderer(color bool) Renderer {
	if color {
		return Renderer{profile: termenv.ANSI}
	}
	return Renderer{profile: termenv.Ascii}
}

// Render formats text according to kind.
func (r Renderer) Render(kind NoticeKind, text string) string {
	var c termenv.Color
	switch kind {
	case NoticeSuccess:
		c = termenv.ANSIBrightGreen
	case NoticeError:
		c = termenv.ANSIBrightRed
	case NoticeSystem:
		c = termenv.ANSIBrightBlue
	default:
		return text
	}
	return r.profile.String(text).Foreground(c).String()
}

// ChatLine formats a relayed message from sender.
func ChatLine(sender, text string) string {
	return fmt.Sprintf("<%s> %s", sender, text)
}
