package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/driftchat/strangerbot/internal/engine"
)

// Usage replies for malformed owner/join arguments.
const (
	usageJoin   = "Usage: /join <code>"
	usageRevoke = "Usage: /revoke <user id>"
	usageAllow  = "Usage: /allow <user id>"
)

// command is one parsed inbound message.
type command struct {
	name string // start, join, next, stop, report, block, revoke, allow, or text
	arg  string
}

// parseCommand classifies an inbound message. Keyboard button labels are
// aliases for their slash commands; unknown slash commands fall through to
// plain text, which the engine relays like any other message.
func parseCommand(text string) command {
	trimmed := strings.TrimSpace(text)

	switch trimmed {
	case buttonNext:
		return command{name: "next"}
	case buttonStop:
		return command{name: "stop"}
	}

	if !strings.HasPrefix(trimmed, "/") {
		return command{name: "text", arg: text}
	}

	name, arg, _ := strings.Cut(trimmed, " ")
	name, _, _ = strings.Cut(name, "@") // strip @botname suffix
	name = strings.ToLower(strings.TrimPrefix(name, "/"))

	switch name {
	case "start", "join", "next", "stop", "report", "block", "revoke", "allow":
		return command{name: name, arg: strings.TrimSpace(arg)}
	}
	return command{name: "text", arg: text}
}

// dispatch routes one inbound message to the engine.
func (t *Transport) dispatch(eng *engine.Engine, userID int64, text string) {
	cmd := parseCommand(text)

	switch cmd.name {
	case "start":
		t.SendText(userID, engine.MsgWelcome)
		if !eng.IsAuthorized(userID) && !eng.IsRevoked(userID) {
			t.SendText(userID, engine.MsgNeedInvite)
		}

	case "join":
		if cmd.arg == "" {
			t.SendText(userID, usageJoin)
			return
		}
		eng.Join(userID, cmd.arg)

	case "next":
		if !eng.IsAuthorized(userID) {
			t.SendText(userID, engine.MsgNeedInvite)
			return
		}
		eng.RequestMatch(userID)

	case "stop":
		eng.Stop(userID)

	case "report":
		eng.Report(userID)

	case "block":
		eng.Block(userID)

	case "revoke":
		target, ok := parseUserID(cmd.arg)
		if !ok {
			t.SendText(userID, usageRevoke)
			return
		}
		if eng.Revoke(userID, target) {
			t.SendText(userID, fmt.Sprintf("User %d revoked.", target))
		}

	case "allow":
		target, ok := parseUserID(cmd.arg)
		if !ok {
			t.SendText(userID, usageAllow)
			return
		}
		if eng.Allow(userID, target) {
			t.SendText(userID, fmt.Sprintf("User %d allowed.", target))
		}

	default:
		eng.Relay(userID, text)
	}
}

func parseUserID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
