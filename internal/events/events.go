// Package events defines the engine's outbound event stream. The engine
// emits an Event for every state change worth observing (matches, session
// ends, reports, blocks, access changes); sinks fan the stream out to NATS,
// the operator feed, and the persistence mirror. Sinks must not block: slow
// consumers drop rather than stall the engine.
package events

import "time"

// Event types emitted by the engine.
const (
	TypeMatchFound     = "match_found"
	TypeSessionEnded   = "session_ended"
	TypeReportFiled    = "report_filed"
	TypeBlockAdded     = "block_added"
	TypeMessageDropped = "message_dropped"
	TypeUserAuthorized = "user_authorized"
	TypeUserRevoked    = "user_revoked"
	TypeUserAllowed    = "user_allowed"
)

// Session end reasons carried on TypeSessionEnded events.
const (
	ReasonStop    = "stop"
	ReasonRematch = "rematch"
	ReasonReport  = "report"
	ReasonBlock   = "block"
	ReasonRevoke  = "revoke"
)

// Event is one engine state change. UserA is the acting user (requester,
// reporter, blocker, revoked target); UserB the counterpart where one exists.
type Event struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id,omitempty"`
	UserA  int64  `json:"user_a,omitempty"`
	UserB  int64  `json:"user_b,omitempty"`
	Reason string `json:"reason,omitempty"`
	Count  int    `json:"count,omitempty"` // cumulative report count on report_filed
	Ts     int64  `json:"ts"`
}

// Now stamps the event with the current unix timestamp and returns it.
func (e Event) Now() Event {
	e.Ts = time.Now().Unix()
	return e
}

// Sink consumes engine events.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Publish calls f(e).
func (f SinkFunc) Publish(e Event) { f(e) }

// multi fans one event out to several sinks in order.
type multi []Sink

func (m multi) Publish(e Event) {
	for _, s := range m {
		s.Publish(e)
	}
}

// Fanout combines sinks into one. Nil sinks are skipped, so callers can pass
// optional sinks unconditionally.
func Fanout(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Discard is a sink that drops every event, handy in tests and when no
// observer is configured.
var Discard = SinkFunc(func(Event) {})
