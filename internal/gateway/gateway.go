// internal/gateway/gateway.go

// Package gateway is the chat-platform boundary: an ordered stream of
// membership and direct-message events in, fire-and-forget direct messages
// out. Everything behind Session belongs to the transport.
package gateway

import "context"

// Member identifies a chat-platform user as the gateway sees them.
type Member struct {
	ID   string
	Nick string
}

// Event is one inbound gateway event.
type Event interface {
	isEvent()
}

// VoiceStateUpdate reports a member moving between voice channels. An
// empty channel id means "no channel".
type VoiceStateUpdate struct {
	Member        Member
	GuildID       string
	BeforeChannel string
	AfterChannel  string
}

// DirectMessage is a DM sent to the bot.
type DirectMessage struct {
	Author  Member
	Content string
}

func (VoiceStateUpdate) isEvent() {}
func (DirectMessage) isEvent()    {}

// Session is a live connection to the chat platform.
type Session interface {
	// Events returns the inbound event stream. The channel is closed when
	// the session ends.
	Events() <-chan Event
	// SendDirectMessage DMs a member. Failures are the caller's to log;
	// nothing in the core retries them.
	SendDirectMessage(ctx context.Context, memberID, text string) error
}
