// internal/gateway/discord.go
package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// DiscordSession adapts a discordgo connection to the Session interface.
type DiscordSession struct {
	dg     *discordgo.Session
	events chan Event
	logger *logrus.Logger
}

// DialDiscord connects to the Discord gateway with the given bot token and
// starts translating voice-state and DM events. Handlers run synchronously
// on the gateway reader so per-member event order is preserved end to end.
func DialDiscord(logger *logrus.Logger, token string) (*DiscordSession, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("gateway: create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildVoiceStates |
		discordgo.IntentDirectMessages
	dg.SyncEvents = true

	s := &DiscordSession{
		dg:     dg,
		events: make(chan Event, 256),
		logger: logger,
	}
	dg.AddHandler(s.onVoiceStateUpdate)
	dg.AddHandler(s.onMessageCreate)

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("gateway: open connection: %w", err)
	}
	logger.Info("connected to discord gateway")
	return s, nil
}

// Events implements Session.
func (s *DiscordSession) Events() <-chan Event {
	return s.events
}

// SendDirectMessage implements Session.
func (s *DiscordSession) SendDirectMessage(ctx context.Context, memberID, text string) error {
	ch, err := s.dg.UserChannelCreate(memberID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("gateway: open dm channel to %s: %w", memberID, err)
	}
	if _, err := s.dg.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("gateway: send dm to %s: %w", memberID, err)
	}
	return nil
}

// Close tears down the gateway connection and ends the event stream.
func (s *DiscordSession) Close() error {
	err := s.dg.Close()
	close(s.events)
	return err
}

func (s *DiscordSession) onVoiceStateUpdate(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v == nil {
		return
	}
	mem := Member{ID: v.UserID}
	if v.Member != nil {
		mem.Nick = v.Member.Nick
		if mem.Nick == "" && v.Member.User != nil {
			mem.Nick = v.Member.User.Username
		}
	}
	before := ""
	if v.BeforeUpdate != nil {
		before = v.BeforeUpdate.ChannelID
	}
	s.events <- VoiceStateUpdate{
		Member:        mem,
		GuildID:       v.GuildID,
		BeforeChannel: before,
		AfterChannel:  v.ChannelID,
	}
}

func (s *DiscordSession) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	// Only direct messages from humans feed the registration flow.
	if m.GuildID != "" || m.Author == nil || m.Author.Bot {
		return
	}
	s.events <- DirectMessage{
		Author:  Member{ID: m.Author.ID, Nick: m.Author.Username},
		Content: m.Content,
	}
}
