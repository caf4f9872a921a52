// internal/registry/registry.go

// Package registry tracks every player who has entered a PUG voice channel:
// where they are, which battle tags they have registered, and whether
// registration has completed. Completed joins and departures are handed to
// the lobby side as queue envelopes.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/owpug/pugmate/internal/btag"
	"github.com/owpug/pugmate/internal/config"
	"github.com/owpug/pugmate/internal/gateway"
	"github.com/owpug/pugmate/internal/queue"
	"github.com/owpug/pugmate/internal/stats"
	"github.com/owpug/pugmate/internal/voice"
)

// tagRequestText is what we DM a player who still owes us a battle tag.
const tagRequestText = "Give me your battle tag:"

// Player is the per-member registration record. A player who leaves keeps
// their record with a cleared location, so returning later does not require
// re-registration.
type Player struct {
	Member   gateway.Member
	ServerID string
	// Location is nil while the player is in no tracked voice channel.
	Location *voice.Location
	// Btags keeps insertion order; the most recently added tag is canonical.
	Btags        []btag.Btag
	IsRegistered bool
}

// AddBtag appends a tag, de-duplicating by moving a repeated tag to the
// most-recent position.
func (p *Player) AddBtag(t btag.Btag) {
	for i, existing := range p.Btags {
		if existing == t {
			p.Btags = append(p.Btags[:i], p.Btags[i+1:]...)
			break
		}
	}
	p.Btags = append(p.Btags, t)
}

// CanonicalBtag returns the most recently added tag.
func (p *Player) CanonicalBtag() (btag.Btag, bool) {
	if len(p.Btags) == 0 {
		return btag.Btag{}, false
	}
	return p.Btags[len(p.Btags)-1], true
}

func (p *Player) tagList() string {
	parts := make([]string, len(p.Btags))
	for i, t := range p.Btags {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// Store owns every player registration record and applies voice transitions
// and direct messages to them.
type Store struct {
	mu      sync.Mutex
	players map[string]*Player

	cfg     config.Config
	session gateway.Session
	fetcher stats.Fetcher
	out     *queue.Queue
	logger  *logrus.Logger
}

// NewStore builds an empty registration store.
func NewStore(logger *logrus.Logger, cfg config.Config, session gateway.Session, fetcher stats.Fetcher, out *queue.Queue) *Store {
	return &Store{
		players: make(map[string]*Player),
		cfg:     cfg,
		session: session,
		fetcher: fetcher,
		out:     out,
		logger:  logger,
	}
}

// Get returns the record for a member id, or nil.
func (s *Store) Get(memberID string) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[memberID]
}

// HandleVoiceUpdate classifies the transition and applies the action it
// resolves to. One call fully handles one event.
func (s *Store) HandleVoiceUpdate(ctx context.Context, ev gateway.VoiceStateUpdate) {
	before := voice.Classify(s.cfg, ev.BeforeChannel)
	after := voice.Classify(s.cfg, ev.AfterChannel)
	action := voice.Resolve(before, after)

	log := s.logger.WithFields(logrus.Fields{
		"member": ev.Member.ID,
		"action": action.String(),
	})

	switch action {
	case voice.ActionIgnore:
	case voice.ActionJoinLobby:
		log.Infof("%s joined PUG lobby %s", ev.Member.Nick, after.LobbyName)
		s.joinLobby(ctx, ev.Member, ev.GuildID, after)
	case voice.ActionLeaveLobby:
		s.leaveLobby(ev.Member, ev.GuildID, before)
	case voice.ActionEnterTeamVC:
		log.Infof("%s went from lobby to team channel in %s", ev.Member.Nick, after.LobbyName)
		s.updateLocation(ev.Member.ID, after)
	case voice.ActionReturnToLobby:
		log.Infof("%s came back to the lobby of %s", ev.Member.Nick, after.LobbyName)
		s.updateLocation(ev.Member.ID, after)
	case voice.ActionChangeLobby:
		// Recognized but unhandled: what moving between lobbies should do
		// is still an open product question.
		log.Infof("%s moved from lobby %s to lobby %s; not handled",
			ev.Member.Nick, before.LobbyName, after.LobbyName)
	}
}

// joinLobby creates or refreshes a record for a player entering a lobby
// channel. Unregistered players are asked (or re-asked) for their tag;
// registered players are re-announced to the lobby side immediately.
func (s *Store) joinLobby(ctx context.Context, mem gateway.Member, serverID string, loc voice.Location) {
	s.mu.Lock()
	p, ok := s.players[mem.ID]
	if !ok {
		p = &Player{Member: mem, ServerID: serverID, Location: &loc}
		s.players[mem.ID] = p
		s.mu.Unlock()
		s.send(ctx, mem.ID, tagRequestText)
		return
	}

	p.Member = mem
	p.ServerID = serverID
	p.Location = &loc
	registered := p.IsRegistered
	var msg queue.Message
	if registered {
		msg = s.joinedEnvelopeLocked(p)
	}
	s.mu.Unlock()

	if registered {
		s.out.Put(msg)
	} else {
		// Still awaiting a tag; ask again.
		s.send(ctx, mem.ID, tagRequestText)
	}
}

// leaveLobby clears the player's location and announces the departure.
// Unknown players are a silent no-op.
func (s *Store) leaveLobby(mem gateway.Member, serverID string, before voice.Location) {
	s.mu.Lock()
	p, ok := s.players[mem.ID]
	if ok {
		p.Location = nil
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.logger.Infof("%s left PUG lobby %s", mem.Nick, before.LobbyName)
	s.out.Put(queue.PlayerLeft{
		PlayerID:  mem.ID,
		ServerID:  serverID,
		LobbyName: before.LobbyName,
	})
}

// updateLocation moves a tracked player between channels of the same lobby.
// No envelopes: intra-lobby moves must not flicker the roster.
func (s *Store) updateLocation(memberID string, loc voice.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[memberID]; ok {
		p.Location = &loc
	}
}

// HandleDirectMessage runs the tag-collection flow for one DM. Malformed
// tags and failed lookups are recoverable: the player is told to resend and
// nothing changes.
func (s *Store) HandleDirectMessage(ctx context.Context, author gateway.Member, content string) {
	tag, err := btag.Parse(content)
	if err != nil {
		s.send(ctx, author.ID, "That does not look like a battle tag. Send it as Name#1234.")
		return
	}

	s.mu.Lock()
	p, ok := s.players[author.ID]
	if !ok {
		s.mu.Unlock()
		// No lobby context: nothing to attach the tag to.
		s.send(ctx, author.ID, "Join a PUG lobby voice channel first, then send me your tag.")
		return
	}
	p.AddBtag(tag)
	alreadyRegistered := p.IsRegistered
	s.mu.Unlock()

	if _, err := s.fetcher.FetchProfile(ctx, tag, false); err != nil {
		s.logger.Warnf("profile lookup for %s failed: %v", tag, err)
		s.send(ctx, author.ID, fmt.Sprintf("I could not find %s. Check the tag and send it again.", tag))
		return
	}

	s.mu.Lock()
	if !alreadyRegistered {
		p.IsRegistered = true
	}
	var msg queue.Message
	if !alreadyRegistered && p.Location != nil {
		msg = s.joinedEnvelopeLocked(p)
	}
	tags := p.tagList()
	s.mu.Unlock()

	if msg != nil {
		s.out.Put(msg)
	}
	s.send(ctx, author.ID, fmt.Sprintf("%s is registered with %s", author.Nick, tags))
}

// joinedEnvelopeLocked builds a PlayerJoined envelope from the record.
// Caller holds the store mutex and has checked Location is set.
func (s *Store) joinedEnvelopeLocked(p *Player) queue.Message {
	tags := make([]string, len(p.Btags))
	for i, t := range p.Btags {
		tags[i] = t.String()
	}
	return queue.PlayerJoined{
		PlayerID:  p.Member.ID,
		Btags:     tags,
		ServerID:  p.ServerID,
		LobbyName: p.Location.LobbyName,
		Nick:      p.Member.Nick,
	}
}

// send DMs a member, logging failures. The flow never blocks on a failed
// send; the player can always re-trigger it.
func (s *Store) send(ctx context.Context, memberID, text string) {
	if err := s.session.SendDirectMessage(ctx, memberID, text); err != nil {
		s.logger.Warnf("failed to DM %s: %v", memberID, err)
	}
}
