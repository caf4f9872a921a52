// internal/lobby/lobby.go

// Package lobby owns the viewer-facing rosters: one Lobby per
// (server, lobby-name) pair, mutated by bot envelopes and viewer commands,
// with every successful mutation fanned out to subscribed viewers.
package lobby

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/owpug/pugmate/internal/btag"
	"github.com/owpug/pugmate/internal/bus"
	"github.com/owpug/pugmate/internal/stats"
)

// defaultRoles is what a fresh roster entry can queue for.
var defaultRoles = []string{"tank", "damage", "support"}

// Message is both a viewer command and a broadcast delta: a discriminator
// plus a free-form payload. Successful commands are re-broadcast verbatim.
type Message struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// Player is one roster row as viewers see it.
type Player struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Group         string         `json:"group"`
	SelectedRoles []string       `json:"selectedRoles"`
	ProfileData   *stats.Profile `json:"profileData"`
}

// applyUpdate shallow-merges updateData into the entry. Only known fields
// are applied; anything else is ignored.
func (p *Player) applyUpdate(data map[string]interface{}) {
	if v, ok := data["title"].(string); ok {
		p.Title = v
	}
	if v, ok := data["group"].(string); ok {
		p.Group = v
	}
	if v, ok := data["selectedRoles"].([]interface{}); ok {
		roles := make([]string, 0, len(v))
		for _, r := range v {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
		p.SelectedRoles = roles
	}
	if v, ok := data["profileData"]; ok {
		p.ProfileData = coerceProfile(v)
	}
}

// coerceProfile accepts either a *stats.Profile (internal callers) or a
// JSON-decoded map (viewer commands) and returns a typed profile.
func coerceProfile(v interface{}) *stats.Profile {
	switch pv := v.(type) {
	case nil:
		return nil
	case *stats.Profile:
		return pv
	default:
		raw, err := json.Marshal(pv)
		if err != nil {
			return nil
		}
		var p stats.Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil
		}
		return &p
	}
}

// Key identifies one lobby.
type Key struct {
	ServerID  string
	LobbyName string
}

// Lobby holds one roster in insertion order plus the bus its viewers listen
// on. All mutation is serialized on the mutex; distinct lobbies are fully
// independent.
type Lobby struct {
	key     Key
	mu      sync.Mutex
	players []*Player
	bus     *bus.Bus[Message]
	fetcher stats.Fetcher
	logger  *logrus.Logger
}

func newLobby(key Key, fetcher stats.Fetcher, logger *logrus.Logger) *Lobby {
	return &Lobby{
		key:     key,
		bus:     bus.New[Message](),
		fetcher: fetcher,
		logger:  logger,
	}
}

// Key returns the lobby's identity.
func (l *Lobby) Key() Key { return l.key }

// Listen subscribes a new viewer to this lobby's delta stream.
func (l *Lobby) Listen() <-chan Message { return l.bus.Subscribe() }

// Snapshot returns a copy of the roster in insertion order, safe to
// marshal while the lobby keeps mutating.
func (l *Lobby) Snapshot() []Player {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Player, len(l.players))
	for i, p := range l.players {
		out[i] = *p
		out[i].SelectedRoles = append([]string(nil), p.SelectedRoles...)
	}
	return out
}

// PlayerJoin adds a roster entry for the player. An entry with the same id
// is first removed and its removal broadcast: the policy for duplicate
// joins is replace, not merge. Profile lookup failure is tolerated; the
// entry is created with a nil profile.
func (l *Lobby) PlayerJoin(ctx context.Context, playerID string, tag btag.Btag, nick string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.leaveLocked(playerID)

	var profile *stats.Profile
	if p, err := l.fetcher.FetchProfile(ctx, tag, false); err != nil {
		l.logger.Warnf("lobby %s/%s: profile lookup for %s failed: %v",
			l.key.ServerID, l.key.LobbyName, tag, err)
	} else {
		profile = p
	}

	title := nick
	if title == "" {
		title = playerID
	}
	entry := &Player{
		ID:            playerID,
		Title:         title,
		Group:         "waiting",
		SelectedRoles: append([]string(nil), defaultRoles...),
		ProfileData:   profile,
	}
	l.players = append(l.players, entry)
	// Broadcast a copy: a delta must carry join-time state even if the
	// entry mutates before a slow subscriber drains it.
	snap := *entry
	snap.SelectedRoles = append([]string(nil), entry.SelectedRoles...)
	l.bus.Publish(Message{
		Event: "player-join",
		Data:  map[string]interface{}{"playerData": &snap},
	})
	return true
}

// PlayerLeave removes the entry with the given id, broadcasting the
// removal. Returns whether an entry was found.
func (l *Lobby) PlayerLeave(playerID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.leaveLocked(playerID)
}

func (l *Lobby) leaveLocked(playerID string) bool {
	i := l.indexLocked(playerID)
	if i < 0 {
		return false
	}
	l.players = append(l.players[:i], l.players[i+1:]...)
	l.bus.Publish(Message{
		Event: "player-leave",
		Data:  map[string]interface{}{"targetID": playerID},
	})
	return true
}

// ProcessMessage applies one viewer command to the roster and broadcasts
// it on success. It reports whether the command was recognized and
// applied; a rejected command broadcasts nothing.
func (l *Lobby) ProcessMessage(ctx context.Context, msg Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch msg.Event {
	case "move-player":
		sourceID, _ := msg.Data["sourceID"].(string)
		targetGroup, _ := msg.Data["targetGroup"].(string)
		p := l.findLocked(sourceID)
		if p == nil || targetGroup == "" {
			return false
		}
		p.Group = targetGroup
		l.bus.Publish(msg)
		return true

	case "swap-player":
		sourceID, _ := msg.Data["sourceID"].(string)
		targetID, _ := msg.Data["targetID"].(string)
		p1 := l.findLocked(sourceID)
		p2 := l.findLocked(targetID)
		if p1 == nil || p2 == nil {
			return false
		}
		p1.Group, p2.Group = p2.Group, p1.Group
		l.bus.Publish(msg)
		return true

	case "update-player":
		playerID, _ := msg.Data["playerID"].(string)
		updateData, _ := msg.Data["updateData"].(map[string]interface{})
		p := l.findLocked(playerID)
		if p == nil || updateData == nil {
			return false
		}
		p.applyUpdate(updateData)
		l.bus.Publish(msg)
		return true

	case "refresh-player":
		playerID, _ := msg.Data["playerID"].(string)
		p := l.findLocked(playerID)
		if p == nil || p.ProfileData == nil {
			return false
		}
		tag, err := btag.Parse(p.ProfileData.Tag)
		if err != nil {
			return false
		}
		profile, err := l.fetcher.FetchProfile(ctx, tag, true)
		if err != nil {
			l.logger.Warnf("lobby %s/%s: refresh for %s failed: %v",
				l.key.ServerID, l.key.LobbyName, tag, err)
			return false
		}
		update := map[string]interface{}{"profileData": profile}
		p.applyUpdate(update)
		l.bus.Publish(Message{
			Event: "update-player",
			Data: map[string]interface{}{
				"playerID":   p.ID,
				"updateData": update,
			},
		})
		return true
	}

	l.logger.Warnf("lobby %s/%s: unrecognized command %q",
		l.key.ServerID, l.key.LobbyName, msg.Event)
	return false
}

func (l *Lobby) findLocked(playerID string) *Player {
	if i := l.indexLocked(playerID); i >= 0 {
		return l.players[i]
	}
	return nil
}

func (l *Lobby) indexLocked(playerID string) int {
	for i, p := range l.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}
