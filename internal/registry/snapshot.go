// internal/registry/snapshot.go
package registry

import (
	"encoding/json"
	"fmt"

	"github.com/owpug/pugmate/internal/btag"
	"github.com/owpug/pugmate/internal/gateway"
	"github.com/owpug/pugmate/internal/voice"
)

// Snapshot is the persisted form of one player record. Tag order is kept;
// Channel is null while the player is in no tracked channel.
type Snapshot struct {
	Btags        []string `json:"btags"`
	Guild        string   `json:"guild"`
	Member       string   `json:"member"`
	Nick         string   `json:"nick,omitempty"`
	Channel      *string  `json:"channel"`
	IsRegistered bool     `json:"isRegistered"`
}

// SnapshotStore is the durable collaborator snapshots go through.
type SnapshotStore interface {
	PutPlayer(id string, data []byte) error
	ForEachPlayer(fn func(id string, data []byte) error) error
}

// SaveTo writes every player record through the snapshot store.
func (s *Store) SaveTo(store SnapshotStore) error {
	s.mu.Lock()
	snaps := make(map[string]Snapshot, len(s.players))
	for id, p := range s.players {
		snap := Snapshot{
			Btags:        make([]string, len(p.Btags)),
			Guild:        p.ServerID,
			Member:       p.Member.ID,
			Nick:         p.Member.Nick,
			IsRegistered: p.IsRegistered,
		}
		for i, t := range p.Btags {
			snap.Btags[i] = t.String()
		}
		if p.Location != nil {
			ch := p.Location.ChannelID
			snap.Channel = &ch
		}
		snaps[id] = snap
	}
	s.mu.Unlock()

	for id, snap := range snaps {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("registry: encode snapshot for %s: %w", id, err)
		}
		if err := store.PutPlayer(id, data); err != nil {
			return fmt.Errorf("registry: persist snapshot for %s: %w", id, err)
		}
	}
	return nil
}

// LoadFrom restores player records from the snapshot store. Stored channels
// are re-classified against the current config; a channel that is no longer
// configured loads as "not in a tracked channel".
func (s *Store) LoadFrom(store SnapshotStore) error {
	return store.ForEachPlayer(func(id string, data []byte) error {
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("registry: decode snapshot for %s: %w", id, err)
		}
		p := &Player{
			Member:       gateway.Member{ID: snap.Member, Nick: snap.Nick},
			ServerID:     snap.Guild,
			IsRegistered: snap.IsRegistered,
		}
		for _, raw := range snap.Btags {
			t, err := btag.Parse(raw)
			if err != nil {
				s.logger.Warnf("skipping malformed stored tag %q for %s", raw, id)
				continue
			}
			p.AddBtag(t)
		}
		if snap.Channel != nil {
			loc := voice.Classify(s.cfg, *snap.Channel)
			if loc.Kind != voice.LocationOther {
				p.Location = &loc
			}
		}
		s.mu.Lock()
		s.players[id] = p
		s.mu.Unlock()
		return nil
	})
}
