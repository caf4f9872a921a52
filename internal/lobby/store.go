// internal/lobby/store.go
package lobby

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/owpug/pugmate/internal/btag"
	"github.com/owpug/pugmate/internal/queue"
	"github.com/owpug/pugmate/internal/stats"
)

// Store manages every live lobby, keyed by (serverID, lobbyName). Lobbies
// are created lazily on first join and live for the rest of the process.
type Store struct {
	mu      sync.Mutex
	lobbies map[Key]*Lobby
	fetcher stats.Fetcher
	logger  *logrus.Logger
}

// NewStore initializes an empty lobby store.
func NewStore(logger *logrus.Logger, fetcher stats.Fetcher) *Store {
	return &Store{
		lobbies: make(map[Key]*Lobby),
		fetcher: fetcher,
		logger:  logger,
	}
}

// Get retrieves a lobby, reporting whether it exists.
func (s *Store) Get(key Key) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[key]
	return l, ok
}

// GetOrCreate retrieves a lobby, creating it on first use.
func (s *Store) GetOrCreate(key Key) *Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[key]
	if !ok {
		l = newLobby(key, s.fetcher, s.logger)
		s.lobbies[key] = l
		s.logger.Infof("created lobby %s/%s", key.ServerID, key.LobbyName)
	}
	return l
}

// Consume drains the bot-side queue until ctx ends, applying join and
// leave envelopes to the owning lobby. One envelope is fully applied
// before the next is taken.
func (s *Store) Consume(ctx context.Context, q *queue.Queue) {
	for {
		msg, ok := q.Get(ctx)
		if !ok {
			return
		}
		switch m := msg.(type) {
		case queue.PlayerJoined:
			s.handleJoined(ctx, m)
		case queue.PlayerLeft:
			s.handleLeft(m)
		default:
			s.logger.Warnf("unknown envelope type %T dropped", msg)
		}
	}
}

func (s *Store) handleJoined(ctx context.Context, m queue.PlayerJoined) {
	if len(m.Btags) == 0 {
		s.logger.Warnf("PlayerJoined for %s carries no tags; dropped", m.PlayerID)
		return
	}
	// The most recently added tag is canonical.
	tag, err := btag.Parse(m.Btags[len(m.Btags)-1])
	if err != nil {
		s.logger.Warnf("PlayerJoined for %s carries malformed tag: %v", m.PlayerID, err)
		return
	}
	l := s.GetOrCreate(Key{ServerID: m.ServerID, LobbyName: m.LobbyName})
	l.PlayerJoin(ctx, m.PlayerID, tag, m.Nick)
}

func (s *Store) handleLeft(m queue.PlayerLeft) {
	l, ok := s.Get(Key{ServerID: m.ServerID, LobbyName: m.LobbyName})
	if !ok {
		s.logger.Warnf("PlayerLeft for unknown lobby %s/%s", m.ServerID, m.LobbyName)
		return
	}
	if !l.PlayerLeave(m.PlayerID) {
		s.logger.Warnf("PlayerLeft for %s who is not on the %s/%s roster",
			m.PlayerID, m.ServerID, m.LobbyName)
	}
}
