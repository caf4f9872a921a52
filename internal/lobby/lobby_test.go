// internal/lobby/lobby_test.go
package lobby

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owpug/pugmate/internal/btag"
	"github.com/owpug/pugmate/internal/queue"
	"github.com/owpug/pugmate/internal/stats"
)

// mockFetcher returns a minimal profile for every tag, counting calls and
// remembering whether a refresh was forced.
type mockFetcher struct {
	calls  int
	forced int
	fail   bool
}

func (m *mockFetcher) FetchProfile(_ context.Context, tag btag.Btag, forceRefresh bool) (*stats.Profile, error) {
	m.calls++
	if forceRefresh {
		m.forced++
	}
	if m.fail {
		return nil, errors.New("lookup failed")
	}
	return &stats.Profile{Tag: tag.String(), Overview: map[string]*stats.RoleOverview{}}, nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func newTestLobby(f stats.Fetcher) *Lobby {
	return newLobby(Key{ServerID: "guild-1", LobbyName: "Alpha"}, f, testLogger())
}

func mustTag(t *testing.T, s string) btag.Btag {
	t.Helper()
	b, err := btag.Parse(s)
	require.NoError(t, err)
	return b
}

// drain collects everything currently buffered for the subscriber.
func drain(sub <-chan Message) []Message {
	var out []Message
	for {
		select {
		case m := <-sub:
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestPlayerJoinAndLeave(t *testing.T) {
	l := newTestLobby(&mockFetcher{})
	sub := l.Listen()
	ctx := context.Background()

	assert.True(t, l.PlayerJoin(ctx, "p1", mustTag(t, "A#1"), "Alice"))

	snap := l.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "p1", snap[0].ID)
	assert.Equal(t, "Alice", snap[0].Title)
	assert.Equal(t, "waiting", snap[0].Group)
	assert.Equal(t, []string{"tank", "damage", "support"}, snap[0].SelectedRoles)
	require.NotNil(t, snap[0].ProfileData)
	assert.Equal(t, "A#1", snap[0].ProfileData.Tag)

	deltas := drain(sub)
	require.Len(t, deltas, 1)
	assert.Equal(t, "player-join", deltas[0].Event)

	// Leave is idempotent: true then false, size shrinks exactly once.
	assert.True(t, l.PlayerLeave("p1"))
	assert.False(t, l.PlayerLeave("p1"))
	assert.Empty(t, l.Snapshot())

	deltas = drain(sub)
	require.Len(t, deltas, 1)
	assert.Equal(t, "player-leave", deltas[0].Event)
	assert.Equal(t, "p1", deltas[0].Data["targetID"])
}

func TestDuplicateJoinReplaces(t *testing.T) {
	l := newTestLobby(&mockFetcher{})
	ctx := context.Background()
	l.PlayerJoin(ctx, "p1", mustTag(t, "A#1"), "Alice")

	sub := l.Listen()
	l.PlayerJoin(ctx, "p1", mustTag(t, "B#2"), "Alice")

	snap := l.Snapshot()
	require.Len(t, snap, 1, "roster must keep exactly one entry per id")
	assert.Equal(t, "B#2", snap[0].ProfileData.Tag)

	// Exactly two deltas: the implicit leave, then the join.
	deltas := drain(sub)
	require.Len(t, deltas, 2)
	assert.Equal(t, "player-leave", deltas[0].Event)
	assert.Equal(t, "player-join", deltas[1].Event)
}

func TestJoinSurvivesLookupFailure(t *testing.T) {
	l := newTestLobby(&mockFetcher{fail: true})
	assert.True(t, l.PlayerJoin(context.Background(), "p1", mustTag(t, "A#1"), "Alice"))
	snap := l.Snapshot()
	require.Len(t, snap, 1)
	assert.Nil(t, snap[0].ProfileData)
}

func TestMoveAndSwap(t *testing.T) {
	l := newTestLobby(&mockFetcher{})
	ctx := context.Background()
	l.PlayerJoin(ctx, "p1", mustTag(t, "A#1"), "Alice")
	l.PlayerJoin(ctx, "p2", mustTag(t, "B#2"), "Bob")
	sub := l.Listen()

	ok := l.ProcessMessage(ctx, Message{
		Event: "move-player",
		Data:  map[string]interface{}{"sourceID": "p1", "targetGroup": "team1"},
	})
	require.True(t, ok)
	assert.Equal(t, "team1", l.Snapshot()[0].Group)

	ok = l.ProcessMessage(ctx, Message{
		Event: "swap-player",
		Data:  map[string]interface{}{"sourceID": "p1", "targetID": "p2"},
	})
	require.True(t, ok)
	snap := l.Snapshot()
	assert.Equal(t, "waiting", snap[0].Group)
	assert.Equal(t, "team1", snap[1].Group)

	deltas := drain(sub)
	require.Len(t, deltas, 2)
	assert.Equal(t, "move-player", deltas[0].Event)
	assert.Equal(t, "swap-player", deltas[1].Event)
}

func TestUpdatePlayerShallowMerge(t *testing.T) {
	l := newTestLobby(&mockFetcher{})
	ctx := context.Background()
	l.PlayerJoin(ctx, "p1", mustTag(t, "A#1"), "Alice")

	ok := l.ProcessMessage(ctx, Message{
		Event: "update-player",
		Data: map[string]interface{}{
			"playerID": "p1",
			"updateData": map[string]interface{}{
				"selectedRoles": []interface{}{"support"},
				"title":         "Alice the Wise",
			},
		},
	})
	require.True(t, ok)

	snap := l.Snapshot()[0]
	assert.Equal(t, "Alice the Wise", snap.Title)
	assert.Equal(t, []string{"support"}, snap.SelectedRoles)
	assert.Equal(t, "waiting", snap.Group, "unmentioned fields keep their value")
}

func TestRefreshPlayerForcesLookup(t *testing.T) {
	f := &mockFetcher{}
	l := newTestLobby(f)
	ctx := context.Background()
	l.PlayerJoin(ctx, "p1", mustTag(t, "A#1"), "Alice")
	sub := l.Listen()

	ok := l.ProcessMessage(ctx, Message{
		Event: "refresh-player",
		Data:  map[string]interface{}{"playerID": "p1"},
	})
	require.True(t, ok)
	assert.Equal(t, 1, f.forced, "refresh must bypass the cache")

	deltas := drain(sub)
	require.Len(t, deltas, 1)
	assert.Equal(t, "update-player", deltas[0].Event)
	assert.Equal(t, "p1", deltas[0].Data["playerID"])
}

func TestUnrecognizedCommandBroadcastsNothing(t *testing.T) {
	l := newTestLobby(&mockFetcher{})
	ctx := context.Background()
	l.PlayerJoin(ctx, "p1", mustTag(t, "A#1"), "Alice")
	sub := l.Listen()

	ok := l.ProcessMessage(ctx, Message{
		Event: "teleport-player",
		Data:  map[string]interface{}{},
	})
	assert.False(t, ok)
	assert.Empty(t, drain(sub))
}

func TestCommandAgainstMissingPlayerIsRejected(t *testing.T) {
	l := newTestLobby(&mockFetcher{})
	ctx := context.Background()
	sub := l.Listen()

	ok := l.ProcessMessage(ctx, Message{
		Event: "move-player",
		Data:  map[string]interface{}{"sourceID": "ghost", "targetGroup": "team1"},
	})
	assert.False(t, ok)
	assert.Empty(t, drain(sub))
}

// applyDelta replays a broadcast delta against a plain entry list, the way
// a viewer rebuilds roster state from its snapshot.
func applyDelta(roster []Player, d Message) []Player {
	find := func(id string) int {
		for i := range roster {
			if roster[i].ID == id {
				return i
			}
		}
		return -1
	}
	switch d.Event {
	case "player-join":
		entry := *(d.Data["playerData"].(*Player))
		roster = append(roster, entry)
	case "player-leave":
		if i := find(d.Data["targetID"].(string)); i >= 0 {
			roster = append(roster[:i], roster[i+1:]...)
		}
	case "move-player":
		if i := find(d.Data["sourceID"].(string)); i >= 0 {
			roster[i].Group = d.Data["targetGroup"].(string)
		}
	case "swap-player":
		i := find(d.Data["sourceID"].(string))
		j := find(d.Data["targetID"].(string))
		if i >= 0 && j >= 0 {
			roster[i].Group, roster[j].Group = roster[j].Group, roster[i].Group
		}
	}
	return roster
}

// Replaying every broadcast delta against an empty roster must reproduce
// the lobby's final roster exactly.
func TestDeltaReplayFidelity(t *testing.T) {
	l := newTestLobby(&mockFetcher{})
	ctx := context.Background()
	sub := l.Listen()

	l.PlayerJoin(ctx, "p1", mustTag(t, "A#1"), "Alice")
	l.PlayerJoin(ctx, "p2", mustTag(t, "B#2"), "Bob")
	l.ProcessMessage(ctx, Message{
		Event: "move-player",
		Data:  map[string]interface{}{"sourceID": "p1", "targetGroup": "team2"},
	})
	l.PlayerJoin(ctx, "p3", mustTag(t, "C#3"), "Cleo")
	l.ProcessMessage(ctx, Message{
		Event: "swap-player",
		Data:  map[string]interface{}{"sourceID": "p1", "targetID": "p3"},
	})
	l.PlayerLeave("p2")

	var viewer []Player
	for _, d := range drain(sub) {
		viewer = applyDelta(viewer, d)
	}

	authoritative := l.Snapshot()
	require.Len(t, viewer, len(authoritative))
	for i := range viewer {
		assert.Equal(t, authoritative[i].ID, viewer[i].ID)
		assert.Equal(t, authoritative[i].Group, viewer[i].Group)
		assert.Equal(t, authoritative[i].Title, viewer[i].Title)
	}
}

func TestStoreLazyCreationAndConsume(t *testing.T) {
	s := NewStore(testLogger(), &mockFetcher{})
	q := queue.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, ok := s.Get(Key{ServerID: "guild-1", LobbyName: "Alpha"})
	assert.False(t, ok)

	q.Put(queue.PlayerJoined{
		PlayerID:  "p1",
		Btags:     []string{"Old#1", "New#2"},
		ServerID:  "guild-1",
		LobbyName: "Alpha",
		Nick:      "Alice",
	})
	q.Put(queue.PlayerLeft{PlayerID: "p1", ServerID: "guild-1", LobbyName: "Alpha"})
	q.Close()
	s.Consume(ctx, q)

	l, ok := s.Get(Key{ServerID: "guild-1", LobbyName: "Alpha"})
	require.True(t, ok, "lobby is created lazily on first join")
	assert.Empty(t, l.Snapshot(), "join then leave empties the roster")
}
