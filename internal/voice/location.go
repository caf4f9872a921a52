// internal/voice/location.go

// Package voice classifies raw voice-channel movements into the PUG
// actions the rest of the bot reacts to.
package voice

import "github.com/owpug/pugmate/internal/config"

// LocationKind discriminates the three categories of voice location.
type LocationKind int

const (
	// LocationOther is a channel outside any configured PUG lobby, or no
	// channel at all.
	LocationOther LocationKind = iota
	// LocationLobby is the waiting-room channel of a configured lobby.
	LocationLobby
	// LocationTeam is one of the two team channels of a configured lobby.
	LocationTeam
)

func (k LocationKind) String() string {
	switch k {
	case LocationLobby:
		return "lobby"
	case LocationTeam:
		return "team"
	default:
		return "other"
	}
}

// Location is a voice channel classified against the guild configuration.
// ChannelID is empty when the member is in no voice channel. LobbyName is
// set for Lobby and Team locations only.
type Location struct {
	Kind      LocationKind
	ChannelID string
	LobbyName string
}

// Classify maps a raw channel id onto a Location. The first triple that
// mentions the channel wins; iteration follows the config's own ordering,
// so an overlapping config resolves arbitrarily but consistently.
func Classify(cfg config.Config, channelID string) Location {
	if channelID == "" {
		return Location{Kind: LocationOther}
	}
	for _, guild := range cfg {
		for _, lv := range guild.Lobbies {
			switch channelID {
			case lv.Lobby:
				return Location{Kind: LocationLobby, ChannelID: channelID, LobbyName: lv.Name}
			case lv.Team1, lv.Team2:
				return Location{Kind: LocationTeam, ChannelID: channelID, LobbyName: lv.Name}
			}
		}
	}
	return Location{Kind: LocationOther, ChannelID: channelID}
}

// SameLobby reports whether two locations belong to the same PUG lobby.
// Comparison is by lobby name, so any of a triple's three channels count
// as belonging together.
func SameLobby(a, b Location) bool {
	if a.Kind == LocationOther || b.Kind == LocationOther {
		return false
	}
	return a.LobbyName == b.LobbyName
}
