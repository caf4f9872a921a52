// internal/config/config.go
package config

import "fmt"

// LobbyVC names the three voice channels that make up one PUG lobby: the
// waiting-room channel and the two team channels.
type LobbyVC struct {
	Name  string `json:"name"`
	Lobby string `json:"lobby"`
	Team1 string `json:"team1"`
	Team2 string `json:"team2"`
}

// GuildConfig holds one chat community's PUG setup: its lobby triples and
// the command prefix the bot answers to.
type GuildConfig struct {
	GuildID string    `json:"guild_id"`
	Lobbies []LobbyVC `json:"lobbies"`
	Prefix  string    `json:"prefix"`
}

// Config maps guild id to that guild's configuration.
type Config map[string]*GuildConfig

// DuplicateChannels reports every channel id that appears in more than one
// lobby triple role across the whole config. Such configs are not rejected
// (classification falls back to first match wins), but operators should know.
func DuplicateChannels(cfg Config) []string {
	seen := map[string]string{}
	var warnings []string
	for _, guild := range cfg {
		for _, lv := range guild.Lobbies {
			for _, ch := range []string{lv.Lobby, lv.Team1, lv.Team2} {
				if ch == "" {
					continue
				}
				if prev, ok := seen[ch]; ok && prev != lv.Name {
					warnings = append(warnings, fmt.Sprintf(
						"channel %s is claimed by both lobby %q and lobby %q; first match wins", ch, prev, lv.Name))
					continue
				}
				seen[ch] = lv.Name
			}
		}
	}
	return warnings
}
