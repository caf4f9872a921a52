// internal/stats/profile.go

// Package stats looks up player career profiles from the public stats API
// and caches the formatted result.
package stats

import (
	"context"
	"sort"

	"github.com/owpug/pugmate/internal/btag"
)

// roleHeroes assigns each hero to the role bucket it counts toward.
var roleHeroes = map[string][]string{
	"tank": {"dva", "orisa", "reinhardt", "roadhog", "sigma", "winston",
		"wreckingball", "zarya"},
	"damage": {"ashe", "doomfist", "echo", "genji", "hanzo", "junkrat",
		"mcree", "mei", "pharah", "reaper", "soldier76", "sombra",
		"symmetra", "tracer", "widowmaker"},
	"support": {"ana", "baptiste", "brigitte", "lucio", "moira", "mercy",
		"zenyatta"},
}

// HeroPlaytime is one entry of a role's most-played list.
type HeroPlaytime struct {
	Hero       string `json:"hero"`
	TimePlayed string `json:"timePlayed,omitempty"`
}

// RoleOverview summarizes one role of a profile. SR fields are nil when the
// player has no rating for the role.
type RoleOverview struct {
	SR         *int           `json:"sr"`
	PeakSR     *int           `json:"peakSr"`
	MostPlayed []HeroPlaytime `json:"mostPlayed"`
}

// Profile is the viewer-facing summary of a player's career stats.
type Profile struct {
	Tag      string                   `json:"tag"`
	Overview map[string]*RoleOverview `json:"overview"`
}

// Fetcher looks up a profile by battle tag. forceRefresh bypasses any
// caching layer and refetches from the upstream API.
type Fetcher interface {
	FetchProfile(ctx context.Context, tag btag.Btag, forceRefresh bool) (*Profile, error)
}

// formatProfile reduces a raw API payload to the overview shape the roster
// consumes: per-role ratings plus most-played heroes sorted by playtime.
func formatProfile(tag btag.Btag, raw map[string]interface{}) *Profile {
	p := &Profile{
		Tag:      tag.String(),
		Overview: make(map[string]*RoleOverview, len(roleHeroes)),
	}

	mostPlayed := map[string][]HeroPlaytime{}
	if comp, ok := raw["competitiveStats"].(map[string]interface{}); ok {
		if top, ok := comp["topHeroes"].(map[string]interface{}); ok {
			for hero, v := range top {
				hdata, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				played, _ := hdata["timePlayed"].(string)
				entry := HeroPlaytime{Hero: hero, TimePlayed: played}
				for role, heroes := range roleHeroes {
					for _, h := range heroes {
						if h == hero {
							mostPlayed[role] = append(mostPlayed[role], entry)
						}
					}
				}
			}
		}
	}

	for role := range roleHeroes {
		heroes := mostPlayed[role]
		sort.Slice(heroes, func(i, j int) bool {
			return heroes[i].TimePlayed < heroes[j].TimePlayed
		})
		p.Overview[role] = &RoleOverview{MostPlayed: heroes}
	}

	if ratings, ok := raw["ratings"].([]interface{}); ok {
		for _, v := range ratings {
			rating, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			role, _ := rating["role"].(string)
			ov, ok := p.Overview[role]
			if !ok {
				continue
			}
			if level, ok := rating["level"].(float64); ok {
				sr := int(level)
				ov.SR = &sr
				ov.PeakSR = &sr
			}
		}
	}
	return p
}
