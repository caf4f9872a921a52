// internal/voice/resolve.go
package voice

// Action is what a voice transition means in PUG terms.
type Action int

const (
	// ActionIgnore marks a transition with no PUG significance.
	ActionIgnore Action = iota
	// ActionJoinLobby is entering a lobby channel from outside.
	ActionJoinLobby
	// ActionLeaveLobby is leaving a lobby or team channel for outside.
	ActionLeaveLobby
	// ActionReturnToLobby is moving from a team channel back to its lobby.
	ActionReturnToLobby
	// ActionEnterTeamVC is moving from a lobby into one of its team channels.
	ActionEnterTeamVC
	// ActionChangeLobby is moving between two different lobbies. Recognized
	// but deliberately unhandled; product has not decided its semantics.
	ActionChangeLobby
)

func (a Action) String() string {
	switch a {
	case ActionJoinLobby:
		return "join-lobby"
	case ActionLeaveLobby:
		return "leave-lobby"
	case ActionReturnToLobby:
		return "return-to-lobby"
	case ActionEnterTeamVC:
		return "enter-team-vc"
	case ActionChangeLobby:
		return "change-lobby"
	default:
		return "ignore"
	}
}

// Resolve maps a (before, after) location pair onto the action it
// represents. Pure function; the match is exhaustive over both kinds.
func Resolve(before, after Location) Action {
	switch before.Kind {
	case LocationOther:
		switch after.Kind {
		case LocationOther:
			return ActionIgnore
		case LocationLobby:
			return ActionJoinLobby
		case LocationTeam:
			// Joining a team channel directly is not a PUG join; players
			// enter through the lobby.
			return ActionIgnore
		}
	case LocationLobby:
		switch after.Kind {
		case LocationOther:
			return ActionLeaveLobby
		case LocationLobby:
			if !SameLobby(before, after) {
				return ActionChangeLobby
			}
			return ActionIgnore
		case LocationTeam:
			if SameLobby(before, after) {
				return ActionEnterTeamVC
			}
			return ActionChangeLobby
		}
	case LocationTeam:
		switch after.Kind {
		case LocationOther:
			return ActionLeaveLobby
		case LocationLobby:
			if SameLobby(before, after) {
				return ActionReturnToLobby
			}
			return ActionChangeLobby
		case LocationTeam:
			if !SameLobby(before, after) {
				return ActionChangeLobby
			}
			return ActionIgnore
		}
	}
	return ActionIgnore
}
