// Package session provides the authoritative registry of connected players
// for the arena relay.
package session

// Default field values applied when a join payload omits or mangles them.
const (
	DefaultClass  = "warrior"
	DefaultAction = "idle"
)

// Position is a point in world space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rotation is a player orientation. Yaw (Y) is always present on the wire;
// pitch and roll are carried only when a client sends them.
type Rotation struct {
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Player is the record kept for one connected player. The JSON field names
// are a client contract and must not change.
type Player struct {
	// ID equals the owning connection's identifier.
	ID string `json:"id"`
	// Name is the display name, client-chosen or defaulted to "PlayerN".
	Name string `json:"name"`
	// Class is the character archetype.
	Class string `json:"class"`
	// Position is the last reported world position.
	Position Position `json:"position"`
	// Rotation is the last reported orientation.
	Rotation Rotation `json:"rotation"`
	// Action is the current animation/behavior tag.
	Action string `json:"action"`
	// JoinTime is the registration time in unix milliseconds.
	JoinTime int64 `json:"joinTime"`
}

// Profile carries the normalized fields of a join request. An empty Name
// means the registry assigns the next default name.
type Profile struct {
	Name     string
	Class    string
	Position Position
}

// StateDelta is a partial state update. Nil pointers and the empty action
// string mean "leave that field untouched".
type StateDelta struct {
	Position *Position
	Rotation *Rotation
	Action   string
}

// StateView is the position/rotation/action triple broadcast after an
// update. All three fields always carry the player's current values.
type StateView struct {
	Position Position `json:"position"`
	Rotation Rotation `json:"rotation"`
	Action   string   `json:"action"`
}

// View returns the broadcastable state triple for the player.
func (p Player) View() StateView {
	return StateView{
		Position: p.Position,
		Rotation: p.Rotation,
		Action:   p.Action,
	}
}
