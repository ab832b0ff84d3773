// Package relay decodes inbound session events, applies them to the player
// registry, and decides the fan-out for each resulting broadcast. It never
// touches a socket: every handler returns an ordered list of emissions for
// the transport layer to deliver.
package relay

import (
	"encoding/json"

	"github.com/cory-johannsen/arena/internal/game/session"
)

// Inbound event names. These are the client contract and must not change.
const (
	EventPlayerJoin   = "player_join"
	EventPlayerUpdate = "player_update"
	EventChatMessage  = "chat_message"
	EventWhisper      = "whisper"
	EventPlayerEmote  = "player_emote"
)

// Outbound event names.
const (
	EventConnectionSuccess = "connection_success"
	EventPlayersList       = "players_list"
	EventPlayerJoined      = "player_joined"
	EventSystemMessage     = "system_message"
	EventPlayerLeft        = "player_left"
)

// SystemSender is the sender tag on server-originated system messages.
const SystemSender = "Server"

// Envelope is the wire frame: one named event plus its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ConnectionSuccess is the join acknowledgment sent to the joining player.
type ConnectionSuccess struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

// SystemMessage is a server announcement broadcast to everyone.
type SystemMessage struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// ChatBroadcast is a chat line fanned out to all players.
type ChatBroadcast struct {
	SenderID string `json:"senderId"`
	Sender   string `json:"sender"`
	Message  string `json:"message"`
}

// WhisperDelivery is a private message delivered to its target only.
type WhisperDelivery struct {
	SenderID string `json:"senderId"`
	Message  string `json:"message"`
}

// EmoteBroadcast is an emote fanned out to everyone except the sender.
// TargetID is passed through unvalidated and omitted when absent.
type EmoteBroadcast struct {
	PlayerID string `json:"playerId"`
	Emote    string `json:"emote"`
	TargetID string `json:"targetId,omitempty"`
}

type chatPayload struct {
	Message string `json:"message"`
}

type whisperPayload struct {
	TargetID string `json:"targetId"`
	Message  string `json:"message"`
}

type emotePayload struct {
	Emote    string `json:"emote"`
	TargetID string `json:"targetId"`
}

// decodeJoinPayload normalizes a join payload. Malformed or missing fields
// are never an error: each falls back to its default (empty name and class
// are filled in by the registry, position falls back to the origin).
func decodeJoinPayload(data json.RawMessage) session.Profile {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return session.Profile{}
	}

	var profile session.Profile
	if raw, ok := fields["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			profile.Name = name
		}
	}
	if raw, ok := fields["class"]; ok {
		var class string
		if err := json.Unmarshal(raw, &class); err == nil {
			profile.Class = class
		}
	}
	if raw, ok := fields["position"]; ok {
		var pos *session.Position
		if err := json.Unmarshal(raw, &pos); err == nil && pos != nil {
			profile.Position = *pos
		}
	}
	return profile
}

// decodeUpdatePayload extracts the present-and-wellformed fields of a state
// update. A null or malformed field counts as absent; an empty action string
// is likewise not applied.
func decodeUpdatePayload(data json.RawMessage) session.StateDelta {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return session.StateDelta{}
	}

	var delta session.StateDelta
	if raw, ok := fields["position"]; ok {
		var pos *session.Position
		if err := json.Unmarshal(raw, &pos); err == nil && pos != nil {
			delta.Position = pos
		}
	}
	if raw, ok := fields["rotation"]; ok {
		var rot *session.Rotation
		if err := json.Unmarshal(raw, &rot); err == nil && rot != nil {
			delta.Rotation = rot
		}
	}
	if raw, ok := fields["action"]; ok {
		var action string
		if err := json.Unmarshal(raw, &action); err == nil {
			delta.Action = action
		}
	}
	return delta
}
