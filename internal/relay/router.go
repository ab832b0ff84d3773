package relay

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/session"
)

// Scope selects the recipients of an emission.
type Scope uint8

const (
	// ScopeSender delivers to the originating connection only.
	ScopeSender Scope = iota
	// ScopeOthers delivers to every connection except the sender.
	ScopeOthers
	// ScopeAll delivers to every connection, sender included.
	ScopeAll
	// ScopeTarget delivers to the single connection named by TargetID.
	ScopeTarget
)

// Emission is one outbound event the transport must deliver. Emissions from
// a single inbound event are delivered in slice order.
type Emission struct {
	Scope    Scope
	TargetID string
	Event    string
	Data     any
}

// Router applies each inbound event to the registry and computes its
// fan-out. Handlers are synchronous per connection; the registry provides
// the cross-connection mutual exclusion.
type Router struct {
	sessions *session.Registry
	logger   *zap.Logger
}

// NewRouter creates a Router over the given registry.
//
// Precondition: sessions and logger must be non-nil.
func NewRouter(sessions *session.Registry, logger *zap.Logger) *Router {
	return &Router{
		sessions: sessions,
		logger:   logger,
	}
}

// Dispatch routes one inbound envelope to its handler and returns the
// emissions to deliver. Unknown events and events from unregistered senders
// yield no emissions. A panic while handling an event is contained here: it
// is logged and the event contributes nothing, leaving the registry as the
// handler left it and every other connection unaffected.
func (r *Router) Dispatch(connID string, event string, data json.RawMessage) (emissions []Emission) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while handling event",
				zap.String("conn_id", connID),
				zap.String("event", event),
				zap.Any("panic", rec),
			)
			emissions = nil
		}
	}()

	switch event {
	case EventPlayerJoin:
		return r.handleJoin(connID, data)
	case EventPlayerUpdate:
		return r.handleUpdate(connID, data)
	case EventChatMessage:
		return r.handleChat(connID, data)
	case EventWhisper:
		return r.handleWhisper(connID, data)
	case EventPlayerEmote:
		return r.handleEmote(connID, data)
	default:
		r.logger.Debug("unknown event ignored",
			zap.String("conn_id", connID),
			zap.String("event", event),
		)
		return nil
	}
}

func (r *Router) handleJoin(connID string, data json.RawMessage) []Emission {
	profile := decodeJoinPayload(data)

	player, err := r.sessions.Register(connID, profile)
	if err != nil {
		// A second join on a live connection has no legitimate client
		// path; ignore it entirely rather than disturb existing state.
		r.logger.Warn("duplicate join ignored",
			zap.String("conn_id", connID),
			zap.Error(err),
		)
		return nil
	}

	count := r.sessions.Count()
	r.logger.Info("player joined",
		zap.String("conn_id", connID),
		zap.String("name", player.Name),
		zap.String("class", player.Class),
		zap.Int("players", count),
	)

	return []Emission{
		{Scope: ScopeSender, Event: EventConnectionSuccess, Data: ConnectionSuccess{ID: connID, Players: count}},
		{Scope: ScopeSender, Event: EventPlayersList, Data: r.sessions.Snapshot()},
		{Scope: ScopeOthers, Event: EventPlayerJoined, Data: player},
		{Scope: ScopeAll, Event: EventSystemMessage, Data: SystemMessage{
			Sender:  SystemSender,
			Message: player.Name + " has joined the game.",
		}},
	}
}

func (r *Router) handleUpdate(connID string, data json.RawMessage) []Emission {
	delta := decodeUpdatePayload(data)

	view, ok := r.sessions.ApplyUpdate(connID, delta)
	if !ok {
		return nil
	}

	// The delta broadcast always carries all three current values, even
	// when only one changed.
	return []Emission{
		{Scope: ScopeOthers, Event: EventPlayerUpdate, Data: map[string]session.StateView{connID: view}},
	}
}

func (r *Router) handleChat(connID string, data json.RawMessage) []Emission {
	sender, ok := r.sessions.Get(connID)
	if !ok {
		return nil
	}

	var payload chatPayload
	_ = json.Unmarshal(data, &payload)

	r.logger.Debug("chat message",
		zap.String("conn_id", connID),
		zap.String("sender", sender.Name),
	)

	return []Emission{
		{Scope: ScopeAll, Event: EventChatMessage, Data: ChatBroadcast{
			SenderID: connID,
			Sender:   sender.Name,
			Message:  payload.Message,
		}},
	}
}

func (r *Router) handleWhisper(connID string, data json.RawMessage) []Emission {
	if _, ok := r.sessions.Get(connID); !ok {
		return nil
	}

	var payload whisperPayload
	_ = json.Unmarshal(data, &payload)

	// Unknown targets are dropped without feedback to the sender.
	if _, ok := r.sessions.Get(payload.TargetID); !ok {
		return nil
	}

	return []Emission{
		{Scope: ScopeTarget, TargetID: payload.TargetID, Event: EventWhisper, Data: WhisperDelivery{
			SenderID: connID,
			Message:  payload.Message,
		}},
	}
}

func (r *Router) handleEmote(connID string, data json.RawMessage) []Emission {
	if _, ok := r.sessions.Get(connID); !ok {
		return nil
	}

	var payload emotePayload
	_ = json.Unmarshal(data, &payload)

	return []Emission{
		{Scope: ScopeOthers, Event: EventPlayerEmote, Data: EmoteBroadcast{
			PlayerID: connID,
			Emote:    payload.Emote,
			TargetID: payload.TargetID,
		}},
	}
}

// Disconnect removes the player owned by the connection and returns the
// departure emissions. The transport fires this exactly once per connection,
// but a second call for the same id is a harmless no-op.
func (r *Router) Disconnect(connID string) (emissions []Emission) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while handling disconnect",
				zap.String("conn_id", connID),
				zap.Any("panic", rec),
			)
			emissions = nil
		}
	}()

	prior, ok := r.sessions.Remove(connID)
	if !ok {
		return nil
	}

	r.logger.Info("player left",
		zap.String("conn_id", connID),
		zap.String("name", prior.Name),
		zap.Int("players", r.sessions.Count()),
	)

	return []Emission{
		{Scope: ScopeOthers, Event: EventPlayerLeft, Data: connID},
		{Scope: ScopeAll, Event: EventSystemMessage, Data: SystemMessage{
			Sender:  SystemSender,
			Message: prior.Name + " has left the game.",
		}},
	}
}
