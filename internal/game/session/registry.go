package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAlreadyRegistered is returned by Register when the connection id
// already owns a record. The existing record is left untouched.
var ErrAlreadyRegistered = errors.New("player already registered")

// Registry is the single source of truth for connected players, keyed by
// connection id. All methods are safe for concurrent use.
//
// The registry also owns the default-name sequence: a process-wide counter
// bumped once per join that arrives without a name. It is never reset and is
// unrelated to the current population.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*Player
	nameSeq int

	// now is the join timestamp source, replaceable in tests.
	now func() time.Time
}

// NewRegistry creates an empty player Registry.
func NewRegistry() *Registry {
	return &Registry{
		players: make(map[string]*Player),
		now:     time.Now,
	}
}

// Register inserts a new player record keyed by the connection id.
// When profile.Name is empty the next default name is assigned inside the
// same critical section as the insert, so concurrent defaulted joins get
// distinct, strictly increasing suffixes.
//
// Precondition: id must be non-empty.
// Postcondition: Returns a copy of the stored record, or ErrAlreadyRegistered
// without touching existing state.
func (r *Registry) Register(id string, profile Profile) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.players[id]; exists {
		return Player{}, fmt.Errorf("registering %q: %w", id, ErrAlreadyRegistered)
	}

	name := profile.Name
	if name == "" {
		r.nameSeq++
		name = fmt.Sprintf("Player%d", r.nameSeq)
	}
	class := profile.Class
	if class == "" {
		class = DefaultClass
	}

	p := &Player{
		ID:       id,
		Name:     name,
		Class:    class,
		Position: profile.Position,
		Rotation: Rotation{},
		Action:   DefaultAction,
		JoinTime: r.now().UnixMilli(),
	}
	r.players[id] = p
	return *p, nil
}

// Get returns a copy of the record for the given connection id.
//
// Postcondition: Returns (record, true) if registered, or (zero, false) otherwise.
func (r *Registry) Get(id string) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// ApplyUpdate applies the fields present in the delta to the player's record.
// Absent fields are left untouched. A delta for an unregistered id is a
// no-op (a client racing its own disconnect).
//
// Postcondition: Returns the post-update state triple and true, or
// (zero, false) when the id is not registered.
func (r *Registry) ApplyUpdate(id string, delta StateDelta) (StateView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return StateView{}, false
	}

	if delta.Position != nil {
		p.Position = *delta.Position
	}
	if delta.Rotation != nil {
		p.Rotation = *delta.Rotation
	}
	if delta.Action != "" {
		p.Action = delta.Action
	}
	return p.View(), true
}

// Remove deletes the record for the given connection id.
// Removing an absent id is a no-op, so a double disconnect is harmless.
//
// Postcondition: Returns (prior record, true) on removal, or (zero, false)
// when nothing was registered.
func (r *Registry) Remove(id string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	delete(r.players, id)
	return *p, true
}

// Count returns the number of currently registered players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Snapshot returns a copy of the full registry taken at a single instant,
// used to bootstrap a newly joined player's view of the world.
func (r *Registry) Snapshot() map[string]Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Player, len(r.players))
	for id, p := range r.players {
		out[id] = *p
	}
	return out
}
