package realtime

import "sync"

// Registry maps user ids to their live connections. It is the only shared
// mutable structure in the realtime layer; every method holds the mutex for
// its full duration so the set-per-user invariant survives concurrent
// connection handlers.
//
// A user is online exactly while their connection set is non-empty. The
// OnOnline and OnOffline callbacks fire on the 0->1 and 1->0 transitions,
// inside the registry lock, so transitions are observed in order.
type Registry struct {
	mu    sync.RWMutex
	users map[uint]map[*Client]struct{}

	// OnOnline and OnOffline, when set, observe presence transitions.
	OnOnline  func(userID uint)
	OnOffline func(userID uint)
}

// NewRegistry constructs an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[uint]map[*Client]struct{})}
}

// Register adds the connection to the user's set. A zero user id is a
// silent no-op. Registering the same connection for the same user again
// does not change the set and does not re-fire the online transition. A
// connection registered earlier to a different user is moved.
func (r *Registry) Register(client *Client, userID uint) {
	if client == nil || userID == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if client.userID == userID {
		if set, ok := r.users[userID]; ok {
			if _, present := set[client]; present {
				return
			}
		}
	}
	if client.userID != 0 && client.userID != userID {
		r.removeLocked(client)
	}

	set, ok := r.users[userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.users[userID] = set
	}
	wasOffline := len(set) == 0
	set[client] = struct{}{}
	client.userID = userID

	if wasOffline && r.OnOnline != nil {
		r.OnOnline(userID)
	}
}

// Deregister removes the connection from whichever user owns it. Unknown
// connections are a no-op.
func (r *Registry) Deregister(client *Client) {
	if client == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(client)
}

func (r *Registry) removeLocked(client *Client) {
	userID := client.userID
	if userID == 0 {
		return
	}
	set, ok := r.users[userID]
	if !ok {
		return
	}
	if _, present := set[client]; !present {
		return
	}
	delete(set, client)
	client.userID = 0
	if len(set) == 0 {
		delete(r.users, userID)
		if r.OnOffline != nil {
			r.OnOffline(userID)
		}
	}
}

// ConnectionsFor returns a snapshot of the user's live connections,
// possibly empty.
func (r *Registry) ConnectionsFor(userID uint) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.users[userID]
	out := make([]*Client, 0, len(set))
	for client := range set {
		out = append(out, client)
	}
	return out
}

// OnlineUsers returns a snapshot of the user ids with at least one live
// connection.
func (r *Registry) OnlineUsers() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint, 0, len(r.users))
	for userID := range r.users {
		out = append(out, userID)
	}
	return out
}
