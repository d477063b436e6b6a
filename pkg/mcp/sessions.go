package mcp

import "sync"

// ClientRegistry maps client IDs to MCP session IDs.
// Populated when a client passes client_id to canopy.open.
type ClientRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string // clientID → sessionID
}

// NewClientRegistry creates a new empty ClientRegistry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{sessions: make(map[string]string)}
}

// Register associates a client ID with a session ID.
// If the client already has a session, it is overwritten (reconnect).
func (r *ClientRegistry) Register(clientID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[clientID] = sessionID
}

// SessionFor returns the session ID for the given client, if connected.
func (r *ClientRegistry) SessionFor(clientID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.sessions[clientID]
	return sid, ok
}

// SessionIDs returns the distinct registered session IDs.
func (r *ClientRegistry) SessionIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(r.sessions))
	ids := make([]string, 0, len(r.sessions))
	for _, sid := range r.sessions {
		if !seen[sid] {
			seen[sid] = true
			ids = append(ids, sid)
		}
	}
	return ids
}

// Remove deletes all client mappings for the given session ID.
// Called when a session disconnects.
func (r *ClientRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for cid, sid := range r.sessions {
		if sid == sessionID {
			delete(r.sessions, cid)
		}
	}
}
