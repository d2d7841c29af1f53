package chat

import "sort"

// Registry owns the set of live identities and is the source of truth for
// who is online. It enforces display-name uniqueness on login and rename.
//
// The registry performs no locking of its own: the router serializes every
// access together with directory access, so a check and the mutation it
// guards are always indivisible.
type Registry struct {
	identities map[string]*Identity // connection ID -> identity
	names      map[string]string    // display name -> connection ID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		identities: make(map[string]*Identity),
		names:      make(map[string]string),
	}
}

// Login creates an identity for the connection. It fails with
// ErrDuplicateName if the name is empty or already held by a live identity.
func (reg *Registry) Login(connID, displayName string) (*Identity, error) {
	if displayName == "" {
		return nil, ErrDuplicateName
	}
	if holder, taken := reg.names[displayName]; taken && holder != connID {
		return nil, ErrDuplicateName
	}
	// A connection logging in again replaces its identity; the old name
	// must not linger in the index.
	if prev, ok := reg.identities[connID]; ok {
		delete(reg.names, prev.DisplayName)
	}
	id := &Identity{ConnID: connID, DisplayName: displayName}
	reg.identities[connID] = id
	reg.names[displayName] = connID
	return id, nil
}

// Rename changes an identity's display name in place. Renaming to the name
// the identity already holds is a no-op success.
func (reg *Registry) Rename(connID, newName string) (*Identity, string, error) {
	id, ok := reg.identities[connID]
	if !ok {
		return nil, "", ErrNotFound
	}
	if newName == "" {
		return nil, "", ErrDuplicateName
	}
	if holder, taken := reg.names[newName]; taken && holder != connID {
		return nil, "", ErrDuplicateName
	}
	oldName := id.DisplayName
	delete(reg.names, oldName)
	id.DisplayName = newName
	reg.names[newName] = connID
	return id, oldName, nil
}

// Get returns the identity for a connection, if any.
func (reg *Registry) Get(connID string) (*Identity, bool) {
	id, ok := reg.identities[connID]
	return id, ok
}

// ByName returns the live identity holding a display name, if any.
func (reg *Registry) ByName(displayName string) (*Identity, bool) {
	connID, ok := reg.names[displayName]
	if !ok {
		return nil, false
	}
	return reg.identities[connID], true
}

// Remove deletes the identity for a connection and returns it for cascade
// cleanup. Removing an absent identity is a no-op.
func (reg *Registry) Remove(connID string) (*Identity, bool) {
	id, ok := reg.identities[connID]
	if !ok {
		return nil, false
	}
	delete(reg.identities, connID)
	delete(reg.names, id.DisplayName)
	return id, true
}

// DisplayNames returns every live display name in lexical order.
func (reg *Registry) DisplayNames() []string {
	names := make([]string, 0, len(reg.names))
	for name := range reg.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
