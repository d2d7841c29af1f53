package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Directory owns the set of live channels. Membership lives only here, in
// each channel's member set; identity-side views are derived by lookup so
// the relation has a single place that can be wrong.
//
// Like the registry, the directory relies on the router for serialization.
type Directory struct {
	channels map[string]*Channel
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{channels: make(map[string]*Channel)}
}

// Create inserts a new channel owned by the calling connection.
func (d *Directory) Create(connID, name string, now time.Time) (*Channel, error) {
	if err := validateChannelName(name); err != nil {
		return nil, err
	}
	if _, taken := d.channels[name]; taken {
		return nil, ErrNameTaken
	}
	ch := &Channel{
		Name:         name,
		Creator:      connID,
		Members:      make(map[string]struct{}),
		LastActivity: now,
	}
	d.channels[name] = ch
	return ch, nil
}

// Rename changes a channel's name in place, preserving history and
// membership. Only the creator may rename; renaming a channel to its
// current name is a no-op success.
func (d *Directory) Rename(connID, oldName, newName string) (*Channel, error) {
	ch, ok := d.channels[oldName]
	if !ok {
		return nil, ErrNotFound
	}
	if ch.Creator != connID {
		return nil, ErrNotOwner
	}
	if newName == oldName {
		return ch, nil
	}
	if err := validateChannelName(newName); err != nil {
		return nil, err
	}
	if _, taken := d.channels[newName]; taken {
		return nil, ErrNameTaken
	}
	delete(d.channels, oldName)
	ch.Name = newName
	d.channels[newName] = ch
	return ch, nil
}

// Delete removes a channel. Only the creator may delete. The removed
// channel is returned so the caller can notify its members.
func (d *Directory) Delete(connID, name string) (*Channel, error) {
	ch, ok := d.channels[name]
	if !ok {
		return nil, ErrNotFound
	}
	if ch.Creator != connID {
		return nil, ErrNotOwner
	}
	delete(d.channels, name)
	return ch, nil
}

// Join adds the connection to the channel's member set and appends the
// "joined" system notice to history.
func (d *Directory) Join(connID, displayName, name string, now time.Time) (*Channel, Message, error) {
	ch, ok := d.channels[name]
	if !ok {
		return nil, Message{}, ErrNotFound
	}
	ch.Members[connID] = struct{}{}
	msg := Message{
		Author:    SystemAuthor,
		Text:      fmt.Sprintf("%s joined the channel", displayName),
		Timestamp: now,
	}
	ch.History = append(ch.History, msg)
	ch.LastActivity = now
	return ch, msg, nil
}

// Leave removes the connection from the channel's member set and appends
// the "left" system notice. Leaving a channel the connection is not a
// member of is an error, not a silent no-op.
func (d *Directory) Leave(connID, displayName, name string, now time.Time) (*Channel, Message, error) {
	ch, ok := d.channels[name]
	if !ok {
		return nil, Message{}, ErrNotInChannel
	}
	if _, member := ch.Members[connID]; !member {
		return nil, Message{}, ErrNotInChannel
	}
	delete(ch.Members, connID)
	msg := Message{
		Author:    SystemAuthor,
		Text:      fmt.Sprintf("%s left the channel", displayName),
		Timestamp: now,
	}
	ch.History = append(ch.History, msg)
	ch.LastActivity = now
	return ch, msg, nil
}

// Get returns a channel by name.
func (d *Directory) Get(name string) (*Channel, bool) {
	ch, ok := d.channels[name]
	return ch, ok
}

// List returns summaries of all channels whose name contains the filter as
// a literal, case-sensitive substring, in lexical order. An empty filter
// matches every channel.
func (d *Directory) List(filter string) []ChannelSummary {
	summaries := make([]ChannelSummary, 0, len(d.channels))
	for name, ch := range d.channels {
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		summaries = append(summaries, ch.summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries
}

// Post appends a user message to the channel's history and bumps its
// last-activity timestamp.
func (d *Directory) Post(author, name, text string, now time.Time) (*Channel, Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, Message{}, ErrEmptyMessage
	}
	ch, ok := d.channels[name]
	if !ok {
		return nil, Message{}, ErrNotFound
	}
	msg := Message{Author: author, Text: text, Timestamp: now}
	ch.History = append(ch.History, msg)
	ch.LastActivity = now
	return ch, msg, nil
}

// MembersOf returns the connection IDs of a channel's members.
func (d *Directory) MembersOf(name string) []string {
	ch, ok := d.channels[name]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(ch.Members))
	for connID := range ch.Members {
		members = append(members, connID)
	}
	return members
}

// JoinedBy returns the names of every channel the connection is a member
// of. This is the identity-side membership view, derived on demand.
func (d *Directory) JoinedBy(connID string) []string {
	var names []string
	for name, ch := range d.channels {
		if _, member := ch.Members[connID]; member {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// CascadeDeleteOwnedBy removes every channel created by the connection,
// regardless of membership, and returns the removed channels. Ownership
// alone authorizes the cascade; it runs on disconnect.
func (d *Directory) CascadeDeleteOwnedBy(connID string) []*Channel {
	var deleted []*Channel
	for name, ch := range d.channels {
		if ch.Creator == connID {
			delete(d.channels, name)
			deleted = append(deleted, ch)
		}
	}
	sort.Slice(deleted, func(i, j int) bool {
		return deleted[i].Name < deleted[j].Name
	})
	return deleted
}

// RemoveFromAll drops the connection from every member set and returns the
// names of the channels it was removed from. Used by disconnect cleanup;
// safe to call when the connection is a member of nothing.
func (d *Directory) RemoveFromAll(connID string) []string {
	var affected []string
	for name, ch := range d.channels {
		if _, member := ch.Members[connID]; member {
			delete(ch.Members, connID)
			affected = append(affected, name)
		}
	}
	sort.Strings(affected)
	return affected
}
