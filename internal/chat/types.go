package chat

import (
	"strings"
	"time"
)

// SystemAuthor is the author name stamped on join/leave notices stored in
// channel history.
const SystemAuthor = "System"

// forbidden channel name characters; see validateChannelName.
const forbiddenNameChars = "/>< "

// Identity is the server-side record for one logged-in connection. Channel
// membership and ownership are not mirrored here; both are derived from the
// directory so that membership has exactly one authoritative store.
type Identity struct {
	ConnID         string
	DisplayName    string
	CurrentChannel string // empty when the identity is in no channel
}

// Message is an immutable value shared by channel messages, private
// messages, and global announcements.
type Message struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Channel is a named, creator-owned topic with membership and history.
type Channel struct {
	Name         string
	Creator      string // connection ID, immutable once set
	Members      map[string]struct{}
	History      []Message
	LastActivity time.Time
}

// ChannelSummary is the projection of a channel carried by channelList
// events. History stays server-side.
type ChannelSummary struct {
	Name         string    `json:"name"`
	MemberCount  int       `json:"memberCount"`
	LastActivity time.Time `json:"lastActivity"`
}

func (c *Channel) summary() ChannelSummary {
	return ChannelSummary{
		Name:         c.Name,
		MemberCount:  len(c.Members),
		LastActivity: c.LastActivity,
	}
}

func validateChannelName(name string) error {
	if name == "" || strings.ContainsAny(name, forbiddenNameChars) {
		return ErrInvalidName
	}
	return nil
}
