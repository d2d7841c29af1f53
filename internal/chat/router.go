package chat

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Error texts reported to the originating connection. The wording follows
// the events the web client already understands.
const (
	errTextLoginInvalid   = "Username is already taken or invalid."
	errTextChannelInvalid = "Channel name is already taken or invalid."
	errTextRenameInvalid  = "New channel name is already taken or invalid."
	errTextNotCreator     = "Channel not found or you are not the creator."
	errTextChannelMissing = "Channel not found."
	errTextNotInChannel   = "User not in channel."
	errTextBadMessage     = "Message is empty or channel/user not found."
	errTextUserMissing    = "User not found."
	errTextUnknownCommand = "Command not found."
)

// Notifier is the transport capability the router drives. Implementations
// must never block: delivery is fire-and-forget, and a slow or dead
// recipient must not stall a mutation.
type Notifier interface {
	Broadcast(topic, event string, payload any)
	Unicast(connID, event string, payload any)
	JoinTopic(connID, topic string)
	LeaveTopic(connID, topic string)
}

// Router is the single entry point for inbound connection events. It owns
// the registry and directory and serializes every mutation behind one
// mutex, so uniqueness and ownership checks are indivisible from the
// mutations they guard. List operations share the read lock.
type Router struct {
	mu        sync.RWMutex
	registry  *Registry
	directory *Directory
	notifier  Notifier
	log       *zap.SugaredLogger
	now       func() time.Time
}

// NewRouter creates a router with an empty registry and directory.
func NewRouter(notifier Notifier, log *zap.SugaredLogger) *Router {
	return &Router{
		registry:  NewRegistry(),
		directory: NewDirectory(),
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

// HandleEvent decodes one inbound frame and routes it to the matching
// operation. Failures are reported back to the issuing connection only;
// shared state is never left partially mutated.
func (r *Router) HandleEvent(connID string, frame Frame) {
	switch frame.Event {
	case EventLogin:
		if err := r.Login(connID, decodeString(frame.Data)); err != nil {
			r.notifier.Unicast(connID, EventLoginError, errTextLoginInvalid)
		}
	case EventUpdateInfo:
		if err := r.Rename(connID, decodeString(frame.Data)); err != nil {
			r.notifier.Unicast(connID, EventUpdateError, errTextLoginInvalid)
		}
	case EventCreateChannel:
		if err := r.CreateChannel(connID, decodeString(frame.Data)); err != nil {
			r.notifier.Unicast(connID, EventChannelError, errTextChannelInvalid)
		}
	case EventUpdateChannel:
		var req UpdateChannelRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			r.notifier.Unicast(connID, EventChannelError, errTextRenameInvalid)
			return
		}
		if err := r.RenameChannel(connID, req.OldName, req.NewName); err != nil {
			if errors.Is(err, ErrNameTaken) || errors.Is(err, ErrInvalidName) {
				r.notifier.Unicast(connID, EventChannelError, errTextRenameInvalid)
			} else {
				r.notifier.Unicast(connID, EventChannelError, errTextNotCreator)
			}
		}
	case EventDeleteChannel:
		if err := r.DeleteChannel(connID, decodeString(frame.Data)); err != nil {
			r.notifier.Unicast(connID, EventChannelError, errTextNotCreator)
		}
	case EventJoinChannel:
		if err := r.JoinChannel(connID, decodeString(frame.Data)); err != nil {
			r.notifier.Unicast(connID, EventChannelError, errTextChannelMissing)
		}
	case EventLeaveChannel:
		if err := r.LeaveChannel(connID, decodeString(frame.Data)); err != nil {
			r.notifier.Unicast(connID, EventChannelError, errTextNotInChannel)
		}
	case EventListChannels:
		r.ListChannels(connID, decodeString(frame.Data))
	case EventListUsers:
		r.ListUsers(connID, decodeString(frame.Data))
	case EventMessage:
		var req MessageRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			r.notifier.Unicast(connID, EventMessageError, errTextBadMessage)
			return
		}
		if strings.HasPrefix(req.Text, "/") {
			r.dispatchCommand(connID, req.Text)
			return
		}
		if err := r.PostMessage(connID, req.ChannelName, req.Text); err != nil {
			r.notifier.Unicast(connID, EventMessageError, errTextBadMessage)
		}
	case EventPrivateMessage:
		var req PrivateMessageRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			r.notifier.Unicast(connID, EventMessageError, errTextUserMissing)
			return
		}
		if err := r.PrivateMessage(connID, req.To, req.Text); err != nil {
			r.notifier.Unicast(connID, EventMessageError, errTextUserMissing)
		}
	case EventCustomDisconnect:
		r.Disconnect(connID)
	default:
		r.log.Warnw("unknown event", "event", frame.Event, "conn", connID)
	}
}

// Login creates an identity for the connection. On success the new
// identity receives the channel list and everyone receives the updated
// user list.
func (r *Router) Login(connID, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.registry.Login(connID, displayName)
	if err != nil {
		return err
	}
	r.notifier.Unicast(connID, EventChannelList, r.directory.List(""))
	r.notifier.Broadcast(GlobalTopic, EventUserList, r.registry.DisplayNames())
	r.log.Infow("user logged in", "user", id.DisplayName, "conn", connID)
	return nil
}

// Rename changes the connection's display name and announces the change
// globally. Renaming to the current name is a no-op success.
func (r *Router) Rename(connID, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, oldName, err := r.registry.Rename(connID, newName)
	if err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	r.notifier.Broadcast(GlobalTopic, EventUserList, r.registry.DisplayNames())
	r.announce(oldName + " changed their nick to " + newName)
	r.log.Infow("user renamed", "old", oldName, "new", id.DisplayName)
	return nil
}

// CreateChannel inserts a channel owned by the connection's identity and
// announces it globally.
func (r *Router) CreateChannel(connID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.registry.Get(connID)
	if !ok {
		return ErrNotLoggedIn
	}
	ch, err := r.directory.Create(connID, name, r.now())
	if err != nil {
		return err
	}
	r.broadcastChannelList()
	r.announce(id.DisplayName + " created channel " + ch.Name)
	r.log.Infow("channel created", "channel", ch.Name, "creator", id.DisplayName)
	return nil
}

// RenameChannel renames a channel the connection created, moving its
// members to the renamed delivery topic.
func (r *Router) RenameChannel(connID, oldName, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, err := r.directory.Rename(connID, oldName, newName)
	if err != nil {
		return err
	}
	if oldName == ch.Name {
		return nil
	}
	for memberID := range ch.Members {
		r.notifier.LeaveTopic(memberID, ChannelTopic(oldName))
		r.notifier.JoinTopic(memberID, ChannelTopic(ch.Name))
		if member, ok := r.registry.Get(memberID); ok && member.CurrentChannel == oldName {
			member.CurrentChannel = ch.Name
		}
	}
	r.broadcastChannelList()
	r.log.Infow("channel renamed", "old", oldName, "new", ch.Name)
	return nil
}

// DeleteChannel removes a channel the connection created. Members are
// unsubscribed, every connection sees channelDeleted so stale views can
// recover, and the deletion is announced globally.
func (r *Router) DeleteChannel(connID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.registry.Get(connID)
	if !ok {
		return ErrNotFound
	}
	ch, err := r.directory.Delete(connID, name)
	if err != nil {
		return err
	}
	r.dropChannel(ch)
	r.broadcastChannelList()
	r.announce(id.DisplayName + " deleted channel " + ch.Name)
	r.log.Infow("channel deleted", "channel", ch.Name, "by", id.DisplayName)
	return nil
}

// JoinChannel adds the connection to a channel, makes it the identity's
// current channel, and broadcasts the stored join notice to the members,
// the joiner included.
func (r *Router) JoinChannel(connID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.registry.Get(connID)
	if !ok {
		return ErrNotFound
	}
	ch, msg, err := r.directory.Join(connID, id.DisplayName, name, r.now())
	if err != nil {
		return err
	}
	id.CurrentChannel = ch.Name
	r.notifier.JoinTopic(connID, ChannelTopic(ch.Name))
	r.notifier.Broadcast(ChannelTopic(ch.Name), EventNewMessage, NewMessagePayload{
		ChannelName: ch.Name,
		Message:     msg,
	})
	return nil
}

// LeaveChannel removes the connection from a channel it is a member of and
// broadcasts the stored leave notice to the remaining members.
func (r *Router) LeaveChannel(connID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.registry.Get(connID)
	if !ok {
		return ErrNotInChannel
	}
	ch, msg, err := r.directory.Leave(connID, id.DisplayName, name, r.now())
	if err != nil {
		return err
	}
	if id.CurrentChannel == ch.Name {
		id.CurrentChannel = ""
	}
	r.notifier.LeaveTopic(connID, ChannelTopic(ch.Name))
	r.notifier.Broadcast(ChannelTopic(ch.Name), EventNewMessage, NewMessagePayload{
		ChannelName: ch.Name,
		Message:     msg,
	})
	return nil
}

// ListChannels sends the filtered channel list to the requesting
// connection only.
func (r *Router) ListChannels(connID, filter string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.notifier.Unicast(connID, EventChannelList, r.directory.List(filter))
}

// ListUsers sends the display names of a channel's members to the
// requesting connection only.
func (r *Router) ListUsers(connID, channelName string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.notifier.Unicast(connID, EventUserList, r.usersIn(channelName))
}

// PostMessage stores a message in the channel's history and broadcasts it
// to the members.
func (r *Router) PostMessage(connID, channelName, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.registry.Get(connID)
	if !ok {
		return ErrNotLoggedIn
	}
	ch, msg, err := r.directory.Post(id.DisplayName, channelName, text, r.now())
	if err != nil {
		return err
	}
	r.notifier.Broadcast(ChannelTopic(ch.Name), EventNewMessage, NewMessagePayload{
		ChannelName: ch.Name,
		Message:     msg,
	})
	return nil
}

// PrivateMessage delivers a message to the recipient and echoes it to the
// sender. Nothing is stored and no channel state changes.
func (r *Router) PrivateMessage(connID, toDisplayName, text string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sender, ok := r.registry.Get(connID)
	if !ok {
		return ErrNotLoggedIn
	}
	recipient, ok := r.registry.ByName(toDisplayName)
	if !ok {
		return ErrNotFound
	}
	payload := PrivateMessagePayload{
		From: sender.DisplayName,
		To:   recipient.DisplayName,
		Text: text,
	}
	r.notifier.Unicast(recipient.ConnID, EventPrivateMessage, payload)
	r.notifier.Unicast(sender.ConnID, EventPrivateMessage, payload)
	return nil
}

// Disconnect runs the cleanup shared by explicit logout and transport
// disconnect: cascade-delete owned channels, drop memberships, remove the
// identity, then broadcast the updated user and channel lists. It is
// idempotent; a second call for the same connection is a no-op.
func (r *Router) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.registry.Remove(connID)
	if !ok {
		return
	}
	for _, ch := range r.directory.CascadeDeleteOwnedBy(connID) {
		r.dropChannel(ch)
	}
	for _, name := range r.directory.RemoveFromAll(connID) {
		r.notifier.LeaveTopic(connID, ChannelTopic(name))
	}
	r.notifier.Broadcast(GlobalTopic, EventUserList, r.registry.DisplayNames())
	r.broadcastChannelList()
	r.log.Infow("user disconnected", "user", id.DisplayName, "conn", connID)
}

// dropChannel unsubscribes a removed channel's members and tells every
// connection the channel is gone. Callers hold the write lock.
func (r *Router) dropChannel(ch *Channel) {
	for connID := range ch.Members {
		r.notifier.LeaveTopic(connID, ChannelTopic(ch.Name))
		if member, ok := r.registry.Get(connID); ok && member.CurrentChannel == ch.Name {
			member.CurrentChannel = ""
		}
	}
	r.notifier.Broadcast(GlobalTopic, EventChannelDeleted, ch.Name)
}

// usersIn returns the sorted display names of a channel's members.
// Callers hold at least the read lock.
func (r *Router) usersIn(channelName string) []string {
	members := r.directory.MembersOf(channelName)
	names := make([]string, 0, len(members))
	for _, connID := range members {
		if id, ok := r.registry.Get(connID); ok {
			names = append(names, id.DisplayName)
		}
	}
	sort.Strings(names)
	return names
}

func (r *Router) broadcastChannelList() {
	r.notifier.Broadcast(GlobalTopic, EventChannelList, r.directory.List(""))
}

func (r *Router) announce(text string) {
	r.notifier.Broadcast(GlobalTopic, EventGlobalMessage, GlobalMessagePayload{Text: text})
}

// decodeString unwraps a JSON string payload. Malformed payloads decode to
// the empty string and fail the target operation's own validation.
func decodeString(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ""
	}
	return s
}
