package chat

import "encoding/json"

// Inbound event names understood by the router.
const (
	EventLogin            = "login"
	EventUpdateInfo       = "updateInfo"
	EventCreateChannel    = "createChannel"
	EventUpdateChannel    = "updateChannel"
	EventDeleteChannel    = "deleteChannel"
	EventJoinChannel      = "joinChannel"
	EventLeaveChannel     = "leaveChannel"
	EventListChannels     = "listChannels"
	EventListUsers        = "listUsers"
	EventMessage          = "message"
	EventPrivateMessage   = "privateMessage"
	EventCustomDisconnect = "customDisconnect"
)

// Outbound event names produced by the router.
const (
	EventUserList       = "userList"
	EventChannelList    = "channelList"
	EventNewMessage     = "newMessage"
	EventGlobalMessage  = "globalMessage"
	EventChannelDeleted = "channelDeleted"
	EventLoginError     = "loginError"
	EventUpdateError    = "updateError"
	EventChannelError   = "channelError"
	EventMessageError   = "messageError"
)

// GlobalTopic is the topic every connection is subscribed to for its whole
// lifetime. Channel topics are derived with ChannelTopic; the "/" in both
// prefixes cannot appear in a channel name, so topics never collide.
const GlobalTopic = "global/"

// ChannelTopic returns the delivery topic for a channel's members.
func ChannelTopic(name string) string {
	return "channel/" + name
}

// Frame is the JSON envelope exchanged with clients in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// UpdateChannelRequest is the payload of an updateChannel event.
type UpdateChannelRequest struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

// MessageRequest is the payload of a message event.
type MessageRequest struct {
	ChannelName string `json:"channelName"`
	Text        string `json:"text"`
}

// PrivateMessageRequest is the payload of an inbound privateMessage event.
type PrivateMessageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// NewMessagePayload is the payload of a newMessage broadcast.
type NewMessagePayload struct {
	ChannelName string  `json:"channelName"`
	Message     Message `json:"message"`
}

// PrivateMessagePayload is the payload delivered to both parties of a
// private message. Private messages are never stored.
type PrivateMessagePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// GlobalMessagePayload is the payload of a globalMessage announcement.
type GlobalMessagePayload struct {
	Text string `json:"text"`
}
