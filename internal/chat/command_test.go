package chat

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageFrame(channel, text string) Frame {
	data, _ := json.Marshal(MessageRequest{ChannelName: channel, Text: text})
	return Frame{Event: EventMessage, Data: data}
}

func TestCommandUnknownReportedToIssuer(t *testing.T) {
	r, fn := newTestRouter()
	require.NoError(t, r.Login("conn-a", "alice"))
	fn.reset()

	r.HandleEvent("conn-a", messageFrame("", "/frobnicate now"))

	errs := fn.unicastsTo("conn-a", EventMessageError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Command not found.", errs[0].payload)
}

func TestCommandMissingArgumentsIsSilent(t *testing.T) {
	r, fn := newTestRouter()
	require.NoError(t, r.Login("conn-a", "alice"))
	fn.reset()

	for _, text := range []string{"/nick", "/create", "/delete", "/join", "/msg", "/msg bob"} {
		r.HandleEvent("conn-a", messageFrame("", text))
		assert.Empty(t, fn.all(), "command %q should be silently ignored", text)
		fn.reset()
	}
}

func TestCommandNick(t *testing.T) {
	r, fn := newTestRouter()
	require.NoError(t, r.Login("conn-a", "alice"))
	require.NoError(t, r.Login("conn-b", "bob"))
	fn.reset()

	r.HandleEvent("conn-a", messageFrame("", "/nick alicia"))

	id, ok := r.registry.Get("conn-a")
	require.True(t, ok)
	assert.Equal(t, "alicia", id.DisplayName)
	require.Len(t, fn.byEvent(EventGlobalMessage), 1)

	// Uniqueness holds on the slash path too.
	fn.reset()
	r.HandleEvent("conn-a", messageFrame("", "/nick bob"))
	require.Len(t, fn.unicastsTo("conn-a", EventUpdateError), 1)
}

func TestCommandMsgRejoinsText(t *testing.T) {
	r, fn := newTestRouter()
	require.NoError(t, r.Login("conn-a", "alice"))
	require.NoError(t, r.Login("conn-b", "bob"))
	fn.reset()

	r.HandleEvent("conn-a", messageFrame("", "/msg bob hi   there  friend"))

	got := fn.unicastsTo("conn-b", EventPrivateMessage)
	require.Len(t, got, 1)
	assert.Equal(t, PrivateMessagePayload{From: "alice", To: "bob", Text: "hi there friend"}, got[0].payload)
	require.Len(t, fn.unicastsTo("conn-a", EventPrivateMessage), 1)

	fn.reset()
	r.HandleEvent("conn-a", messageFrame("", "/msg nobody hello"))
	errs := fn.unicastsTo("conn-a", EventMessageError)
	require.Len(t, errs, 1)
	assert.Equal(t, "User not found.", errs[0].payload)
}

func TestCommandLeaveAndUsersUseCurrentChannel(t *testing.T) {
	r, fn := newTestRouter()
	require.NoError(t, r.Login("conn-a", "alice"))
	r.HandleEvent("conn-a", messageFrame("", "/create dev"))
	r.HandleEvent("conn-a", messageFrame("", "/join dev"))
	fn.reset()

	r.HandleEvent("conn-a", messageFrame("", "/users"))
	lists := fn.unicastsTo("conn-a", EventUserList)
	require.Len(t, lists, 1)
	assert.Equal(t, []string{"alice"}, lists[0].payload)

	fn.reset()
	r.HandleEvent("conn-a", messageFrame("", "/leave"))
	id, ok := r.registry.Get("conn-a")
	require.True(t, ok)
	assert.Empty(t, id.CurrentChannel)
	assert.Empty(t, r.directory.JoinedBy("conn-a"))

	// With no current channel both commands are silent no-ops.
	fn.reset()
	r.HandleEvent("conn-a", messageFrame("", "/leave"))
	r.HandleEvent("conn-a", messageFrame("", "/users"))
	assert.Empty(t, fn.all())
}

func TestCommandListFilters(t *testing.T) {
	r, fn := newTestRouter()
	require.NoError(t, r.Login("conn-a", "alice"))
	for _, name := range []string{"dev", "dev-ops", "general"} {
		require.NoError(t, r.CreateChannel("conn-a", name))
	}
	fn.reset()

	r.HandleEvent("conn-a", messageFrame("", "/list dev"))
	lists := fn.unicastsTo("conn-a", EventChannelList)
	require.Len(t, lists, 1)
	summaries, ok := lists[0].payload.([]ChannelSummary)
	require.True(t, ok)
	require.Len(t, summaries, 2)

	fn.reset()
	r.HandleEvent("conn-a", messageFrame("", "/list"))
	lists = fn.unicastsTo("conn-a", EventChannelList)
	require.Len(t, lists, 1)
	assert.Len(t, lists[0].payload, 3)
}

func TestCommandNameMatchingIsCaseInsensitive(t *testing.T) {
	r, fn := newTestRouter()
	require.NoError(t, r.Login("conn-a", "alice"))
	fn.reset()

	r.HandleEvent("conn-a", messageFrame("", "/CREATE dev"))
	ch, ok := r.directory.Get("dev")
	require.True(t, ok)
	assert.Equal(t, "conn-a", ch.Creator)
	require.Len(t, fn.byEvent(EventChannelList), 1)
}

func TestCommandAndEventShareOneDispatchPath(t *testing.T) {
	r, fn := newTestRouter()
	require.NoError(t, r.Login("conn-a", "alice"))

	// Create one channel per path; both must behave identically.
	r.HandleEvent("conn-a", messageFrame("", "/create via-command"))
	r.HandleEvent("conn-a", Frame{Event: EventCreateChannel, Data: rawString("via-event")})

	for _, name := range []string{"via-command", "via-event"} {
		_, ok := r.directory.Get(name)
		assert.True(t, ok, "channel %s", name)
	}

	// Both paths reject duplicates with the same error event.
	fn.reset()
	r.HandleEvent("conn-a", messageFrame("", "/create via-event"))
	r.HandleEvent("conn-a", Frame{Event: EventCreateChannel, Data: rawString("via-command")})
	errs := fn.unicastsTo("conn-a", EventChannelError)
	require.Len(t, errs, 2)
	assert.Equal(t, errs[0].payload, errs[1].payload)
}

func TestCommandDispatchManyClientsSequential(t *testing.T) {
	r, _ := newTestRouter()
	for i := 0; i < 8; i++ {
		connID := fmt.Sprintf("conn-%d", i)
		require.NoError(t, r.Login(connID, fmt.Sprintf("user-%d", i)))
		r.HandleEvent(connID, messageFrame("", fmt.Sprintf("/create room-%d", i)))
		r.HandleEvent(connID, messageFrame("", fmt.Sprintf("/join room-%d", i)))
	}

	assert.Len(t, r.directory.List(""), 8)
	for i := 0; i < 8; i++ {
		connID := fmt.Sprintf("conn-%d", i)
		assert.Equal(t, []string{fmt.Sprintf("room-%d", i)}, r.directory.JoinedBy(connID))
	}
}
