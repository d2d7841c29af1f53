package chat

import "strings"

// command is one entry in the slash-command table. Commands map 1:1 onto
// router operations; the table is the only definition of the command set,
// so slash-prefixed chat messages and native events cannot diverge.
type command struct {
	minArgs int
	run     func(r *Router, connID string, args []string)
}

var commands = map[string]command{
	"nick": {minArgs: 1, run: func(r *Router, connID string, args []string) {
		if err := r.Rename(connID, args[0]); err != nil {
			r.notifier.Unicast(connID, EventUpdateError, errTextLoginInvalid)
		}
	}},
	"list": {minArgs: 0, run: func(r *Router, connID string, args []string) {
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		r.ListChannels(connID, filter)
	}},
	"create": {minArgs: 1, run: func(r *Router, connID string, args []string) {
		if err := r.CreateChannel(connID, args[0]); err != nil {
			r.notifier.Unicast(connID, EventChannelError, errTextChannelInvalid)
		}
	}},
	"delete": {minArgs: 1, run: func(r *Router, connID string, args []string) {
		if err := r.DeleteChannel(connID, args[0]); err != nil {
			r.notifier.Unicast(connID, EventChannelError, errTextNotCreator)
		}
	}},
	"join": {minArgs: 1, run: func(r *Router, connID string, args []string) {
		if err := r.JoinChannel(connID, args[0]); err != nil {
			r.notifier.Unicast(connID, EventChannelError, errTextChannelMissing)
		}
	}},
	"leave": {minArgs: 0, run: func(r *Router, connID string, args []string) {
		current := r.currentChannelOf(connID)
		if current == "" {
			return
		}
		if err := r.LeaveChannel(connID, current); err != nil {
			r.notifier.Unicast(connID, EventChannelError, errTextNotInChannel)
		}
	}},
	"users": {minArgs: 0, run: func(r *Router, connID string, args []string) {
		current := r.currentChannelOf(connID)
		if current == "" {
			return
		}
		r.ListUsers(connID, current)
	}},
	"msg": {minArgs: 2, run: func(r *Router, connID string, args []string) {
		if err := r.PrivateMessage(connID, args[0], strings.Join(args[1:], " ")); err != nil {
			r.notifier.Unicast(connID, EventMessageError, errTextUserMissing)
		}
	}},
}

// dispatchCommand parses a slash-prefixed chat message and runs the
// matching command. Unknown commands are reported to the issuer only;
// commands missing required arguments are silently ignored, matching the
// behavior clients already rely on.
func (r *Router) dispatchCommand(connID, text string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	cmd, ok := commands[name]
	if !ok {
		r.notifier.Unicast(connID, EventMessageError, errTextUnknownCommand)
		return
	}
	args := fields[1:]
	if len(args) < cmd.minArgs {
		return
	}
	cmd.run(r, connID, args)
}

// currentChannelOf reports the channel the connection's identity currently
// has focused, or the empty string.
func (r *Router) currentChannelOf(connID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.registry.Get(connID); ok {
		return id.CurrentChannel
	}
	return ""
}
