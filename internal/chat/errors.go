package chat

import "errors"

// Operation errors. Every one of these is recoverable: the router reports
// it to the originating connection and leaves shared state untouched.
var (
	ErrDuplicateName = errors.New("display name already in use")
	ErrInvalidName   = errors.New("name is empty or contains forbidden characters")
	ErrNameTaken     = errors.New("channel name already in use")
	ErrNotFound      = errors.New("channel or user not found")
	ErrNotOwner      = errors.New("channel can only be changed by its creator")
	ErrNotInChannel  = errors.New("user is not a member of the channel")
	ErrEmptyMessage  = errors.New("message text is empty")
	ErrNotLoggedIn   = errors.New("connection has no identity")
)
