// Package chat implements the real-time coordination core: the session
// registry of logged-in identities, the channel directory with membership
// and message history, and the router that maps inbound connection events
// onto registry and directory operations and fans the results back out
// through the transport's broadcast and unicast capabilities.
package chat
