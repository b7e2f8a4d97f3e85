// Package netmon tracks connectivity to the remote API as an explicit
// Online/Offline state machine.
//
// A periodic HEAD probe against the API health endpoint drives transitions;
// udev netlink events on the net subsystem request immediate re-probes so
// reconnects are noticed quickly. Subscribers observe transitions only, never
// steady state, and the became-online transition is what triggers background
// outbox drains.
package netmon
