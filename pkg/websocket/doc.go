// Package websocket is a synchronous, I/O-abstracted implementation of the
// WebSocket protocol (RFC 6455): a frame codec, a message-reassembly state
// machine, and the HTTP/1.1 opening handshake for both the client and the
// server role.
//
// The engine never spawns a goroutine and never blocks. Every operation
// that might otherwise block on network I/O instead returns (or wraps)
// [ErrWouldBlock], so the caller can register readiness interest on the
// underlying [Transport] and retry. This makes the engine equally usable
// behind a blocking [net.Conn], a non-blocking socket driven by an event
// loop, or a cooperatively scheduled task.
//
// [Context] is the protocol state machine; it owns no transport. [Session]
// binds a [Context] to a concrete [Transport] and exposes Read, Write,
// Ping and Close over it, passing would-block signals from the transport
// through to the caller. Send and Flush exist only on the [Context],
// which [Session.Context] returns.
//
// Connection establishment goes through [DialClient] (client role) or
// [AcceptServer] (server role), both of which drive an HTTP/1.1 Upgrade
// exchange to completion and hand back a ready-to-use [Session].
package websocket
