// Package transport contains the wire-level building blocks shared by the
// client and the server: the frame codec and the connector interfaces.
//
// Frame format:
//
//	+----------------------------+---------------------------+
//	| length (uint32, big endian) | ASCII payload (length B) |
//	+----------------------------+---------------------------+
//
// Frames follow each other without a delimiter. The payload is trimmed of
// surrounding whitespace on both ends. ReadFrame enforces a payload ceiling
// (DefaultMaxFrameSize unless configured) so that a malicious length field
// cannot force a large allocation.
//
// Connectors:
//
//   - IServerConnector creates the listener and completes the handshake of
//     accepted connections.
//   - IClientConnector dials the server.
//
// The only production implementation is the TLS connector in the
// "github.com/ValentinKolb/sKV/rpc/transport/tls" package.
package transport
