// Package rpc contains the network side of sKV: the wire protocol, the TLS
// transport, the server and the client.
//
// The package is organized into several subpackages:
//
//   - common: The command and response literals of the protocol, configuration
//     structures, and logging.
//
//   - transport: The frame codec (4 byte big endian length prefix followed by an
//     ASCII payload) and the connector interfaces. The tls subpackage implements
//     the connectors on top of crypto/tls.
//
//   - server: Accept loop, per connection session handling and the admin endpoint.
//
//   - client: Lock-step client verifying the digest of every value it reads.
package rpc
