// Package common provides the data structures and utilities shared by the
// client and the server of the secure key-value store.
//
// The package focuses on:
//   - The text protocol: verbs, response literals and command parsing
//   - Configuration structures for client and server
//   - Custom logging implementation on top of Dragonboat's logger package
//
// Key Components:
//
//   - Command / ParseCommand: a command frame is "<VERB> <ARG>", split at the
//     first space. The argument is optional (DISCONNECT has none).
//
//   - Response literals: the exact strings the server answers with, e.g.
//     RespConnectOK or RespTooManyRequests. Clients compare against these
//     constants and treat anything else as a protocol violation.
//
//   - ServerConfig: endpoint, TLS material, timeouts, rate limiting and the
//     optional admin endpoint. ClientConfig: endpoint, identifier and TLS trust.
//
//   - Logger: every package obtains its logger through logger.GetLogger(name);
//     InitLoggers installs a factory producing "LEVEL | name | message" lines.
package common
