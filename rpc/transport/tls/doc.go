// Package tls implements the TLS over TCP connectors used by the sKV server and
// client. It provides concrete implementations of the transport package's
// connector interfaces.
//
// Key Components:
//
//   - serverConnector: opens a TLS listener whose accept calls honor a deadline
//     and performs the server side handshake with a context bound
//
//   - clientConnector: dials the server, verifying the certificate chain against
//     a CA file and optionally skipping only the hostname check
//
//   - GenerateSelfSigned: creates ECDSA P-256 certificates used when the server
//     runs without configured certificate material and by the "skv cert" command
//
// The listener requires TLS 1.2 or newer.
package tls
