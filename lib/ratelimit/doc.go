// Package ratelimit implements the per-identity request limiter of the server.
//
// Every connection handler calls Admit for its bound identity before it reads
// the next command. With the defaults, ten requests are admitted within any
// sixty second window; the eleventh is rejected and the handler drops the
// connection.
//
// Entries are created lazily on the first request. Identities whose timestamps
// all left the window are removed by Sweep, which the server runs periodically
// through Run so that the number of tracked identities stays bounded by the
// number of recently active clients.
//
// Thread Safety:
//
//	All methods except SetClock are safe for concurrent use. The decision for a
//	single identity is atomic: two concurrent calls for the same identity can
//	never both take the last free slot.
package ratelimit
