// Package store defines the key-value mapping shared by all client sessions
// of the server.
//
// The package focuses on:
//   - A small interface (IStore) covering the PUT/GET/DELETE commands of the wire protocol
//   - Entries that carry the client supplied integrity digest next to the value
//
// Key Components:
//
//   - IStore Interface: Put always succeeds and overwrites, Get reports a miss
//     through its boolean return value, Delete reports whether something was removed.
//
//   - Entry: the (value, digest) pair. The digest is written by the client on PUT
//     and handed back on GET; the store never recomputes or verifies it.
//
// Implementations:
//
//	- Local Store (lstore): an in-memory map guarded by a single exclusive lock.
//	  Every operation holds the lock for its full duration and never across
//	  network I/O. The contents live until deleted or until the process exits.
//	  Available in the "github.com/ValentinKolb/sKV/lib/store/lstore" package.
package store
