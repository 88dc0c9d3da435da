package store

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Entry is a single stored value together with the digest supplied by the
// client that wrote it. The digest is never recomputed by the store.
type Entry struct {
	Value  string `json:"value"`
	Digest string `json:"digest"`
}

// Info holds metadata about the store.
type Info struct {
	Keys       int `json:"keys"`
	ValueBytes int `json:"value_bytes"`
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the interface for the shared key-value mapping.
// None of the operations can fail: a missing key is reported through the
// boolean return value, not as an error.
type IStore interface {
	// Put inserts or overwrites the entry for key.
	Put(key, value, digest string)
	// Get returns the entry for key. The boolean return value indicates whether the key was found.
	Get(key string) (entry Entry, found bool)
	// Delete removes the entry for key. It returns false if the key did not exist.
	Delete(key string) (deleted bool)
	// Len returns the number of stored keys.
	Len() int
	// Info returns metadata about the store.
	Info() Info
}
