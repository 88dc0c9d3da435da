// Package lstore implements store.IStore as a local in-memory map.
//
// The store is owned by the server process for its entire lifetime and is not
// persisted: a restart starts with an empty mapping. A single sync.Mutex
// guards the map; it is held only for the duration of one map operation.
package lstore
