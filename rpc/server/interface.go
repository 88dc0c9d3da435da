package server

import (
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
)

// FrameSource returns the next frame sent by the client
type FrameSource func() (string, error)

// IServerAdapter is the interface for all server adapters.
// It is responsible for executing a single command of an active session
type IServerAdapter interface {
	// Handle executes cmd against store and returns the reply frames.
	// Commands that carry additional frames (like PUT) read them from next.
	// An error is only returned if reading from next failed, the connection
	// must be dropped in that case.
	Handle(cmd common.Command, next FrameSource, store store.IStore) (replies []string, err error)
}
