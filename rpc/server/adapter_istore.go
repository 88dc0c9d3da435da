package server

import (
	"github.com/ValentinKolb/sKV/lib/sanitize"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
)

func NewIStoreServerAdapter() IServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(cmd common.Command, next FrameSource, store store.IStore) ([]string, error) {
	// Handle different verbs
	switch cmd.Verb {
	case common.VerbPut:
		// value and digest always follow, consume them so the stream stays in sync
		value, err := next()
		if err != nil {
			return nil, err
		}
		digest, err := next()
		if err != nil {
			return nil, err
		}
		if !validKey(cmd) {
			return reply(common.RespInvalidRequest), nil
		}
		store.Put(cmd.Arg, value, digest)
		return reply(common.RespPutOK), nil

	case common.VerbGet:
		if !validKey(cmd) {
			return reply(common.RespInvalidRequest), nil
		}
		entry, ok := store.Get(cmd.Arg)
		if !ok {
			return reply(common.RespGetNotFound), nil
		}
		return reply(entry.Value, entry.Digest), nil

	case common.VerbDelete:
		if !validKey(cmd) {
			return reply(common.RespInvalidRequest), nil
		}
		if !store.Delete(cmd.Arg) {
			return reply(common.RespDeleteNotFound), nil
		}
		return reply(common.RespDeleteOK), nil

	default:
		return reply(common.RespInvalidRequest), nil
	}
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func validKey(cmd common.Command) bool {
	return cmd.HasArg && sanitize.IsValid(cmd.Arg)
}

func reply(frames ...string) []string {
	return frames
}
