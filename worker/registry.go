package worker

import (
	"context"
	"fmt"

	"github.com/pithecene-io/crucible/types"
)

// HandlerFunc handles one request. A returned error becomes an error
// response carrying its message.
type HandlerFunc func(ctx context.Context, wc *Context, req *types.Request) (*types.Response, error)

// handlerGroup is a set of handlers registered together.
type handlerGroup struct {
	name     string
	handlers map[types.MessageType]HandlerFunc
}

// newHandlerTable merges handler groups into one dispatch table.
// Groups must be disjoint; overlap is a programming error and panics.
func newHandlerTable(groups ...handlerGroup) map[types.MessageType]HandlerFunc {
	table := make(map[types.MessageType]HandlerFunc)
	owner := make(map[types.MessageType]string)
	for _, g := range groups {
		for t, h := range g.handlers {
			if prev, dup := owner[t]; dup {
				panic(fmt.Sprintf("worker: %q registered by both %s and %s handlers", t, prev, g.name))
			}
			if !t.IsRequestType() {
				panic(fmt.Sprintf("worker: %s handlers register unknown request type %q", g.name, t))
			}
			table[t] = h
			owner[t] = g.name
		}
	}
	return table
}

// reply builds the success response for req.
func reply(req *types.Request) *types.Response {
	t, _ := types.SuccessResponseType(req.Type)
	return types.NewResponse(t, req.RequestID)
}
