package dispatch

import "github.com/spectroneph/nephd/internal/protocol"

// Handler is one registered unit of command logic. Execute mutates resp to
// build the response body and returns a non-nil error to report a fault;
// the dispatcher converts the fault into an EXECUTION_ERROR response and
// never lets it propagate.
type Handler interface {
	Execute(params protocol.Params, resp protocol.Body, cmd protocol.Command) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(params protocol.Params, resp protocol.Body, cmd protocol.Command) error

func (f HandlerFunc) Execute(params protocol.Params, resp protocol.Body, cmd protocol.Command) error {
	return f(params, resp, cmd)
}
