package checkout

import "github.com/xenking/larek/internal/domain/order"

// SubmitFunc performs the order submission.
type SubmitFunc func() (*order.Result, error)

// DoneFunc receives the submission outcome. It must be called on the event
// loop goroutine.
type DoneFunc func(res *order.Result, err error)

// Runner executes a submission and reports the outcome back to the event
// loop. Implementations decide whether the call blocks.
type Runner interface {
	Run(call SubmitFunc, done DoneFunc)
}

// InlineRunner runs the submission synchronously on the caller's goroutine.
type InlineRunner struct{}

// Run implements Runner.
func (InlineRunner) Run(call SubmitFunc, done DoneFunc) {
	done(call())
}
