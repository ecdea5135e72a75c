package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xenking/larek/internal/checkout"
	"github.com/xenking/larek/internal/domain/order"
)

// Compile-time check ensuring Runner satisfies checkout.Runner.
var _ checkout.Runner = (*Runner)(nil)

// submitDoneMsg carries a finished submission back to Update, where done
// runs on the program goroutine.
type submitDoneMsg struct {
	res  *order.Result
	err  error
	done checkout.DoneFunc
}

// Runner turns order submissions into tea commands. The call runs on a
// command goroutine; its outcome is delivered as a message.
type Runner struct {
	pending []tea.Cmd
}

// NewRunner creates an empty Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run implements checkout.Runner. It only queues the call; Cmd hands it to
// the program.
func (r *Runner) Run(call checkout.SubmitFunc, done checkout.DoneFunc) {
	r.pending = append(r.pending, func() tea.Msg {
		res, err := call()
		return submitDoneMsg{res: res, err: err, done: done}
	})
}

// Cmd drains the queued submissions.
func (r *Runner) Cmd() tea.Cmd {
	cmds := r.pending
	r.pending = nil
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	default:
		return tea.Batch(cmds...)
	}
}
