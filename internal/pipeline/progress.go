package pipeline

import (
	"fmt"
	"io"
	"sync"
)

// Progress receives stage markers as a run advances. Implementations must
// be safe for concurrent use when experiments run as a batch.
type Progress interface {
	Stage(experiment, stage string)
	Done(experiment, stage, detail string)
	Failed(experiment, stage string, err error)
}

// ConsoleProgress prints one line per finished stage, e.g.
//
//	[ohm] load ... ok (3 rows)
type ConsoleProgress struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleProgress writes markers to out
func NewConsoleProgress(out io.Writer) *ConsoleProgress {
	return &ConsoleProgress{out: out}
}

// Stage implements Progress. Lines are printed on completion so parallel
// runs do not interleave halves of a marker.
func (p *ConsoleProgress) Stage(experiment, stage string) {}

// Done implements Progress
func (p *ConsoleProgress) Done(experiment, stage, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if detail == "" {
		fmt.Fprintf(p.out, "[%s] %s ... ok\n", experiment, stage)
		return
	}
	fmt.Fprintf(p.out, "[%s] %s ... ok (%s)\n", experiment, stage, detail)
}

// Failed implements Progress
func (p *ConsoleProgress) Failed(experiment, stage string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[%s] %s ... FAILED\n", experiment, stage)
}

type nopProgress struct{}

func (nopProgress) Stage(string, string)         {}
func (nopProgress) Done(string, string, string)  {}
func (nopProgress) Failed(string, string, error) {}
