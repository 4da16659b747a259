package screener

import (
	"context"
	"errors"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// DefaultDebounce is the window rapid submissions collapse into. Keystroke
// bursts inside the window trigger a single pass over the final state.
const DefaultDebounce = 250 * time.Millisecond

// Input is one recomputation request: the market set to screen and the
// filter state to screen it with.
type Input struct {
	Markets []domain.Market
	State   FilterState
	Books   map[string]*domain.BookSummary
}

// Result carries the outcome of one completed pass along with the state
// that produced it, so consumers can tell which submission they are seeing.
type Result struct {
	State   FilterState
	Markets []domain.Market
	Err     error
}

// Recomputer serializes filter recomputation. Submissions supersede one
// another: a burst of submissions inside the debounce window collapses into
// a single pass over the last state, and starting a new pass cancels the
// context of any pass still running, so abandoned work stops mid-scan
// instead of racing its result against a newer one.
type Recomputer struct {
	debounce time.Duration
	in       chan Input
	out      chan Result
}

// NewRecomputer creates a Recomputer. A non-positive debounce falls back to
// DefaultDebounce.
func NewRecomputer(debounce time.Duration) *Recomputer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Recomputer{
		debounce: debounce,
		in:       make(chan Input, 1),
		out:      make(chan Result, 1),
	}
}

// Submit queues an input for recomputation. An input already queued but not
// yet started is replaced, never computed.
func (rc *Recomputer) Submit(in Input) {
	for {
		select {
		case rc.in <- in:
			return
		default:
			select {
			case <-rc.in:
			default:
			}
		}
	}
}

// Results returns the channel completed passes are delivered on. A stale
// result still queued when a newer one completes is dropped.
func (rc *Recomputer) Results() <-chan Result {
	return rc.out
}

// Run drives the debounce and recompute loop until ctx is cancelled. It
// should be called in a goroutine.
func (rc *Recomputer) Run(ctx context.Context) error {
	timer := time.NewTimer(rc.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	done := make(chan Result, 1)
	var (
		pending    *Input
		cancelPass context.CancelFunc
	)
	defer func() {
		if cancelPass != nil {
			cancelPass()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case in := <-rc.in:
			pending = &in
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(rc.debounce)

		case <-timer.C:
			if pending == nil {
				continue
			}
			if cancelPass != nil {
				cancelPass()
			}
			passCtx, cancel := context.WithCancel(ctx)
			cancelPass = cancel
			in := *pending
			pending = nil

			go func() {
				markets, err := Apply(passCtx, in.Markets, in.State, in.Books)
				select {
				case done <- Result{State: in.State, Markets: markets, Err: err}:
				case <-ctx.Done():
				}
			}()

		case res := <-done:
			if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
				// A superseded pass; its replacement is already running.
				continue
			}
			select {
			case rc.out <- res:
			default:
				select {
				case <-rc.out:
				default:
				}
				rc.out <- res
			}
		}
	}
}
