package selection

import (
	"context"
	"time"

	"github.com/ritzau/mutual-graph/pkg/logging"
)

// FrameInterval is the default coalescing window for search input, about
// one display refresh.
const FrameInterval = 16 * time.Millisecond

// Debouncer collapses rapid search input so that at most one query per
// interval reaches the output. Only the latest query of a burst survives.
type Debouncer struct {
	input    <-chan string
	output   chan string
	interval time.Duration
}

// NewDebouncer creates a debouncer reading from input.
func NewDebouncer(input <-chan string, interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = FrameInterval
	}
	return &Debouncer{
		input:    input,
		output:   make(chan string, 1),
		interval: interval,
	}
}

// Start begins processing input until ctx is done or input is closed.
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
		waiting bool
		dropped int
	)

	flush := func() {
		if !waiting {
			return
		}
		if dropped > 0 {
			logging.Trace("coalesced search input", "dropped", dropped)
		}
		select {
		case d.output <- pending:
		case <-ctx.Done():
		}
		waiting = false
		dropped = 0
		fire = nil
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case q, ok := <-d.input:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				flush()
				return
			}
			if waiting {
				dropped++
			}
			pending = q
			if !waiting {
				waiting = true
				if timer == nil {
					timer = time.NewTimer(d.interval)
				} else {
					timer.Reset(d.interval)
				}
				fire = timer.C
			}

		case <-fire:
			flush()
		}
	}
}

// Output returns the channel of debounced queries. It is closed when the
// debouncer stops.
func (d *Debouncer) Output() <-chan string {
	return d.output
}
