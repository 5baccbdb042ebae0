package resolve

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/inodb/ideogram-genes/internal/assembly"
	"github.com/inodb/ideogram-genes/internal/lookup"
)

// Outcome is the settled result of one gene lookup.
type Outcome struct {
	Seq  int
	Name string
	Hits []lookup.Hit
	Err  error
}

// fanOut starts one lookup per name and returns their outcomes in settlement
// order. Every lookup settles; none cancels another. The channel is closed
// once all lookups have settled.
func (r *Resolver) fanOut(ctx context.Context, names []string, asm assembly.Assembly) <-chan Outcome {
	outcomes := make(chan Outcome, len(names))

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}

	go func() {
		for i, name := range names {
			i, name := i, name
			g.Go(func() error {
				outcomes <- r.lookupOne(ctx, i, name, asm)
				return nil
			})
		}
		_ = g.Wait()
		close(outcomes)
	}()

	return outcomes
}

func (r *Resolver) lookupOne(ctx context.Context, seq int, name string, asm assembly.Assembly) (o Outcome) {
	o = Outcome{Seq: seq, Name: name}
	defer func() {
		if p := recover(); p != nil {
			o.Hits = nil
			o.Err = fmt.Errorf("lookup %s panicked: %v", name, p)
		}
	}()

	o.Hits, o.Err = r.lookup.Lookup(ctx, name, asm)
	if o.Err == nil && len(o.Hits) == 0 {
		o.Err = lookup.ErrNoMatch
	}
	return o
}

// OrderedCollect calls fn for each outcome in sequence-number order.
// It buffers out-of-order outcomes in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the outcomes channel is closed.
func OrderedCollect(outcomes <-chan Outcome, fn func(Outcome) error) error {
	pending := make(map[int]Outcome)
	nextSeq := 0

	for o := range outcomes {
		pending[o.Seq] = o

		for {
			oo, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(oo); err != nil {
				// Drain remaining outcomes to unblock lookups.
				for range outcomes {
				}
				return err
			}
		}
	}

	return nil
}

// SettledCollect calls fn for each outcome in the order it settled.
func SettledCollect(outcomes <-chan Outcome, fn func(Outcome) error) error {
	for o := range outcomes {
		if err := fn(o); err != nil {
			for range outcomes {
			}
			return err
		}
	}
	return nil
}
