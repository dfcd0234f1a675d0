// This file runs the per-pad producer tasks that feed linked sink-adapters.

package softgraph

import (
	"context"
	"time"

	"go.uber.org/ratelimit"

	"playerbridge/internal/core/graph"
)

// stopProducersLocked cancels running producers. The returned func waits for
// them and must be called with mu released.
func (p *SubPipeline) stopProducersLocked() func() {
	if p.cancel == nil {
		return func() {}
	}
	p.cancel()
	p.cancel = nil
	return p.workers.Wait
}

func (p *SubPipeline) startProducersLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	src := p.source

	for _, pad := range p.pads {
		if src.Frames > 0 && pad.produced.Load() >= uint64(src.Frames) {
			continue
		}
		p.workers.Add(1)
		err := p.pool.Submit(func() {
			defer p.workers.Done()
			p.produce(ctx, pad, src)
		})
		if err != nil {
			p.workers.Done()
			p.log.WithError(err).WithField("pad", pad.id).Error("could not start stream producer")
		}
	}
}

// produce feeds pad's peer until ctx is cancelled or the stream ends.
func (p *SubPipeline) produce(ctx context.Context, pad *Pad, src Source) {
	limiter := ratelimit.NewUnlimited()
	var frame time.Duration
	if src.FPS > 0 {
		limiter = ratelimit.New(src.FPS)
		frame = time.Second / time.Duration(src.FPS)
	}

	for ctx.Err() == nil {
		n := pad.produced.Load()
		if src.Frames > 0 && n >= uint64(src.Frames) {
			p.finish(pad)
			return
		}

		limiter.Take()
		if ctx.Err() != nil {
			return
		}
		pad.produced.Add(1)

		sink := pad.linked()
		if sink == nil {
			pad.unlinked.Add(1)
			if src.Frames == 0 {
				// An endless stream nobody consumes idles until the next run.
				return
			}
			continue
		}
		sink.offer(pad.sample(n, src.Size, frame))
	}
}

// finish removes an exhausted pad and announces its removal.
func (p *SubPipeline) finish(pad *Pad) {
	p.mu.Lock()
	found := false
	for i, other := range p.pads {
		if other == pad {
			p.pads = append(p.pads[:i:i], p.pads[i+1:]...)
			found = true
			break
		}
	}
	p.mu.Unlock()

	if found {
		p.log.WithField("pad", pad.id).Debug("stream ended")
		p.emit(graph.Event{Type: graph.StreamRemoved, Pad: pad})
	}
}
