package ffprobe

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Outcome is the result of probing one file.
type Outcome struct {
	Result *ProbeResult
	Err    error
}

// Duration returns the probed duration, or the probe error.
func (o Outcome) Duration() (float64, error) {
	if o.Err != nil {
		return 0, o.Err
	}
	return o.Result.GetDuration()
}

// BatchOptions limits a ProbeAll run.
type BatchOptions struct {
	Workers int           // concurrent ffprobe processes, at least 1
	Timeout time.Duration // per file, 0 = no limit

	// OnProgress is called after each file, from the probing goroutine.
	OnProgress func(completed, total int, path string, err error)
}

// ProbeAll probes paths concurrently, running at most opts.Workers ffprobe
// processes at a time. Duplicate paths are probed once. Cancelling ctx
// stops scheduling; files not started yet report ctx.Err().
func (p *Prober) ProbeAll(ctx context.Context, paths []string, opts BatchOptions) map[string]Outcome {
	unique := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		if !seen[path] {
			seen[path] = true
			unique = append(unique, path)
		}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		completed int
		outcomes  = make(map[string]Outcome, len(unique))
		slots     = make(chan struct{}, workers)
	)
	finish := func(path string, o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[path] = o
		completed++
		if opts.OnProgress != nil {
			opts.OnProgress(completed, len(unique), path, o.Err)
		}
	}

	for _, path := range unique {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			finish(path, Outcome{Err: ctx.Err()})
			continue
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-slots }()

			pctx := ctx
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}
			result, err := p.Probe(pctx, path)
			finish(path, Outcome{Result: result, Err: err})
		}(path)
	}
	wg.Wait()

	p.log.Debug("Probed batch", zap.Int("files", len(unique)), zap.Int("workers", workers))
	return outcomes
}
