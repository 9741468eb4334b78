package segment

import (
	"context"
	"log/slog"
	"time"

	"ct-viewer/internal/volume"

	"github.com/google/uuid"
)

// EventKind discriminates run events.
type EventKind int

const (
	// EventProgress reports slices processed so far.
	EventProgress EventKind = iota
	// EventCompleted carries the result; exactly one terminal event is sent.
	EventCompleted
	// EventCancelled reports cooperative cancellation; partial work is discarded.
	EventCancelled
	// EventFailed reports a fatal run error.
	EventFailed
)

// Event is what a run reports on its channel. Progress events precede the
// single terminal event; the channel closes after the terminal event.
type Event struct {
	Kind EventKind

	// Progress fields. Current is 1-based.
	Current, Total int

	// Completed volume runs carry the full mask volume.
	MaskVolume *volume.Mask

	// Completed single-slice runs carry the 2D mask and its slice index.
	SliceMask  []uint8
	SliceIndex int

	// Failed runs carry the reason.
	Err error
}

// progressEvery bounds the progress event rate: one event per this many
// slices, plus always the final slice.
const progressEvery = 5

// eventBuffer sizes the run channel. Progress sends drop when the buffer is
// full so a slow consumer never stalls inference; the terminal send blocks
// until the consumer drains it.
const eventBuffer = 16

// Run is one in-flight segmentation task. Exactly one of volume or slice
// scoped. Cancel is idempotent and merely requests cancellation; the worker
// acknowledges it between slices.
type Run struct {
	id     string
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// ID returns the run's correlation id, used to drop results from superseded
// runs.
func (r *Run) ID() string {
	return r.id
}

// Events returns the run's event stream.
func (r *Run) Events() <-chan Event {
	return r.events
}

// Cancel requests cooperative cancellation. Safe to call repeatedly and
// after the run finished.
func (r *Run) Cancel() {
	r.cancel()
}

// Done is closed once the worker has exited and the event channel is closed.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// WaitFinished blocks until the worker exits or the timeout elapses.
// Returns false on timeout; the caller proceeds and discards any late
// result by run id.
func (r *Run) WaitFinished(timeout time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func newRun() *Run {
	ctx, cancel := context.WithCancel(context.Background())
	return &Run{
		id:     uuid.NewString(),
		events: make(chan Event, eventBuffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// StartVolumeRun launches a worker that segments every slice of vol.
// The volume is treated as immutable for the run's lifetime. Fails fast
// with ErrNoModel / ErrNoVolume before any goroutine starts.
func StartVolumeRun(vol *volume.Volume, p Predictor) (*Run, error) {
	if p == nil {
		return nil, ErrNoModel
	}
	if vol == nil || vol.Z == 0 {
		return nil, ErrNoVolume
	}

	r := newRun()
	go r.volumeWorker(vol, p)
	return r, nil
}

// StartSliceRun launches a worker that segments a single slice. The buffer
// must be an independent copy; the caller keeps the index for binding the
// result.
func StartSliceRun(slice []float64, index, h, w int, p Predictor) (*Run, error) {
	if p == nil {
		return nil, ErrNoModel
	}
	if len(slice) == 0 || len(slice) != h*w {
		return nil, ErrNoVolume
	}

	r := newRun()
	go r.sliceWorker(slice, index, h, w, p)
	return r, nil
}

func (r *Run) volumeWorker(vol *volume.Volume, p Predictor) {
	defer close(r.done)
	defer close(r.events)

	start := time.Now()
	slog.Info("segment: volume run started", "run", r.id, "slices", vol.Z)

	result := volume.NewMask(vol.Z, vol.H, vol.W)
	for z := 0; z < vol.Z; z++ {
		select {
		case <-r.ctx.Done():
			slog.Info("segment: run cancelled", "run", r.id, "at_slice", z, "of", vol.Z)
			r.events <- Event{Kind: EventCancelled}
			return
		default:
		}

		sliceMask, err := p.Predict(vol.SliceView(z), vol.H, vol.W)
		if err != nil {
			// Per-slice failures are non-fatal: the slice's mask stays
			// empty and the run continues.
			slog.Warn("segment: slice inference failed", "run", r.id, "slice", z, "error", err)
		} else if err := result.SetSlice(z, sliceMask); err != nil {
			// A mask that cannot be assembled at the volume's shape must
			// never be exposed as complete.
			slog.Error("segment: run failed", "run", r.id, "slice", z, "error", err)
			r.events <- Event{Kind: EventFailed, Err: err}
			return
		}

		if cur := z + 1; cur%progressEvery == 0 || cur == vol.Z {
			r.reportProgress(cur, vol.Z)
		}
	}

	slog.Info("segment: volume run completed", "run", r.id,
		"slices", vol.Z, "masked_voxels", result.CountNonzero(), "elapsed", time.Since(start))
	r.events <- Event{Kind: EventCompleted, MaskVolume: result}
}

func (r *Run) sliceWorker(slice []float64, index, h, w int, p Predictor) {
	defer close(r.done)
	defer close(r.events)

	slog.Info("segment: slice run started", "run", r.id, "slice", index)

	select {
	case <-r.ctx.Done():
		slog.Info("segment: slice run cancelled", "run", r.id, "slice", index)
		r.events <- Event{Kind: EventCancelled}
		return
	default:
	}

	sliceMask, err := p.Predict(slice, h, w)
	if err != nil {
		// The only slice failing means the run has nothing to deliver.
		slog.Error("segment: slice run failed", "run", r.id, "slice", index, "error", err)
		r.events <- Event{Kind: EventFailed, Err: err}
		return
	}

	r.reportProgress(1, 1)
	slog.Info("segment: slice run completed", "run", r.id, "slice", index)
	r.events <- Event{Kind: EventCompleted, SliceMask: sliceMask, SliceIndex: index}
}

// reportProgress sends without blocking: stale progress is worthless, so it
// is dropped when the consumer lags.
func (r *Run) reportProgress(current, total int) {
	select {
	case r.events <- Event{Kind: EventProgress, Current: current, Total: total}:
	default:
	}
}
