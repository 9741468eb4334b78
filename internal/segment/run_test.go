package segment

import (
	"errors"
	"sync"
	"testing"
	"time"

	"ct-viewer/internal/volume"
)

// fakePredictor counts calls and can fail or misbehave on specific calls.
// Call n corresponds to slice n in a volume run.
type fakePredictor struct {
	mu          sync.Mutex
	calls       int
	failOn      map[int]bool
	wrongSizeOn int
	onCall      func(call int)
}

func newFakePredictor() *fakePredictor {
	return &fakePredictor{failOn: map[int]bool{}, wrongSizeOn: -1}
}

func (f *fakePredictor) Predict(slice []float64, h, w int) ([]uint8, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall(call)
	}
	if f.failOn[call] {
		return nil, errors.New("synthetic inference failure")
	}
	if call == f.wrongSizeOn {
		return []uint8{1}, nil
	}

	out := make([]uint8, h*w)
	for i := range out {
		out[i] = 1
	}
	return out, nil
}

func (f *fakePredictor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// collect drains a run's event channel until it closes.
func collect(t *testing.T, r *Run) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-r.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timeout draining run events")
		}
	}
}

func terminalOf(t *testing.T, events []Event) Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("run produced no events")
	}
	last := events[len(events)-1]
	if last.Kind == EventProgress {
		t.Fatalf("last event is progress, want terminal: %+v", last)
	}
	// Exactly one terminal event, and it is the last one
	for _, ev := range events[:len(events)-1] {
		if ev.Kind != EventProgress {
			t.Fatalf("non-progress event before the terminal: %+v", ev)
		}
	}
	return last
}

func TestVolumeRunCompletes(t *testing.T) {
	vol := volume.New(10, 4, 4)
	fake := newFakePredictor()

	r, err := StartVolumeRun(vol, fake)
	if err != nil {
		t.Fatalf("StartVolumeRun: %v", err)
	}
	if r.ID() == "" {
		t.Error("run has no id")
	}

	events := collect(t, r)
	term := terminalOf(t, events)
	if term.Kind != EventCompleted {
		t.Fatalf("terminal = %v, want completed", term.Kind)
	}
	if term.MaskVolume == nil {
		t.Fatal("completed volume run carries no mask")
	}
	if !term.MaskVolume.MatchesShape(vol) {
		t.Errorf("mask shape %dx%dx%d, want volume shape", term.MaskVolume.Z, term.MaskVolume.H, term.MaskVolume.W)
	}
	if got := term.MaskVolume.CountNonzero(); got != 10*4*4 {
		t.Errorf("masked voxels = %d, want %d", got, 10*4*4)
	}
	if fake.callCount() != 10 {
		t.Errorf("predict calls = %d, want 10", fake.callCount())
	}
}

func TestProgressCadence(t *testing.T) {
	// 12 slices: progress at 5, 10 and always the last (12)
	vol := volume.New(12, 2, 2)
	r, err := StartVolumeRun(vol, newFakePredictor())
	if err != nil {
		t.Fatalf("StartVolumeRun: %v", err)
	}

	events := collect(t, r)
	var progress []int
	for _, ev := range events {
		if ev.Kind == EventProgress {
			if ev.Total != 12 {
				t.Errorf("progress total = %d, want 12", ev.Total)
			}
			progress = append(progress, ev.Current)
		}
	}

	want := []int{5, 10, 12}
	if len(progress) != len(want) {
		t.Fatalf("progress events = %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("progress[%d] = %d, want %d", i, progress[i], want[i])
		}
	}
}

func TestCancelDiscardsPartialWork(t *testing.T) {
	// 50-slice volume, cancel while the 20th slice is in flight
	vol := volume.New(50, 2, 2)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	fake := newFakePredictor()
	fake.onCall = func(call int) {
		if call == 19 {
			close(inFlight)
			<-release
		}
	}

	r, err := StartVolumeRun(vol, fake)
	if err != nil {
		t.Fatalf("StartVolumeRun: %v", err)
	}

	<-inFlight
	r.Cancel()
	r.Cancel() // idempotent
	close(release)

	events := collect(t, r)
	term := terminalOf(t, events)
	if term.Kind != EventCancelled {
		t.Fatalf("terminal = %v, want cancelled", term.Kind)
	}
	if term.MaskVolume != nil {
		t.Error("cancelled run leaked a mask volume")
	}
	// The in-flight slice finished, then the cancel check stopped the loop
	if calls := fake.callCount(); calls > 21 {
		t.Errorf("predict calls after cancel = %d", calls)
	}

	if !r.WaitFinished(time.Second) {
		t.Error("WaitFinished after drain = false")
	}
}

func TestPerSliceFailureContinues(t *testing.T) {
	vol := volume.New(6, 2, 2)
	fake := newFakePredictor()
	fake.failOn[2] = true

	r, err := StartVolumeRun(vol, fake)
	if err != nil {
		t.Fatalf("StartVolumeRun: %v", err)
	}

	term := terminalOf(t, collect(t, r))
	if term.Kind != EventCompleted {
		t.Fatalf("terminal = %v, want completed despite slice failure", term.Kind)
	}

	m := term.MaskVolume
	// Failed slice stays empty
	for i, v := range m.SliceView(2) {
		if v != 0 {
			t.Errorf("failed slice voxel %d = %d, want 0", i, v)
		}
	}
	// Neighbors completed normally
	if m.SliceView(1)[0] != 1 || m.SliceView(3)[0] != 1 {
		t.Error("healthy slices missing mask data")
	}
	if fake.callCount() != 6 {
		t.Errorf("predict calls = %d, want 6", fake.callCount())
	}
}

func TestWrongShapeMaskFailsRun(t *testing.T) {
	vol := volume.New(5, 2, 2)
	fake := newFakePredictor()
	fake.wrongSizeOn = 1

	r, err := StartVolumeRun(vol, fake)
	if err != nil {
		t.Fatalf("StartVolumeRun: %v", err)
	}

	term := terminalOf(t, collect(t, r))
	if term.Kind != EventFailed {
		t.Fatalf("terminal = %v, want failed", term.Kind)
	}
	if term.Err == nil {
		t.Error("failed run carries no reason")
	}
	if term.MaskVolume != nil {
		t.Error("failed run leaked a mask volume")
	}
}

func TestStartVolumeRunValidation(t *testing.T) {
	vol := volume.New(3, 2, 2)

	if _, err := StartVolumeRun(vol, nil); !errors.Is(err, ErrNoModel) {
		t.Errorf("nil predictor: err = %v, want ErrNoModel", err)
	}
	if _, err := StartVolumeRun(nil, newFakePredictor()); !errors.Is(err, ErrNoVolume) {
		t.Errorf("nil volume: err = %v, want ErrNoVolume", err)
	}
	if _, err := StartVolumeRun(&volume.Volume{}, newFakePredictor()); !errors.Is(err, ErrNoVolume) {
		t.Errorf("empty volume: err = %v, want ErrNoVolume", err)
	}
}

func TestSliceRunCompletes(t *testing.T) {
	vol := volume.New(10, 4, 4)
	fake := newFakePredictor()

	r, err := StartSliceRun(vol.SliceCopy(7), 7, 4, 4, fake)
	if err != nil {
		t.Fatalf("StartSliceRun: %v", err)
	}

	term := terminalOf(t, collect(t, r))
	if term.Kind != EventCompleted {
		t.Fatalf("terminal = %v, want completed", term.Kind)
	}
	if term.SliceIndex != 7 {
		t.Errorf("SliceIndex = %d, want 7", term.SliceIndex)
	}
	if len(term.SliceMask) != 16 {
		t.Errorf("mask samples = %d, want 16", len(term.SliceMask))
	}
	if term.MaskVolume != nil {
		t.Error("slice run carries a mask volume")
	}
}

func TestSliceRunFailure(t *testing.T) {
	fake := newFakePredictor()
	fake.failOn[0] = true

	r, err := StartSliceRun(make([]float64, 16), 3, 4, 4, fake)
	if err != nil {
		t.Fatalf("StartSliceRun: %v", err)
	}

	term := terminalOf(t, collect(t, r))
	if term.Kind != EventFailed || term.Err == nil {
		t.Errorf("terminal = %+v, want failed with reason", term)
	}
}

func TestSliceRunValidation(t *testing.T) {
	if _, err := StartSliceRun(make([]float64, 16), 0, 4, 4, nil); !errors.Is(err, ErrNoModel) {
		t.Errorf("nil predictor: err = %v", err)
	}
	if _, err := StartSliceRun(nil, 0, 4, 4, newFakePredictor()); !errors.Is(err, ErrNoVolume) {
		t.Errorf("nil slice: err = %v", err)
	}
	if _, err := StartSliceRun(make([]float64, 15), 0, 4, 4, newFakePredictor()); !errors.Is(err, ErrNoVolume) {
		t.Errorf("short slice: err = %v", err)
	}
}

func TestWaitFinishedTimeout(t *testing.T) {
	vol := volume.New(2, 2, 2)

	block := make(chan struct{})
	fake := newFakePredictor()
	fake.onCall = func(call int) { <-block }

	r, err := StartVolumeRun(vol, fake)
	if err != nil {
		t.Fatalf("StartVolumeRun: %v", err)
	}

	if r.WaitFinished(20 * time.Millisecond) {
		t.Error("WaitFinished = true while worker is blocked")
	}

	close(block)
	collect(t, r)
	if !r.WaitFinished(time.Second) {
		t.Error("WaitFinished = false after completion")
	}
}
