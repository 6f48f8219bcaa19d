package recording

import "sync"

// SampleFrame is one block of mono samples as delivered by the backend
type SampleFrame []float32

// Accumulator keeps captured frames in arrival order. Append is called from
// the audio thread and only copies; all concatenation happens in Flatten.
type Accumulator struct {
	mu     sync.Mutex
	frames []SampleFrame
	total  int
}

// Append stores a copy of in. The caller may reuse in afterwards.
func (a *Accumulator) Append(in []float32) {
	if len(in) == 0 {
		return
	}

	frame := make(SampleFrame, len(in))
	copy(frame, in)

	a.mu.Lock()
	a.frames = append(a.frames, frame)
	a.total += len(frame)
	a.mu.Unlock()
}

// Len returns the total number of samples held
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// Frames returns the number of frames held
func (a *Accumulator) Frames() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.frames)
}

// Flatten concatenates all frames into a single slice
func (a *Accumulator) Flatten() []float32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]float32, 0, a.total)
	for _, f := range a.frames {
		out = append(out, f...)
	}
	return out
}

// Reset drops all frames
func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.frames = nil
	a.total = 0
	a.mu.Unlock()
}
