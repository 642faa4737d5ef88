package grid

import (
	"sort"
	"sync"
	"time"
)

// CameraState is the latest known reconstruction state of one camera
type CameraState struct {
	Camera     string       `json:"camera"`
	Frame      *FrameResult `json:"frame,omitempty"`
	Detections []Detection  `json:"detections,omitempty"`
	LastError  string       `json:"lastError,omitempty"`
	Frames     int          `json:"frames"`
	Failures   int          `json:"failures"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// StateTracker keeps the latest frame per camera for the HTTP endpoints
type StateTracker struct {
	mu      sync.RWMutex
	cameras map[string]*CameraState
}

// NewStateTracker creates an empty state tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{
		cameras: make(map[string]*CameraState),
	}
}

func (st *StateTracker) entry(camera string) *CameraState {
	cs, ok := st.cameras[camera]
	if !ok {
		cs = &CameraState{Camera: camera}
		st.cameras[camera] = cs
	}
	return cs
}

// RecordFrame stores a successful reconstruction and the detections it came from
func (st *StateTracker) RecordFrame(camera string, dets []Detection, fr *FrameResult) {
	st.mu.Lock()
	defer st.mu.Unlock()

	cs := st.entry(camera)
	cs.Frame = fr
	cs.Detections = dets
	cs.LastError = ""
	cs.Frames++
	cs.UpdatedAt = time.Now()
}

// RecordFailure counts a failed frame; the last good frame is kept
func (st *StateTracker) RecordFailure(camera string, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	cs := st.entry(camera)
	cs.LastError = err.Error()
	cs.Failures++
	cs.UpdatedAt = time.Now()
}

// Get returns a copy of the state of one camera
func (st *StateTracker) Get(camera string) (CameraState, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	cs, ok := st.cameras[camera]
	if !ok {
		return CameraState{}, false
	}
	return *cs, true
}

// All returns a copy of every camera state, sorted by camera ID
func (st *StateTracker) All() []CameraState {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]CameraState, 0, len(st.cameras))
	for _, cs := range st.cameras {
		out = append(out, *cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Camera < out[j].Camera })
	return out
}

// HasFrames returns true if any camera has a reconstructed frame
func (st *StateTracker) HasFrames() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()

	for _, cs := range st.cameras {
		if cs.Frame != nil {
			return true
		}
	}
	return false
}
