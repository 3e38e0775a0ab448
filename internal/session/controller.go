package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trailforge-desktop/internal/backend"
	"trailforge-desktop/internal/selection"
)

// State is the top-level workflow state exposed to the presentation layer
type State string

const (
	StateIdle       State = "idle"       // no selection
	StateSelected   State = "selected"   // bbox present, not yet submitted
	StateSubmitting State = "submitting" // generate request in flight
	StateTracking   State = "tracking"   // job created, poller active
	StateDone       State = "done"       // job reached a terminal status
)

// Backend is the slice of the API client the controller needs. Injected so
// the workflow can be driven against a fake in tests.
type Backend interface {
	Generate(ctx context.Context, bbox selection.BoundingBox) (string, error)
	Status(ctx context.Context, jobID string) (backend.JobStatus, error)
	DownloadURL(jobID, filename string) string
}

// Job is the controller's view of the tracked generation job
type Job struct {
	ID          string           `json:"id"`
	Status      backend.JobState `json:"status"`
	Progress    string           `json:"progress,omitempty"`
	Error       string           `json:"error,omitempty"`
	Filename    string           `json:"filename,omitempty"`
	FileSize    int64            `json:"fileSize,omitempty"`
	DownloadURL string           `json:"downloadUrl,omitempty"`
}

// Snapshot is a point-in-time copy of the session for the UI
type Snapshot struct {
	State          State                    `json:"state"`
	BBox           *selection.BoundingBox   `json:"bbox,omitempty"`
	Classification selection.Classification `json:"classification"`
	Job            *Job                     `json:"job,omitempty"`
	LastError      string                   `json:"lastError,omitempty"`
}

// ValidationError rejects a generate call whose selection violates the area
// policy, before any request is made
type ValidationError struct {
	Classification selection.Classification
}

func (e *ValidationError) Error() string {
	switch e.Classification.Kind {
	case selection.KindEmpty:
		return "no area selected"
	case selection.KindTooLarge:
		return fmt.Sprintf("selected area (%.4f deg²) exceeds the maximum allowed, please select a smaller region", e.Classification.AreaDeg2)
	default:
		return "selection cannot be submitted"
	}
}

// ErrJobInProgress rejects operations while a job is attached to the
// session; the session must be reset first
var ErrJobInProgress = errors.New("a job is attached to this session, reset before starting a new one")

// Options configures a Controller
type Options struct {
	Policy       selection.Policy
	PollInterval time.Duration
}

// Controller composes selection validation, job submission and status
// polling into the session workflow. All transitions are serialized through
// its public methods; asynchronous results (submission outcome, poll
// responses) are re-applied under the same lock with identity guards, so a
// late response for a job the session has moved past is discarded.
type Controller struct {
	backend      Backend
	policy       selection.Policy
	pollInterval time.Duration

	mu             sync.Mutex
	state          State
	bbox           *selection.BoundingBox
	classification selection.Classification
	job            *Job
	lastError      string

	submitSeq  int // increments per generate, guards late submit results
	pollCancel context.CancelFunc

	onStateChange func(Snapshot)
	onJobUpdate   func(Job)
}

// NewController creates a session controller in the idle state
func NewController(b Backend, opts Options) *Controller {
	if opts.Policy == (selection.Policy{}) {
		opts.Policy = selection.DefaultPolicy()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}

	return &Controller{
		backend:        b,
		policy:         opts.Policy,
		pollInterval:   opts.PollInterval,
		state:          StateIdle,
		classification: selection.Classify(nil, opts.Policy),
	}
}

// SetCallbacks registers the event sinks. Callbacks are invoked outside the
// controller's lock.
func (c *Controller) SetCallbacks(onStateChange func(Snapshot), onJobUpdate func(Job)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = onStateChange
	c.onJobUpdate = onJobUpdate
}

// Snapshot returns a copy of the current session state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:          c.state,
		Classification: c.classification,
		LastError:      c.lastError,
	}
	if c.bbox != nil {
		bboxCopy := *c.bbox
		snap.BBox = &bboxCopy
	}
	if c.job != nil {
		jobCopy := *c.job
		snap.Job = &jobCopy
	}
	return snap
}

// SetSelection replaces the current bounding box. Degenerate or inverted
// boxes are rejected here and never stored. Not legal while a job is
// attached to the session.
func (c *Controller) SetSelection(bbox selection.BoundingBox) error {
	if err := bbox.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state == StateSubmitting || c.state == StateTracking || c.state == StateDone {
		c.mu.Unlock()
		return ErrJobInProgress
	}

	c.bbox = &bbox
	c.classification = selection.Classify(&bbox, c.policy)
	c.state = StateSelected
	c.lastError = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notifyState(snap)
	return nil
}

// ClearSelection discards the current bounding box and returns to idle
func (c *Controller) ClearSelection() error {
	c.mu.Lock()
	if c.state == StateSubmitting || c.state == StateTracking || c.state == StateDone {
		c.mu.Unlock()
		return ErrJobInProgress
	}

	c.bbox = nil
	c.classification = selection.Classify(nil, c.policy)
	c.state = StateIdle
	c.lastError = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notifyState(snap)
	return nil
}

// Generate submits the current selection as a backend job. Calls while a
// submission is in flight or a job is tracked are no-ops, so repeated clicks
// can never create duplicate jobs. A selection that violates the area policy
// is rejected locally without any network call.
func (c *Controller) Generate() error {
	c.mu.Lock()

	// Idempotent guard against double-clicks
	if c.state == StateSubmitting || c.state == StateTracking {
		c.mu.Unlock()
		return nil
	}
	if c.state == StateDone {
		c.mu.Unlock()
		return ErrJobInProgress
	}
	if c.state != StateSelected || c.bbox == nil {
		c.mu.Unlock()
		return &ValidationError{Classification: selection.Classification{Kind: selection.KindEmpty}}
	}

	if !c.classification.Submittable() {
		err := &ValidationError{Classification: c.classification}
		c.lastError = err.Error()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notifyState(snap)
		return err
	}

	c.submitSeq++
	seq := c.submitSeq
	bbox := *c.bbox
	c.state = StateSubmitting
	c.lastError = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notifyState(snap)
	go c.submit(seq, bbox)
	return nil
}

// submit performs the backend call and applies the result if the session is
// still waiting on this submission
func (c *Controller) submit(seq int, bbox selection.BoundingBox) {
	jobID, err := c.backend.Generate(context.Background(), bbox)

	c.mu.Lock()
	if c.state != StateSubmitting || c.submitSeq != seq {
		// Session was reset while the request was in flight
		c.mu.Unlock()
		return
	}

	if err != nil {
		// Submission failed, keep the selection intact for retry
		c.state = StateSelected
		c.lastError = err.Error()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notifyState(snap)
		return
	}

	c.job = &Job{ID: jobID, Status: backend.JobQueued}
	c.state = StateTracking

	ctx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel
	interval := c.pollInterval
	snap := c.snapshotLocked()
	jobCopy := *c.job
	c.mu.Unlock()

	c.notifyState(snap)
	c.notifyJob(jobCopy)
	go c.pollJob(ctx, jobID, interval)
}

// Reset cancels any active poller, discards job and error state and returns
// to idle. Legal from any state.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.submitSeq++ // invalidate any in-flight submission
	c.state = StateIdle
	c.bbox = nil
	c.classification = selection.Classify(nil, c.policy)
	c.job = nil
	c.lastError = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notifyState(snap)
}

func (c *Controller) notifyState(snap Snapshot) {
	c.mu.Lock()
	cb := c.onStateChange
	c.mu.Unlock()
	if cb != nil {
		cb(snap)
	}
}

func (c *Controller) notifyJob(job Job) {
	c.mu.Lock()
	cb := c.onJobUpdate
	c.mu.Unlock()
	if cb != nil {
		cb(job)
	}
}
