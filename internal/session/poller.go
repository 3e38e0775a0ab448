package session

import (
	"context"
	"time"

	"trailforge-desktop/internal/backend"
)

// pollJob drives the bounded polling loop for one job identity. Transient
// fetch errors are swallowed and retried on the next tick; only a terminal
// status, or cancellation of ctx, stops the loop.
func (c *Controller) pollJob(ctx context.Context, jobID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := c.backend.Status(ctx, jobID)
		if err != nil {
			// Momentary network blips are expected, stay in place
			continue
		}

		if ctx.Err() != nil {
			// Cancelled while the request was in flight, drop the response
			return
		}

		if c.applyStatus(jobID, status) {
			return
		}
	}
}

// applyStatus folds a poll response into the session. It returns true when
// polling should stop: either the job reached a terminal status, or the
// response no longer matches the tracked job identity.
func (c *Controller) applyStatus(jobID string, status backend.JobStatus) bool {
	c.mu.Lock()

	// Identity guard: the session may have been reset or moved to another
	// job while this response was in flight
	if c.state != StateTracking || c.job == nil || c.job.ID != jobID {
		c.mu.Unlock()
		return true
	}

	c.job.Status = status.Status
	c.job.Progress = status.Progress

	var snap *Snapshot
	switch status.Status {
	case backend.JobCompleted:
		c.job.Filename = status.Filename
		c.job.FileSize = status.FileSize
		c.job.DownloadURL = c.backend.DownloadURL(jobID, status.Filename)
		c.finishLocked()
		s := c.snapshotLocked()
		snap = &s
	case backend.JobFailed:
		c.job.Error = status.Error
		c.finishLocked()
		s := c.snapshotLocked()
		snap = &s
	}

	jobCopy := *c.job
	terminal := status.Status.Terminal()
	c.mu.Unlock()

	c.notifyJob(jobCopy)
	if snap != nil {
		c.notifyState(*snap)
	}
	return terminal
}

// finishLocked moves the session to done and releases the poll context,
// caller must hold the lock
func (c *Controller) finishLocked() {
	c.state = StateDone
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
}
