package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks how much of a long-running activity, such as the
// retirement of a simulated instruction stream, has completed. It is safe
// for concurrent use; the web page polls it while the simulation updates
// it.
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds to the number of in-progress elements.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished adds to the number of finished elements.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished moves a certain amount of elements from in
// progress to finished.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}
