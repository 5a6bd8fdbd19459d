package orchestrator

import (
	"sync"
	"time"

	"realestate-tokenizer/internal/domain"
)

// Snapshot is an immutable view of a submission at one transition.
type Snapshot struct {
	SubmissionID string                  `json:"submissionId"`
	Status       domain.SubmissionStatus `json:"status"`

	// Stage is the running stage, or the failing stage once Status is failed.
	Stage           domain.Stage        `json:"stage,omitempty"`
	CompletedStages []domain.Stage      `json:"completedStages"`
	Error           *domain.ErrorRecord `json:"error"`

	// Published is set once the registry record exists.
	Published   bool      `json:"published"`
	TokenID     string    `json:"tokenId,omitempty"`
	MetadataCID string    `json:"metadataCid,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Completed reports whether stage is in the completed set.
func (s Snapshot) Completed(stage domain.Stage) bool {
	for _, c := range s.CompletedStages {
		if c == stage {
			return true
		}
	}
	return false
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.CompletedStages = append([]domain.Stage(nil), s.CompletedStages...)
	if s.Error != nil {
		e := *s.Error
		c.Error = &e
	}
	return c
}

// Observer receives every snapshot a submission publishes, in order.
// Observe is called synchronously on the pipeline goroutine and must not block.
type Observer interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

// Observe calls f(s).
func (f ObserverFunc) Observe(s Snapshot) { f(s) }

// Tracker keeps the latest snapshot of one submission and fans it out to
// subscribers. Subscribers always see the most recent snapshot; intermediate
// ones may be conflated when a subscriber is slow.
type Tracker struct {
	mu     sync.RWMutex
	latest Snapshot
	subs   map[int]chan Snapshot
	nextID int
}

// NewTracker creates a tracker in the idle state.
func NewTracker(submissionID string) *Tracker {
	return &Tracker{
		latest: Snapshot{
			SubmissionID:    submissionID,
			Status:          domain.StatusIdle,
			CompletedStages: []domain.Stage{},
		},
		subs: make(map[int]chan Snapshot),
	}
}

// Observe records s and notifies subscribers. Terminal snapshots close
// every subscription.
func (t *Tracker) Observe(s Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.latest = s.clone()
	for id, ch := range t.subs {
		offer(ch, t.latest.clone())
		if s.Status.Terminal() {
			close(ch)
			delete(t.subs, id)
		}
	}
}

// Snapshot returns the latest snapshot.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest.clone()
}

// Subscribe returns a channel that first yields the current snapshot, then
// every later one. The channel is closed after the terminal snapshot or
// when cancel is called.
func (t *Tracker) Subscribe() (<-chan Snapshot, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Snapshot, 1)
	ch <- t.latest.clone()
	if t.latest.Status.Terminal() {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if c, ok := t.subs[id]; ok {
				close(c)
				delete(t.subs, id)
			}
		})
	}
	return ch, cancel
}

// offer replaces any undelivered snapshot in ch with s.
func offer(ch chan Snapshot, s Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
