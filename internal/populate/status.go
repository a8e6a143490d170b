package populate

import (
	"sync"
	"time"

	"github.com/mediarr/mediarr/internal/models"
)

// KindStatus records the last population outcome for one media kind.
type KindStatus struct {
	Kind     string    `json:"kind"`
	Running  bool      `json:"running"`
	LastRun  time.Time `json:"last_run"`
	Items    int       `json:"items"`
	Duration string    `json:"duration"`
	RunCount int64     `json:"run_count"`
	LastError string   `json:"last_error,omitempty"`
}

// Status tracks per-kind run outcomes for the status endpoint.
type Status struct {
	mu    sync.RWMutex
	kinds map[models.MediaKind]*KindStatus
}

func NewStatus() *Status {
	return &Status{kinds: make(map[models.MediaKind]*KindStatus)}
}

func (s *Status) markRunning(kind models.MediaKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(kind).Running = true
}

func (s *Status) markComplete(kind models.MediaKind, items int, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.entry(kind)
	st.Running = false
	st.LastRun = time.Now()
	st.Items = items
	st.Duration = elapsed.Round(time.Millisecond).String()
	st.RunCount++
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
	}
}

// entry must be called with the lock held.
func (s *Status) entry(kind models.MediaKind) *KindStatus {
	st, ok := s.kinds[kind]
	if !ok {
		st = &KindStatus{Kind: string(kind)}
		s.kinds[kind] = st
	}
	return st
}

// Snapshot returns a copy of every kind's status.
func (s *Status) Snapshot() []KindStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]KindStatus, 0, len(s.kinds))
	for _, kind := range []models.MediaKind{models.KindMovie, models.KindTVShow, models.KindBook} {
		if st, ok := s.kinds[kind]; ok {
			out = append(out, *st)
		}
	}
	return out
}
