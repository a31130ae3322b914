package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"gopherform/internal/model"
)

// MemorySubmissionRepository keeps submissions in process memory. It backs
// the "memory" storage driver and doubles as the fake in tests.
type MemorySubmissionRepository struct {
	mu     sync.RWMutex
	nextID uint
	rows   map[uint]model.Submission
	now    func() time.Time
}

func NewMemorySubmissionRepository() *MemorySubmissionRepository {
	return &MemorySubmissionRepository{
		rows: make(map[uint]model.Submission),
		now:  time.Now,
	}
}

func (r *MemorySubmissionRepository) Initialize(context.Context) error {
	return nil
}

func (r *MemorySubmissionRepository) Create(_ context.Context, submission *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	submission.ID = r.nextID
	submission.CreatedAt = r.now()
	r.rows[submission.ID] = cloneSubmission(*submission)
	return nil
}

func (r *MemorySubmissionRepository) ListAll(context.Context) ([]model.Submission, error) {
	r.mu.RLock()
	list := make([]model.Submission, 0, len(r.rows))
	for _, row := range r.rows {
		list = append(list, cloneSubmission(row))
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r *MemorySubmissionRepository) FindImageByID(_ context.Context, id uint) (*string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, false, nil
	}
	return cloneSubmission(row).Image, true, nil
}

func (r *MemorySubmissionRepository) DeleteByID(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

func (r *MemorySubmissionRepository) Ping(context.Context) error {
	return nil
}

// MemorySubmissionEventRepository is the event log used with the memory driver.
type MemorySubmissionEventRepository struct {
	mu     sync.Mutex
	nextID uint
	events []model.SubmissionEvent
}

func NewMemorySubmissionEventRepository() *MemorySubmissionEventRepository {
	return &MemorySubmissionEventRepository{}
}

func (r *MemorySubmissionEventRepository) Create(_ context.Context, event *model.SubmissionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	event.ID = r.nextID
	event.CreatedAt = time.Now()
	r.events = append(r.events, *event)
	return nil
}

func (r *MemorySubmissionEventRepository) ListBySubmissionID(_ context.Context, submissionID uint) ([]model.SubmissionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.SubmissionEvent
	for _, e := range r.events {
		if e.SubmissionID == submissionID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneSubmission(s model.Submission) model.Submission {
	if s.Image != nil {
		image := *s.Image
		s.Image = &image
	}
	return s
}
