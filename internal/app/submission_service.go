package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strings"
	"sync/atomic"
	"time"

	"gopherform/internal/model"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotReady     = errors.New("storage not ready")
)

type SubmissionStore interface {
	Initialize(ctx context.Context) error
	Create(ctx context.Context, submission *model.Submission) error
	ListAll(ctx context.Context) ([]model.Submission, error)
	FindImageByID(ctx context.Context, id uint) (*string, bool, error)
	DeleteByID(ctx context.Context, id uint) (bool, error)
	Ping(ctx context.Context) error
}

type UploadStore interface {
	Save(fh *multipart.FileHeader) (*string, error)
	Remove(ref string) error
}

// ListCache serves the full listing. GetList reports the cache version
// even on a miss; SetList stores a listing read at that version and the
// cache must not serve it once Invalidate has moved the version on.
type ListCache interface {
	GetList(ctx context.Context) ([]model.Submission, int64, bool, error)
	SetList(ctx context.Context, version int64, list []model.Submission) error
	Invalidate(ctx context.Context) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event model.SubmissionEvent) error
}

type EventLog interface {
	ListBySubmissionID(ctx context.Context, submissionID uint) ([]model.SubmissionEvent, error)
}

// Backends are the storage dependencies that only exist once startup
// initialization has finished. Cache, Events and EventLog are optional.
type Backends struct {
	Store    SubmissionStore
	Cache    ListCache
	Events   EventPublisher
	EventLog EventLog
}

type SubmissionService struct {
	uploads  UploadStore
	backends atomic.Pointer[Backends]
	now      func() time.Time
}

type CreateSubmissionInput struct {
	Name    string
	Email   string
	Message string
	Image   *multipart.FileHeader
}

func NewSubmissionService(uploads UploadStore) *SubmissionService {
	return &SubmissionService{
		uploads: uploads,
		now:     time.Now,
	}
}

// Bind attaches initialized backends and makes the service ready.
func (s *SubmissionService) Bind(b Backends) error {
	if b.Store == nil {
		return fmt.Errorf("bind submission service: store is nil")
	}
	s.backends.Store(&b)
	return nil
}

func (s *SubmissionService) Ready() bool {
	return s.backends.Load() != nil
}

func (s *SubmissionService) Ping(ctx context.Context) error {
	b := s.backends.Load()
	if b == nil {
		return ErrNotReady
	}
	return b.Store.Ping(ctx)
}

func (s *SubmissionService) Create(ctx context.Context, input CreateSubmissionInput) (*model.Submission, error) {
	b := s.backends.Load()
	if b == nil {
		return nil, ErrNotReady
	}

	// Values are stored exactly as received.
	submission := &model.Submission{
		Name:    input.Name,
		Email:   input.Email,
		Message: input.Message,
	}
	if err := validate(submission); err != nil {
		return nil, err
	}

	// A saved file is not removed if the insert below fails.
	image, err := s.uploads.Save(input.Image)
	if err != nil {
		return nil, err
	}
	submission.Image = image

	if err := b.Store.Create(ctx, submission); err != nil {
		return nil, err
	}

	s.invalidate(ctx, b)
	s.publish(ctx, b, model.SubmissionEvent{
		SubmissionID: submission.ID,
		Action:       model.SubmissionCreated,
		Image:        submission.Image,
		OccurredAt:   s.now(),
	})
	return submission, nil
}

func (s *SubmissionService) List(ctx context.Context) ([]model.Submission, error) {
	b := s.backends.Load()
	if b == nil {
		return nil, ErrNotReady
	}

	// The version is read before the store so a write landing in between
	// leaves the fill below stale and unserved.
	var version int64
	fill := false
	if b.Cache != nil {
		list, v, ok, err := b.Cache.GetList(ctx)
		switch {
		case err != nil:
			log.Printf("component=submission_service msg=%q err=%v", "read list cache", err)
		case ok:
			return list, nil
		default:
			version, fill = v, true
		}
	}

	list, err := b.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Submission{}
	}

	if fill {
		if err := b.Cache.SetList(ctx, version, list); err != nil {
			log.Printf("component=submission_service msg=%q err=%v", "fill list cache", err)
		}
	}
	return list, nil
}

// Delete removes the stored image first and then the row. Deleting an id
// that does not exist succeeds and changes nothing.
func (s *SubmissionService) Delete(ctx context.Context, id uint) error {
	b := s.backends.Load()
	if b == nil {
		return ErrNotReady
	}
	if id == 0 {
		return ErrInvalidInput
	}

	image, found, err := b.Store.FindImageByID(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	if image != nil {
		if err := s.uploads.Remove(*image); err != nil {
			return err
		}
	}

	deleted, err := b.Store.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}

	s.invalidate(ctx, b)
	s.publish(ctx, b, model.SubmissionEvent{
		SubmissionID: id,
		Action:       model.SubmissionDeleted,
		Image:        image,
		OccurredAt:   s.now(),
	})
	return nil
}

// Events returns the recorded lifecycle events of one submission, oldest
// first. The history outlives the submission itself.
func (s *SubmissionService) Events(ctx context.Context, id uint) ([]model.SubmissionEvent, error) {
	b := s.backends.Load()
	if b == nil {
		return nil, ErrNotReady
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}
	if b.EventLog == nil {
		return []model.SubmissionEvent{}, nil
	}

	events, err := b.EventLog.ListBySubmissionID(ctx, id)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.SubmissionEvent{}
	}
	return events, nil
}

func (s *SubmissionService) invalidate(ctx context.Context, b *Backends) {
	if b.Cache == nil {
		return
	}
	if err := b.Cache.Invalidate(ctx); err != nil {
		log.Printf("component=submission_service msg=%q err=%v", "invalidate list cache", err)
	}
}

func (s *SubmissionService) publish(ctx context.Context, b *Backends, event model.SubmissionEvent) {
	if b.Events == nil {
		return
	}
	if err := b.Events.Publish(ctx, event); err != nil {
		log.Printf("component=submission_service msg=%q submission_id=%d action=%s err=%v",
			"publish event", event.SubmissionID, event.Action, err)
	}
}

func validate(s *model.Submission) error {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Email == "" {
		missing = append(missing, "email")
	}
	if s.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}
