package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"autolot/internal/domain"
	applog "autolot/internal/log"
	"autolot/internal/notify"
	"autolot/internal/repos"
	"autolot/internal/storage/blob"
	"autolot/internal/validate"
)

// CustomerFile is a file sent through the public file-upload form.
type CustomerFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
	Description string
	ProductID   string
}

type SubmissionService struct {
	Subs           *repos.SubmissionRepo
	Blobs          blob.Store
	Notifier       notify.Notifier
	MaxUploadBytes int64
	now            func() time.Time
}

func NewSubmissionService(subs *repos.SubmissionRepo, blobs blob.Store, n notify.Notifier, maxUploadBytes int64) *SubmissionService {
	if n == nil {
		n = notify.LogNotifier{}
	}
	return &SubmissionService{Subs: subs, Blobs: blobs, Notifier: n, MaxUploadBytes: maxUploadBytes, now: time.Now}
}

// Submit validates and stores a form submission, then notifies.
func (s *SubmissionService) Submit(ctx context.Context, email string, data domain.Payload) (domain.Submission, error) {
	email, ok := validate.Email(email)
	if !ok {
		return domain.Submission{}, domain.Invalid("email", "must be a valid address")
	}
	if data == nil {
		return domain.Submission{}, domain.Invalid("data", "is required")
	}
	if data.Kind() == domain.TypeFileUpload {
		return domain.Submission{}, domain.Invalid("type", "file uploads must be sent as multipart form data")
	}
	if nl, ok := data.(domain.NewsletterData); ok && nl.SubscribedAt.IsZero() {
		nl.SubscribedAt = s.now().UTC()
		data = nl
	}
	if err := data.Validate(); err != nil {
		return domain.Submission{}, err
	}
	sub, err := s.Subs.Save(ctx, email, data)
	if err != nil {
		return domain.Submission{}, err
	}
	s.notify(ctx, sub)
	return sub, nil
}

// SubmitFile stores the file under uploads/ and records a file-upload submission pointing at it.
// If the record cannot be saved the blob is removed again.
func (s *SubmissionService) SubmitFile(ctx context.Context, email string, f CustomerFile) (domain.Submission, error) {
	email, ok := validate.Email(email)
	if !ok {
		return domain.Submission{}, domain.Invalid("email", "must be a valid address")
	}
	name := validate.SafeName(f.Name)
	switch {
	case name == "":
		return domain.Submission{}, domain.Invalid("file", "has no usable name")
	case f.Size <= 0:
		return domain.Submission{}, domain.Invalid("file", "is empty")
	case s.MaxUploadBytes > 0 && f.Size > s.MaxUploadBytes:
		return domain.Submission{}, domain.Invalid("file", fmt.Sprintf("exceeds the %d MB limit", s.MaxUploadBytes>>20))
	}

	sf, err := s.Blobs.Upload(ctx, fmt.Sprintf("uploads/%d-%s", s.now().UnixMilli(), name), f.Body, f.Size, f.ContentType)
	if err != nil {
		return domain.Submission{}, err
	}
	data := domain.FileUploadData{
		FileName:    f.Name,
		FileSize:    sf.Size,
		FileType:    f.ContentType,
		FileURL:     sf.URL,
		FilePath:    sf.Pathname,
		Description: f.Description,
		ProductID:   f.ProductID,
	}
	sub, err := s.Subs.Save(ctx, email, data)
	if err != nil {
		if derr := s.Blobs.Delete(ctx, sf.Pathname); derr != nil {
			applog.Error(nil, "submission.file.orphan", derr, map[string]any{"path": sf.Pathname})
		}
		return domain.Submission{}, err
	}
	s.notify(ctx, sub)
	return sub, nil
}

func (s *SubmissionService) notify(ctx context.Context, sub domain.Submission) {
	if err := s.Notifier.Notify(ctx, sub); err != nil {
		applog.Warn(nil, "submission.notify_failed", err, map[string]any{"id": sub.ID, "type": sub.Type})
	}
}
