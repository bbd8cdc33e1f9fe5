package repos

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"autolot/internal/domain"
	"autolot/internal/storage/kv"
	applog "autolot/internal/log"
)

const (
	submissionPrefix      = "submission:"
	submissionIndexPrefix = "submissions:all:"
)

func submissionKey(id string) string      { return submissionPrefix + id }
func submissionIndexKey(id string) string { return submissionIndexPrefix + id }

type SubmissionRepo struct {
	kv  kv.Store
	now func() time.Time
}

func NewSubmissionRepo(store kv.Store) *SubmissionRepo {
	return &SubmissionRepo{kv: store, now: time.Now}
}

// newSubmissionID builds "{type}-{unix millis}-{9 random chars}".
func newSubmissionID(t domain.SubmissionType, at time.Time) string {
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s-%d-%s", t, at.UnixMilli(), rnd)
}

// Save persists a new submission with status "new". The type comes from the payload variant.
func (r *SubmissionRepo) Save(ctx context.Context, email string, data domain.Payload) (domain.Submission, error) {
	if data == nil {
		return domain.Submission{}, domain.Invalid("data", "is required")
	}
	if strings.TrimSpace(email) == "" {
		return domain.Submission{}, domain.Invalid("email", "is required")
	}
	now := r.now().UTC()
	s := domain.Submission{
		ID:        newSubmissionID(data.Kind(), now),
		Type:      data.Kind(),
		Email:     email,
		Data:      data,
		CreatedAt: now,
		Status:    domain.SubmissionNew,
	}
	if err := r.kv.Set(ctx, submissionKey(s.ID), s, 0); err != nil {
		return domain.Submission{}, err
	}
	idx := domain.SubmissionIndex{ID: s.ID, Type: s.Type, CreatedAt: s.CreatedAt}
	if err := r.kv.Set(ctx, submissionIndexKey(s.ID), idx, 0); err != nil {
		// without its index entry the record would never be listed
		if derr := r.kv.Delete(ctx, submissionKey(s.ID)); derr != nil {
			applog.Error(nil, "submission.save.orphan", derr, map[string]any{"id": s.ID})
		}
		return domain.Submission{}, err
	}
	return s, nil
}

func (r *SubmissionRepo) Get(ctx context.Context, id string) (domain.Submission, error) {
	var s domain.Submission
	ok, err := r.kv.Get(ctx, submissionKey(id), &s)
	if err != nil {
		return domain.Submission{}, err
	}
	if !ok {
		return domain.Submission{}, fmt.Errorf("submission %q: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

// List returns submissions of type t (all types when t is empty), newest first.
// The type filter runs on index entries so non-matching records are never loaded.
func (r *SubmissionRepo) List(ctx context.Context, t domain.SubmissionType) ([]domain.Submission, error) {
	if t != "" && !t.Valid() {
		return nil, domain.Invalid("type", fmt.Sprintf("unknown submission type %q", t))
	}
	keys, err := r.kv.Keys(ctx, submissionIndexPrefix+"*")
	if err != nil {
		return nil, err
	}
	out := []domain.Submission{}
	for _, k := range keys {
		var idx domain.SubmissionIndex
		ok, err := r.kv.Get(ctx, k, &idx)
		if err != nil {
			return nil, err
		}
		if !ok || (t != "" && idx.Type != t) {
			continue
		}
		s, err := r.Get(ctx, idx.ID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateStatus rewrites the full record with only Status changed.
func (r *SubmissionRepo) UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus) error {
	if !status.Valid() {
		return domain.Invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	s.Status = status
	return r.kv.Set(ctx, submissionKey(id), s, 0)
}

func (r *SubmissionRepo) Delete(ctx context.Context, id string) error {
	if err := r.kv.Delete(ctx, submissionKey(id)); err != nil {
		return err
	}
	return r.kv.Delete(ctx, submissionIndexKey(id))
}
