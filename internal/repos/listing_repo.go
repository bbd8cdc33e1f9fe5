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
	applog "autolot/internal/log"
	"autolot/internal/storage/kv"
)

const (
	listingPrefix      = "listing:"
	listingIndexPrefix = "listings:index:"
)

func listingKey(id string) string      { return listingPrefix + id }
func listingIndexKey(id string) string { return listingIndexPrefix + id }

// ListingIndex is the small entry stored beside each listing record.
type ListingIndex struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListingRepo stores one key per listing plus an index entry. There is no whole-map
// read-modify-write; two writers on the same listing are last-writer-wins for that record only.
type ListingRepo struct {
	kv    kv.Store
	now   func() time.Time
	newID func() string
}

func NewListingRepo(store kv.Store) *ListingRepo {
	return &ListingRepo{kv: store, now: time.Now, newID: uuid.NewString}
}

// Create always mints a fresh id.
func (r *ListingRepo) Create(ctx context.Context, in domain.ListingPatch) (domain.Listing, error) {
	id, err := r.freshID(ctx)
	if err != nil {
		return domain.Listing{}, err
	}
	now := r.now().UTC()
	l := domain.Listing{
		ID:        id,
		Images:    []string{},
		Status:    domain.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.Apply(&l)
	if err := checkListing(&l, now); err != nil {
		return domain.Listing{}, err
	}
	if err := r.put(ctx, l, nil); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

func (r *ListingRepo) freshID(ctx context.Context) (string, error) {
	for i := 0; i < 3; i++ {
		id := r.newID()
		var existing domain.Listing
		ok, err := r.kv.Get(ctx, listingKey(id), &existing)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: could not mint an unused listing id", domain.ErrStorage)
}

func (r *ListingRepo) Get(ctx context.Context, id string) (domain.Listing, error) {
	var l domain.Listing
	ok, err := r.kv.Get(ctx, listingKey(id), &l)
	if err != nil {
		return domain.Listing{}, err
	}
	if !ok {
		return domain.Listing{}, fmt.Errorf("listing %q: %w", id, domain.ErrNotFound)
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	return l, nil
}

// List returns every listing, most recently created first. Equal timestamps fall back to id order.
func (r *ListingRepo) List(ctx context.Context) ([]domain.Listing, error) {
	keys, err := r.kv.Keys(ctx, listingPrefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Listing, 0, len(keys))
	for _, k := range keys {
		l, err := r.Get(ctx, strings.TrimPrefix(k, listingPrefix))
		if errors.Is(err, domain.ErrNotFound) {
			// deleted between Keys and Get
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Update shallow-merges patch onto an existing listing. It never creates.
func (r *ListingRepo) Update(ctx context.Context, id string, patch domain.ListingPatch) (domain.Listing, error) {
	l, err := r.Get(ctx, id)
	if err != nil {
		return domain.Listing{}, err
	}
	prev := l
	patch.Apply(&l)
	now := r.now().UTC()
	if err := checkListing(&l, now); err != nil {
		return domain.Listing{}, err
	}
	l.UpdatedAt = now
	if err := r.put(ctx, l, &prev); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

// Delete removes the record and its index entry; deleting a missing id is a no-op.
func (r *ListingRepo) Delete(ctx context.Context, id string) error {
	if err := r.kv.Delete(ctx, listingKey(id)); err != nil {
		return err
	}
	return r.kv.Delete(ctx, listingIndexKey(id))
}

// Index returns the index entries without loading full records. Use it to enumerate
// or count listings when the full records are not needed.
func (r *ListingRepo) Index(ctx context.Context) ([]ListingIndex, error) {
	keys, err := r.kv.Keys(ctx, listingIndexPrefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]ListingIndex, 0, len(keys))
	for _, k := range keys {
		var e ListingIndex
		ok, err := r.kv.Get(ctx, k, &e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// put writes the record and then its index entry. If the index write fails the record
// is restored to prev (or removed when prev is nil) so a failed write leaves nothing behind.
func (r *ListingRepo) put(ctx context.Context, l domain.Listing, prev *domain.Listing) error {
	if err := r.kv.Set(ctx, listingKey(l.ID), l, 0); err != nil {
		return err
	}
	err := r.kv.Set(ctx, listingIndexKey(l.ID), ListingIndex{
		ID: l.ID, Title: l.Title, CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt,
	}, 0)
	if err == nil {
		return nil
	}
	var rerr error
	if prev == nil {
		rerr = r.kv.Delete(ctx, listingKey(l.ID))
	} else {
		rerr = r.kv.Set(ctx, listingKey(l.ID), *prev, 0)
	}
	if rerr != nil {
		applog.Error(nil, "listing.save.orphan", rerr, map[string]any{"id": l.ID})
	}
	return err
}

func checkListing(l *domain.Listing, now time.Time) error {
	l.Condition = strings.TrimSpace(l.Condition)
	if l.Price < 0 {
		return domain.Invalid("price", "must not be negative")
	}
	if l.Mileage < 0 {
		return domain.Invalid("mileage", "must not be negative")
	}
	// 0 means "not supplied"
	if l.Year != 0 && (l.Year < 1886 || l.Year > now.Year()+1) {
		return domain.Invalid("year", "is not a plausible model year")
	}
	if !l.Status.Valid() {
		return domain.Invalid("status", fmt.Sprintf("unknown status %q", l.Status))
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	for _, u := range l.Images {
		if strings.TrimSpace(u) == "" {
			return domain.Invalid("images", "must not contain empty URLs")
		}
	}
	return nil
}
