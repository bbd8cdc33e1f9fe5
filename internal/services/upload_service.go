package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"autolot/internal/domain"
	applog "autolot/internal/log"
	"autolot/internal/repos"
	"autolot/internal/storage/blob"
	"autolot/internal/validate"
)

// MediaFile is one file of an upload batch. Size is the declared length of Body.
type MediaFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
	Video       bool
}

type UploadedFile struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Pathname string `json:"pathname"`
	Video    bool   `json:"video,omitempty"`
}

type FailedFile struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// UploadResult reports every file of a batch as either succeeded or failed, in input order.
type UploadResult struct {
	Listing   domain.Listing `json:"listing"`
	Succeeded []UploadedFile `json:"succeeded"`
	Failed    []FailedFile   `json:"failed"`
}

type UploadService struct {
	Listings     *repos.ListingRepo
	Blobs        blob.Store
	MaxFileBytes int64
	now          func() time.Time
}

func NewUploadService(listings *repos.ListingRepo, blobs blob.Store, maxFileBytes int64) *UploadService {
	return &UploadService{Listings: listings, Blobs: blobs, MaxFileBytes: maxFileBytes, now: time.Now}
}

// AttachMedia uploads files one by one under products/{id}/ and appends the image URLs
// (or sets the video) on the listing. Files that already uploaded are never rolled back;
// when some files fail the returned error wraps ErrUploadPartial and the result says which.
func (s *UploadService) AttachMedia(ctx context.Context, listingID string, files []MediaFile) (UploadResult, error) {
	res := UploadResult{Succeeded: []UploadedFile{}, Failed: []FailedFile{}}
	if len(files) == 0 {
		return res, domain.Invalid("file", "at least one file is required")
	}
	videos := 0
	for _, f := range files {
		if f.Video {
			videos++
		}
	}
	if videos > 1 {
		return res, domain.Invalid("video", "only one video per listing")
	}
	listing, err := s.Listings.Get(ctx, listingID)
	if err != nil {
		return res, err
	}
	res.Listing = listing

	var images []string
	var video string
	var firstErr error
	stamp := s.now().UnixMilli()
	for i, f := range files {
		sf, err := s.put(ctx, fmt.Sprintf("products/%s/%d-%d-", listingID, stamp, i), f)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			applog.Warn(nil, "listing.upload.file_failed", err, map[string]any{"listing": listingID, "file": f.Name})
			res.Failed = append(res.Failed, FailedFile{Name: f.Name, Error: publicReason(err)})
			continue
		}
		res.Succeeded = append(res.Succeeded, UploadedFile{Name: f.Name, URL: sf.URL, Pathname: sf.Pathname, Video: f.Video})
		if f.Video {
			video = sf.URL
		} else {
			images = append(images, sf.URL)
		}
	}
	if len(res.Succeeded) == 0 {
		return res, firstErr
	}

	// re-read so images added by a concurrent request are kept
	cur, err := s.Listings.Get(ctx, listingID)
	if err != nil {
		return res, fmt.Errorf("attach media to listing %s: %w", listingID, err)
	}
	merged := append(append([]string{}, cur.Images...), images...)
	patch := domain.ListingPatch{Images: &merged}
	if video != "" {
		patch.Video = &video
	}
	updated, err := s.Listings.Update(ctx, listingID, patch)
	if err != nil {
		return res, fmt.Errorf("attach media to listing %s: %w", listingID, err)
	}
	res.Listing = updated

	if len(res.Failed) > 0 {
		return res, fmt.Errorf("%w: %d of %d files failed", domain.ErrUploadPartial, len(res.Failed), len(files))
	}
	return res, nil
}

// UploadRaw stores a single admin file under prefix (default "uploads") without touching any listing.
func (s *UploadService) UploadRaw(ctx context.Context, prefix string, f MediaFile) (domain.StorageFile, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "uploads"
	}
	return s.put(ctx, fmt.Sprintf("%s/%d-", prefix, s.now().UnixMilli()), f)
}

func (s *UploadService) put(ctx context.Context, pathPrefix string, f MediaFile) (domain.StorageFile, error) {
	name := validate.SafeName(f.Name)
	if name == "" {
		return domain.StorageFile{}, domain.Invalid("file", "has no usable name")
	}
	if f.Size <= 0 {
		return domain.StorageFile{}, domain.Invalid("file", "is empty")
	}
	if s.MaxFileBytes > 0 && f.Size > s.MaxFileBytes {
		return domain.StorageFile{}, domain.Invalid("file", fmt.Sprintf("exceeds the %d MB limit", s.MaxFileBytes>>20))
	}
	return s.Blobs.Upload(ctx, pathPrefix+name, f.Body, f.Size, f.ContentType)
}

// publicReason hides backend details from API callers.
func publicReason(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return "storage failure"
}
