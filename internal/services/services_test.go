package services_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"autolot/internal/domain"
	"autolot/internal/repos"
	"autolot/internal/services"
	"autolot/internal/storage/blob"
	"autolot/internal/storage/kv"
)

func memKV(t *testing.T) kv.Store {
	t.Helper()
	s, err := kv.OpenSQLite(":memory:", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// flakyBlobs fails uploads whose path contains any of the given fragments.
type flakyBlobs struct {
	blob.Store
	failOn []string
}

func (f *flakyBlobs) Upload(ctx context.Context, p string, r io.Reader, size int64, ct string) (domain.StorageFile, error) {
	for _, frag := range f.failOn {
		if strings.Contains(p, frag) {
			return domain.StorageFile{}, errors.New("s3: connection reset")
		}
	}
	return f.Store.Upload(ctx, p, r, size, ct)
}

func newBlobs(t *testing.T, failOn ...string) *flakyBlobs {
	t.Helper()
	fs, err := blob.NewFSStore(t.TempDir(), "http://localhost/media")
	if err != nil {
		t.Fatal(err)
	}
	return &flakyBlobs{Store: fs, failOn: failOn}
}

func file(name, body string) services.MediaFile {
	return services.MediaFile{Name: name, ContentType: "image/jpeg", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestSharedSecretGate(t *testing.T) {
	g := services.NewSharedSecretGate("correct-secret")
	if !g.Verify("correct-secret") {
		t.Fatal("correct secret rejected")
	}
	for _, bad := range []string{"wrong", "", "correct-secret ", "correct-secre"} {
		if g.Verify(bad) {
			t.Fatalf("%q accepted", bad)
		}
	}
	unset := services.NewSharedSecretGate("")
	if unset.Configured() || unset.Verify("") {
		t.Fatal("an unconfigured gate must reject everything")
	}
}

func TestUploadService_PartialBatch(t *testing.T) {
	ctx := context.Background()
	listings := repos.NewListingRepo(memKV(t))
	blobs := newBlobs(t, "-1-second.jpg")
	svc := services.NewUploadService(listings, blobs, 100<<20)

	existing := []string{"https://cdn/old.jpg"}
	l, err := listings.Create(ctx, domain.ListingPatch{Images: &existing})
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.AttachMedia(ctx, l.ID, []services.MediaFile{
		file("first.jpg", "aaa"),
		file("second.jpg", "bbb"),
		file("third.jpg", "ccc"),
	})
	if !errors.Is(err, domain.ErrUploadPartial) {
		t.Fatalf("want ErrUploadPartial, got %v", err)
	}
	if len(res.Succeeded) != 2 || res.Succeeded[0].Name != "first.jpg" || res.Succeeded[1].Name != "third.jpg" {
		t.Fatalf("bad succeeded list %+v", res.Succeeded)
	}
	if len(res.Failed) != 1 || res.Failed[0].Name != "second.jpg" || res.Failed[0].Error != "storage failure" {
		t.Fatalf("bad failed list %+v", res.Failed)
	}

	got, _ := listings.Get(ctx, l.ID)
	want := []string{"https://cdn/old.jpg", res.Succeeded[0].URL, res.Succeeded[1].URL}
	if strings.Join(got.Images, ",") != strings.Join(want, ",") {
		t.Fatalf("images = %v, want %v", got.Images, want)
	}
	for _, u := range got.Images[1:] {
		if !strings.HasPrefix(u, "http://localhost/media/products/"+l.ID+"/") {
			t.Fatalf("unexpected url %s", u)
		}
	}

	stored, _ := blobs.List(ctx, "products/"+l.ID+"/")
	if len(stored) != 2 {
		t.Fatalf("want the two successful blobs kept, got %+v", stored)
	}
}

func TestUploadService_VideoAndLimits(t *testing.T) {
	ctx := context.Background()
	listings := repos.NewListingRepo(memKV(t))
	svc := services.NewUploadService(listings, newBlobs(t), 4)
	l, _ := listings.Create(ctx, domain.ListingPatch{})

	clip := file("walkaround.mp4", "mp4")
	clip.Video = true
	res, err := svc.AttachMedia(ctx, l.ID, []services.MediaFile{clip, file("huge.jpg", "too large")})
	if !errors.Is(err, domain.ErrUploadPartial) {
		t.Fatalf("want partial, got %v", err)
	}
	if res.Listing.Video == "" || len(res.Listing.Images) != 0 {
		t.Fatalf("video should be set and no images added: %+v", res.Listing)
	}
	if !strings.Contains(res.Failed[0].Error, "limit") {
		t.Fatalf("want size reason, got %q", res.Failed[0].Error)
	}

	_, err = svc.AttachMedia(ctx, l.ID, []services.MediaFile{file("huge.jpg", "too large")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("all-failed batch should surface the first error, got %v", err)
	}
	if _, err := svc.AttachMedia(ctx, "missing", []services.MediaFile{file("a.jpg", "a")}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestUploadService_AllFailedLeavesListingUntouched(t *testing.T) {
	ctx := context.Background()
	listings := repos.NewListingRepo(memKV(t))
	svc := services.NewUploadService(listings, newBlobs(t, "products/"), 100<<20)
	l, _ := listings.Create(ctx, domain.ListingPatch{})

	res, err := svc.AttachMedia(ctx, l.ID, []services.MediaFile{file("a.jpg", "a")})
	if err == nil || len(res.Succeeded) != 0 {
		t.Fatalf("want failure, got %+v %v", res, err)
	}
	got, _ := listings.Get(ctx, l.ID)
	if !got.UpdatedAt.Equal(l.UpdatedAt) || len(got.Images) != 0 {
		t.Fatalf("listing changed: %+v", got)
	}
}

type recordingNotifier struct {
	got []domain.Submission
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, s domain.Submission) error {
	r.got = append(r.got, s)
	return r.err
}

func TestSubmissionService_Submit(t *testing.T) {
	ctx := context.Background()
	subs := repos.NewSubmissionRepo(memKV(t))
	n := &recordingNotifier{err: errors.New("webhook down")}
	svc := services.NewSubmissionService(subs, newBlobs(t), n, 50<<20)

	s, err := svc.Submit(ctx, "a@b.com", domain.InquiryData{Name: "Jane", Message: "Interested", CarID: "car-1"})
	if err != nil {
		t.Fatalf("a failing notifier must not fail the submission: %v", err)
	}
	if s.Status != domain.SubmissionNew || len(n.got) != 1 {
		t.Fatalf("bad submission %+v / notifications %d", s, len(n.got))
	}

	nl, err := svc.Submit(ctx, "b@b.com", domain.NewsletterData{})
	if err != nil {
		t.Fatal(err)
	}
	if nl.Data.(domain.NewsletterData).SubscribedAt.IsZero() {
		t.Fatal("subscribedAt should be stamped")
	}

	for name, tc := range map[string]struct {
		email string
		data  domain.Payload
	}{
		"bad email":       {"nope", domain.InquiryData{Name: "J", Message: "m"}},
		"missing message": {"a@b.com", domain.InquiryData{Name: "J"}},
		"booking no time": {"a@b.com", domain.InspectionBookingData{Name: "J", Phone: "1", PreferredDate: "2024-06-01"}},
		"file via json":   {"a@b.com", domain.FileUploadData{FileName: "x", FileURL: "http://evil"}},
	} {
		if _, err := svc.Submit(ctx, tc.email, tc.data); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: want validation error, got %v", name, err)
		}
	}
	all, _ := subs.List(ctx, "")
	if len(all) != 2 {
		t.Fatalf("rejected submissions must not persist, have %d", len(all))
	}
}

// failingKV refuses every write.
type failingKV struct{ kv.Store }

func (failingKV) Set(context.Context, string, any, time.Duration) error {
	return domain.ErrStorage
}

func TestSubmissionService_SubmitFile(t *testing.T) {
	ctx := context.Background()
	blobs := newBlobs(t)
	svc := services.NewSubmissionService(repos.NewSubmissionRepo(memKV(t)), blobs, nil, 8)

	s, err := svc.SubmitFile(ctx, "a@b.com", services.CustomerFile{
		Name: "../logbook.pdf", ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf"), ProductID: "car-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	d := s.Data.(domain.FileUploadData)
	if s.Type != domain.TypeFileUpload || !strings.HasPrefix(d.FilePath, "uploads/") || !strings.HasSuffix(d.FilePath, "-logbook.pdf") || d.FileSize != 3 {
		t.Fatalf("bad file submission %+v", d)
	}

	_, err = svc.SubmitFile(ctx, "a@b.com", services.CustomerFile{Name: "big.pdf", Size: 9, Body: strings.NewReader("123456789")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("oversized file: want validation error, got %v", err)
	}
	files, _ := blobs.List(ctx, "uploads/")
	if len(files) != 1 {
		t.Fatalf("oversized file must not reach storage, have %+v", files)
	}

	broken := services.NewSubmissionService(repos.NewSubmissionRepo(failingKV{memKV(t)}), blobs, nil, 8)
	_, err = broken.SubmitFile(ctx, "a@b.com", services.CustomerFile{Name: "x.pdf", Size: 1, Body: strings.NewReader("x")})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("want storage failure, got %v", err)
	}
	files, _ = blobs.List(ctx, "uploads/")
	if len(files) != 1 {
		t.Fatalf("blob of an unsaved submission should be removed, have %+v", files)
	}
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	listings := repos.NewListingRepo(memKV(t))
	n, err := services.SeedDemo(ctx, listings)
	if err != nil || n != 3 {
		t.Fatalf("first seed: %d %v", n, err)
	}
	n, err = services.SeedDemo(ctx, listings)
	if err != nil || n != 0 {
		t.Fatalf("second seed should be a no-op: %d %v", n, err)
	}
}

func TestSeedDemo_SkipsWhenIndexHasListings(t *testing.T) {
	ctx := context.Background()
	listings := repos.NewListingRepo(memKV(t))
	title := "Existing"
	if _, err := listings.Create(ctx, domain.ListingPatch{Title: &title}); err != nil {
		t.Fatal(err)
	}
	n, err := services.SeedDemo(ctx, listings)
	if err != nil || n != 0 {
		t.Fatalf("seed over a non-empty store: %d %v", n, err)
	}
	idx, _ := listings.Index(ctx)
	if len(idx) != 1 {
		t.Fatalf("want only the existing listing, got %+v", idx)
	}
}
