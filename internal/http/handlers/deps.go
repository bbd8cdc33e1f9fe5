package handlers

import (
	"io"

	"autolot/internal/config"
	"autolot/internal/notify"
	"autolot/internal/repos"
	"autolot/internal/services"
	"autolot/internal/storage/blob"
	"autolot/internal/storage/kv"
)

type Deps struct {
	Cfg  config.Config
	Gate services.AccessGate

	// MediaDir is served under /media when blobs live on the local filesystem.
	MediaDir string
	// AccessLog receives fiber access lines; nil disables them.
	AccessLog io.Writer

	ListingHandler    *ListingHandler
	SubmissionHandler *SubmissionHandler
	AdminHandler      *AdminHandler
}

func NewDeps(cfg config.Config, store kv.Store, blobs blob.Store, gate services.AccessGate, n notify.Notifier) *Deps {
	listingRepo := repos.NewListingRepo(store)
	subRepo := repos.NewSubmissionRepo(store)

	uploadSvc := services.NewUploadService(listingRepo, blobs, cfg.MaxAdminUploadBytes)
	subSvc := services.NewSubmissionService(subRepo, blobs, n, cfg.MaxCustomerUploadBytes)

	d := &Deps{
		Cfg:               cfg,
		Gate:              gate,
		ListingHandler:    &ListingHandler{Listings: listingRepo, Uploads: uploadSvc},
		SubmissionHandler: &SubmissionHandler{Submissions: subSvc},
		AdminHandler:      &AdminHandler{Subs: subRepo, Blobs: blobs, Uploads: uploadSvc, Gate: gate},
	}
	if fs, ok := blobs.(*blob.FSStore); ok {
		d.MediaDir = fs.Root
	}
	return d
}
