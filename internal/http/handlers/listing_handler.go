package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"strconv"

	"autolot/internal/domain"
	applog "autolot/internal/log"
	"autolot/internal/repos"
	"autolot/internal/services"
	"autolot/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ListingHandler struct {
	Listings *repos.ListingRepo
	Uploads  *services.UploadService
}

// listingBody accepts numbers either as JSON numbers or as numeric strings from forms.
type listingBody struct {
	Title               *string                     `json:"title"`
	Brand               *string                     `json:"brand"`
	Description         *string                     `json:"description"`
	Year                json.RawMessage             `json:"year"`
	Price               json.RawMessage             `json:"price"`
	Mileage             json.RawMessage             `json:"mileage"`
	Condition           *string                     `json:"condition"`
	Fuel                *string                     `json:"fuel"`
	Transmission        *string                     `json:"transmission"`
	Images              *[]string                   `json:"images"`
	Video               *string                     `json:"video"`
	InspectionChecklist *domain.InspectionChecklist `json:"inspectionChecklist"`
	Status              *domain.ListingStatus       `json:"status"`
}

func optionalInt(field string, raw json.RawMessage) (*int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	n, err := validate.Int(field, raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseListing(c *fiber.Ctx) (domain.ListingPatch, error) {
	var b listingBody
	if err := json.Unmarshal(c.Body(), &b); err != nil {
		return domain.ListingPatch{}, domain.Invalid("body", "must be a JSON object")
	}
	p := domain.ListingPatch{
		Title:               b.Title,
		Brand:               b.Brand,
		Description:         b.Description,
		Condition:           b.Condition,
		Fuel:                b.Fuel,
		Transmission:        b.Transmission,
		Images:              b.Images,
		Video:               b.Video,
		InspectionChecklist: b.InspectionChecklist,
		Status:              b.Status,
	}
	var err error
	if p.Price, err = optionalInt("price", b.Price); err != nil {
		return p, err
	}
	if p.Mileage, err = optionalInt("mileage", b.Mileage); err != nil {
		return p, err
	}
	year, err := optionalInt("year", b.Year)
	if err != nil {
		return p, err
	}
	if year != nil {
		y := int(*year)
		p.Year = &y
	}
	return p, nil
}

// GET /listings?status=available&limit=6
func (h *ListingHandler) List(c *fiber.Ctx) error {
	all, err := h.Listings.List(c.UserContext())
	if err != nil {
		return fail(c, "listing.list", err)
	}
	if s := domain.ListingStatus(c.Query("status")); s != "" {
		if !s.Valid() {
			return fail(c, "listing.list", domain.Invalid("status", "unknown listing status"))
		}
		filtered := all[:0]
		for _, l := range all {
			if l.Status == s {
				filtered = append(filtered, l)
			}
		}
		all = filtered
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fail(c, "listing.list", domain.Invalid("limit", "must be a non-negative integer"))
		}
		if n < len(all) {
			all = all[:n]
		}
	}
	return c.JSON(all)
}

// GET /listings/:id
func (h *ListingHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "listing.get", domain.ErrNotFound)
	}
	l, err := h.Listings.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, "listing.get", err)
	}
	return c.JSON(l)
}

// POST /listings
func (h *ListingHandler) Create(c *fiber.Ctx) error {
	p, err := parseListing(c)
	if err != nil {
		return fail(c, "listing.create", err)
	}
	l, err := h.Listings.Create(c.UserContext(), p)
	if err != nil {
		return fail(c, "listing.create", err)
	}
	applog.Audit(c, "listing.create", map[string]any{"id": l.ID, "title": l.Title})
	return c.Status(fiber.StatusCreated).JSON(l)
}

// PUT|PATCH /listings/:id
func (h *ListingHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "listing.update", domain.ErrNotFound)
	}
	p, err := parseListing(c)
	if err != nil {
		return fail(c, "listing.update", err)
	}
	l, err := h.Listings.Update(c.UserContext(), id, p)
	if err != nil {
		return fail(c, "listing.update", err)
	}
	applog.Audit(c, "listing.update", map[string]any{"id": id})
	return c.JSON(l)
}

// DELETE /listings/:id
func (h *ListingHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "listing.delete", domain.ErrNotFound)
	}
	if err := h.Listings.Delete(c.UserContext(), id); err != nil {
		return fail(c, "listing.delete", err)
	}
	applog.Audit(c, "listing.delete", map[string]any{"id": id})
	return c.JSON(fiber.Map{"ok": true})
}

// POST /listings/:id/upload-image  (multipart: file[], video)
func (h *ListingHandler) Upload(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "listing.upload", domain.ErrNotFound)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return fail(c, "listing.upload", domain.Invalid("body", "must be multipart form data"))
	}
	var closers []io.Closer
	defer func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}()
	var files []services.MediaFile
	add := func(fh *multipart.FileHeader, video bool) error {
		f, err := fh.Open()
		if err != nil {
			return err
		}
		closers = append(closers, f)
		files = append(files, services.MediaFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
			Video:       video,
		})
		return nil
	}
	for _, fh := range form.File["file"] {
		if err := add(fh, false); err != nil {
			return fail(c, "listing.upload", err)
		}
	}
	for _, fh := range form.File["video"] {
		if err := add(fh, true); err != nil {
			return fail(c, "listing.upload", err)
		}
	}

	res, err := h.Uploads.AttachMedia(c.UserContext(), id, files)
	fields := map[string]any{"id": id, "succeeded": len(res.Succeeded), "failed": len(res.Failed)}
	switch {
	case err == nil:
		applog.Audit(c, "listing.upload", fields)
		return c.JSON(res)
	case errors.Is(err, domain.ErrUploadPartial):
		applog.Audit(c, "listing.upload.partial", fields)
		return c.Status(fiber.StatusMultiStatus).JSON(res)
	case len(res.Succeeded) > 0:
		// blobs exist but the listing was not updated; report them so the caller can retry or clean up
		applog.Error(c, "listing.upload.attach.fail", err, fields)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":     "files uploaded but the listing could not be updated",
			"succeeded": res.Succeeded,
			"failed":    res.Failed,
		})
	}
	return fail(c, "listing.upload", err)
}
