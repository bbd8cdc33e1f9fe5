package handlers

import (
	"encoding/json"

	"autolot/internal/domain"
	applog "autolot/internal/log"
	"autolot/internal/repos"
	"autolot/internal/services"
	"autolot/internal/storage/blob"
	"autolot/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	Subs    *repos.SubmissionRepo
	Blobs   blob.Store
	Uploads *services.UploadService
	Gate    services.AccessGate
}

// bodyOrQuery reads key from the query string, falling back to a JSON body field.
func bodyOrQuery(c *fiber.Ctx, key string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	var m map[string]any
	if json.Unmarshal(c.Body(), &m) == nil {
		if s, ok := m[key].(string); ok {
			return s
		}
	}
	return ""
}

// POST /admin/verify-code {code}
func (h *AdminHandler) VerifyCode(c *fiber.Ctx) error {
	if g, ok := h.Gate.(interface{ Configured() bool }); ok && !g.Configured() {
		applog.Error(c, "admin.verify.unconfigured", nil, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "admin access is not configured"})
	}
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(c.Body(), &body)
	if !h.Gate.Verify(body.Code) {
		applog.Security(c, "admin.verify.denied", nil)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"valid": false})
	}
	applog.Audit(c, "admin.verify", nil)
	return c.JSON(fiber.Map{"valid": true})
}

// GET /admin/submissions?type=inquiry
func (h *AdminHandler) ListSubmissions(c *fiber.Ctx) error {
	subs, err := h.Subs.List(c.UserContext(), domain.SubmissionType(c.Query("type")))
	if err != nil {
		return fail(c, "admin.submissions.list", err)
	}
	return c.JSON(subs)
}

// PATCH /admin/submissions {id, status}
func (h *AdminHandler) UpdateSubmissionStatus(c *fiber.Ctx) error {
	var body struct {
		ID     string                  `json:"id"`
		Status domain.SubmissionStatus `json:"status"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return fail(c, "admin.submissions.status", domain.Invalid("body", "must be a JSON object"))
	}
	id, ok := validate.ID(body.ID)
	if !ok {
		return fail(c, "admin.submissions.status", domain.Invalid("id", "is required"))
	}
	if err := h.Subs.UpdateStatus(c.UserContext(), id, body.Status); err != nil {
		return fail(c, "admin.submissions.status", err)
	}
	applog.Audit(c, "admin.submissions.status", map[string]any{"id": id, "status": body.Status})
	return c.JSON(fiber.Map{"ok": true})
}

// DELETE /admin/submissions?id=...
func (h *AdminHandler) DeleteSubmission(c *fiber.Ctx) error {
	id, ok := validate.ID(bodyOrQuery(c, "id"))
	if !ok {
		return fail(c, "admin.submissions.delete", domain.Invalid("id", "is required"))
	}
	if err := h.Subs.Delete(c.UserContext(), id); err != nil {
		return fail(c, "admin.submissions.delete", err)
	}
	applog.Audit(c, "admin.submissions.delete", map[string]any{"id": id})
	return c.JSON(fiber.Map{"ok": true})
}

// GET /admin/files?prefix=uploads/
func (h *AdminHandler) ListFiles(c *fiber.Ctx) error {
	files, err := h.Blobs.List(c.UserContext(), c.Query("prefix", "uploads/"))
	if err != nil {
		return fail(c, "admin.files.list", err)
	}
	return c.JSON(files)
}

// DELETE /admin/files?pathname=...
func (h *AdminHandler) DeleteFile(c *fiber.Ctx) error {
	p := bodyOrQuery(c, "pathname")
	if p == "" {
		return fail(c, "admin.files.delete", domain.Invalid("pathname", "is required"))
	}
	if err := h.Blobs.Delete(c.UserContext(), p); err != nil {
		return fail(c, "admin.files.delete", err)
	}
	applog.Audit(c, "admin.files.delete", map[string]any{"pathname": p})
	return c.JSON(fiber.Map{"ok": true})
}

// POST /admin/upload (multipart: file, prefix)
func (h *AdminHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, "admin.upload", domain.Invalid("file", "is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, "admin.upload", err)
	}
	defer f.Close()

	sf, err := h.Uploads.UploadRaw(c.UserContext(), c.FormValue("prefix"), services.MediaFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return fail(c, "admin.upload", err)
	}
	applog.Audit(c, "admin.upload", map[string]any{"pathname": sf.Pathname, "size": sf.Size})
	return c.Status(fiber.StatusCreated).JSON(sf)
}
