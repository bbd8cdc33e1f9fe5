package handlers

import (
	"encoding/json"

	"autolot/internal/domain"
	"autolot/internal/services"

	"github.com/gofiber/fiber/v2"
)

type SubmissionHandler struct {
	Submissions *services.SubmissionService
}

// POST /submissions/:type
// JSON body {email, ...type fields}; file-upload takes multipart (email, file, description, productId).
func (h *SubmissionHandler) Create(c *fiber.Ctx) error {
	t := domain.SubmissionType(c.Params("type"))
	if !t.Valid() {
		return fail(c, "submission.create", domain.Invalid("type", "unknown submission type"))
	}
	if t == domain.TypeFileUpload {
		return h.createFile(c)
	}

	var head struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(c.Body(), &head); err != nil {
		return fail(c, "submission.create", domain.Invalid("body", "must be a JSON object"))
	}
	data, err := domain.DecodePayload(t, c.Body())
	if err != nil {
		return fail(c, "submission.create", domain.Invalid("data", "does not match the submission type"))
	}
	s, err := h.Submissions.Submit(c.UserContext(), head.Email, data)
	if err != nil {
		return fail(c, "submission.create", err)
	}
	return c.Status(fiber.StatusCreated).JSON(s)
}

func (h *SubmissionHandler) createFile(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, "submission.file", domain.Invalid("file", "is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, "submission.file", err)
	}
	defer f.Close()

	s, err := h.Submissions.SubmitFile(c.UserContext(), c.FormValue("email"), services.CustomerFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
		Description: c.FormValue("description"),
		ProductID:   c.FormValue("productId"),
	})
	if err != nil {
		return fail(c, "submission.file", err)
	}
	return c.Status(fiber.StatusCreated).JSON(s)
}
