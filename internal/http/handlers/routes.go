package handlers

import (
	"time"

	applog "autolot/internal/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const defaultBodyLimit = 4 << 20

// NewApp builds the fiber app with middleware and every route registered.
func NewApp(d *Deps) *fiber.App {
	// room for one maximum-size admin upload plus multipart framing
	bodyLimit := int(d.Cfg.MaxAdminUploadBytes) + 1<<20
	if d.Cfg.MaxAdminUploadBytes <= 0 {
		bodyLimit = defaultBodyLimit
	}
	app := fiber.New(fiber.Config{
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})
	app.Use(requestid.New())
	if d.AccessLog != nil {
		app.Use(logger.New(logger.Config{Output: d.AccessLog}))
	}
	app.Use(helmet.New())

	Routes(app, d)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "route not found"})
	})
	return app
}

func Routes(app *fiber.App, d *Deps) {
	admin := RequireAdmin(d.Gate)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	if d.MediaDir != "" {
		app.Get("/media/*", Media(d.MediaDir))
	}

	// Listings
	lh := d.ListingHandler
	app.Get("/listings", lh.List)
	app.Get("/listings/:id", lh.Get)
	app.Post("/listings", admin, lh.Create)
	app.Put("/listings/:id", admin, lh.Update)
	app.Patch("/listings/:id", admin, lh.Update)
	app.Delete("/listings/:id", admin, lh.Delete)
	app.Post("/listings/:id/upload-image", admin, lh.Upload)

	// Public forms
	submitLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.submission.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many submissions, retry soon"})
		},
	})
	app.Post("/submissions/:type", submitLimiter, d.SubmissionHandler.Create)

	// Admin
	ah := d.AdminHandler
	app.Post("/admin/verify-code", ah.VerifyCode)
	g := app.Group("/admin", admin)
	g.Get("/submissions", ah.ListSubmissions)
	g.Patch("/submissions", ah.UpdateSubmissionStatus)
	g.Delete("/submissions", ah.DeleteSubmission)
	g.Get("/files", ah.ListFiles)
	g.Delete("/files", ah.DeleteFile)
	g.Post("/upload", ah.Upload)
}
