package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/video-service/internal/auth"
	"github.com/fathima-sithara/video-service/internal/metrics"
	service "github.com/fathima-sithara/video-service/internal/services"
	"github.com/fathima-sithara/video-service/internal/utils"
)

type Handler struct {
	verifier *auth.JWTVerifier
	svc      *service.VideoService
}

func NewHandler(v *auth.JWTVerifier, svc *service.VideoService) *Handler {
	return &Handler{verifier: v, svc: svc}
}

// RegisterRoutes mounts the API on app. uploadMiddleware (rate limiting)
// runs in front of the two upload routes only.
func RegisterRoutes(app *fiber.App, h *Handler, uploadMiddleware ...fiber.Handler) {
	upload := func(hd fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, uploadMiddleware...), hd)
	}

	api := app.Group("/api")
	api.Get("/thumbnails/:videoID?", h.GetThumbnail)
	api.Post("/thumbnails/:videoID?", upload(h.UploadThumbnail)...)
	api.Post("/videos/:videoID?", upload(h.UploadVideo)...)
	api.Get("/videos/:videoID/url", h.GetSignedURL)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", metrics.Handler())
}

// videoID copies the path parameter out of fasthttp's reusable buffer; it
// outlives the request as a registry key.
func videoID(c *fiber.Ctx) string {
	return strings.Clone(c.Params("videoID"))
}

func (h *Handler) authenticate(c *fiber.Ctx) (string, error) {
	token, err := auth.GetBearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return "", utils.NewError(utils.ErrUnauthorized, "couldn't find JWT", err)
	}
	userID, err := h.verifier.VerifyToken(token)
	if err != nil {
		return "", utils.NewError(utils.ErrUnauthorized, "couldn't validate JWT", err)
	}
	return userID, nil
}

// formUpload opens the file part named field. The returned close func is
// always safe to call.
func formUpload(c *fiber.Ctx, field string) (service.Upload, func(), error) {
	noop := func() {}
	fh, err := c.FormFile(field)
	if err != nil {
		return service.Upload{}, noop, utils.NewError(utils.ErrBadRequest, "form field "+field+" must be a file", err)
	}
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, noop, utils.Internal("couldn't open form file", err)
	}
	return service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

// POST /api/thumbnails/:videoID (multipart/form-data 'thumbnail')
func (h *Handler) UploadThumbnail(c *fiber.Ctx) error {
	id := videoID(c)
	if id == "" {
		return utils.BadRequest("invalid video id")
	}
	userID, err := h.authenticate(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	video, err := h.svc.Authorize(ctx, id, userID)
	if err != nil {
		return err
	}

	up, closeFile, err := formUpload(c, "thumbnail")
	defer closeFile()
	if err != nil {
		return err
	}

	video, err = h.svc.UploadThumbnail(ctx, video, up)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, video)
}

// GET /api/thumbnails/:videoID
func (h *Handler) GetThumbnail(c *fiber.Ctx) error {
	thumb, err := h.svc.GetThumbnail(c.UserContext(), videoID(c))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, thumb.MediaType)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusOK).Send(thumb.Data)
}

// POST /api/videos/:videoID (multipart/form-data 'video')
func (h *Handler) UploadVideo(c *fiber.Ctx) error {
	id := videoID(c)
	if id == "" {
		return utils.BadRequest("invalid video id")
	}
	userID, err := h.authenticate(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	video, err := h.svc.Authorize(ctx, id, userID)
	if err != nil {
		return err
	}

	up, closeFile, err := formUpload(c, "video")
	defer closeFile()
	if err != nil {
		return err
	}

	video, err = h.svc.UploadVideo(ctx, video, up)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, video)
}

// GET /api/videos/:videoID/url -> presigned URL, owner only
func (h *Handler) GetSignedURL(c *fiber.Ctx) error {
	userID, err := h.authenticate(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	video, err := h.svc.Authorize(ctx, videoID(c), userID)
	if err != nil {
		return err
	}
	u, err := h.svc.PresignVideo(ctx, video)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"url": u})
}
