package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/avatar-service/internal/domain"
	"github.com/weiawesome/avatar-service/internal/service"
	"github.com/weiawesome/avatar-service/internal/validation"
	"github.com/weiawesome/avatar-service/pkg/log"
	"github.com/weiawesome/avatar-service/pkg/response"
)

// Response messages.
const (
	msgCreated          = "Avatar created successfully!"
	msgUpdated          = "Avatar updated successfully!"
	msgDeleted          = "Avatar deleted successfully!"
	msgImageUpdated     = "Avatar image updated successfully!"
	msgValidationFailed = "Field validation failed!"
	msgInsufficientData = "At least one field (name, gender, description, heightInCM) must be provided for update."
	msgImageMissing     = "image not found in request"
	msgInvalidBody      = "Request body must be a JSON object."
	msgImageTooLarge    = "image exceeds the upload size limit"
)

const (
	detailBadRequest    = "bad request"
	detailInsufficient  = "insufficient data"
	detailPayloadTooBig = "payload too large"
)

const (
	imageFormField       = "image"
	defaultMaxUploadSize = 10 << 20
)

// Handler handles HTTP requests for avatar service.
type Handler struct {
	avatarService  service.AvatarService
	maxUploadBytes int64
}

// NewHandler creates a new HTTP handler. maxUploadBytes <= 0 means 10 MiB.
func NewHandler(avatarService service.AvatarService, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadSize
	}
	return &Handler{
		avatarService:  avatarService,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/health", h.Health)

		avatars := api.Group("/avatar")
		{
			avatars.GET("", h.ListAvatars)
			avatars.GET("/", h.ListAvatars)
			avatars.POST("", h.CreateAvatar)
			avatars.POST("/", h.CreateAvatar)
			avatars.GET("/:avatarID", h.GetAvatar)
			avatars.PATCH("/:avatarID", h.UpdateAvatar)
			avatars.DELETE("/:avatarID", h.DeleteAvatar)
			avatars.PATCH("/img/:avatarID", h.UpdateAvatarImage)
		}
	}
}

// Health reports liveness as plain text.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "Running...")
}

// CreateAvatar creates a new avatar.
func (h *Handler) CreateAvatar(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.CreateAvatarRequest
	if !h.bindJSON(c, &req) {
		return
	}

	avatar, err := h.avatarService.CreateAvatar(ctx, &req)
	if err != nil {
		h.writeError(c, "", err)
		return
	}

	response.Created(c, msgCreated, domain.AvatarEnvelope{Avatar: avatar})
}

// ListAvatars lists available avatars with pagination.
func (h *Handler) ListAvatars(c *gin.Context) {
	ctx := c.Request.Context()

	page := queryInt(c, "page", service.DefaultPage)
	limit := queryInt(c, "limit", service.DefaultLimit)

	result, err := h.avatarService.ListAvatars(ctx, page, limit)
	if err != nil {
		h.writeError(c, "", err)
		return
	}

	response.Success(c, "", result)
}

// GetAvatar retrieves an avatar by ID.
func (h *Handler) GetAvatar(c *gin.Context) {
	avatarID := c.Param("avatarID")
	ctx := log.WithAvatarID(c.Request.Context(), avatarID)

	avatar, err := h.avatarService.GetAvatar(ctx, avatarID)
	if err != nil {
		h.writeError(c, avatarID, err)
		return
	}

	response.Success(c, "", domain.AvatarEnvelope{Avatar: avatar})
}

// UpdateAvatar updates the supplied fields of an avatar.
func (h *Handler) UpdateAvatar(c *gin.Context) {
	avatarID := c.Param("avatarID")
	ctx := log.WithAvatarID(c.Request.Context(), avatarID)

	var req domain.UpdateAvatarRequest
	if !h.bindJSON(c, &req) {
		return
	}

	avatar, err := h.avatarService.UpdateAvatar(ctx, avatarID, &req)
	if err != nil {
		h.writeError(c, avatarID, err)
		return
	}

	response.Success(c, msgUpdated, domain.AvatarEnvelope{Avatar: avatar})
}

// DeleteAvatar deletes an avatar.
func (h *Handler) DeleteAvatar(c *gin.Context) {
	avatarID := c.Param("avatarID")
	ctx := log.WithAvatarID(c.Request.Context(), avatarID)

	avatar, err := h.avatarService.DeleteAvatar(ctx, avatarID)
	if err != nil {
		h.writeError(c, avatarID, err)
		return
	}

	response.Success(c, msgDeleted, domain.AvatarEnvelope{Avatar: avatar})
}

// UpdateAvatarImage replaces the avatar image with the multipart file "image".
func (h *Handler) UpdateAvatarImage(c *gin.Context) {
	avatarID := c.Param("avatarID")
	ctx := log.WithAvatarID(c.Request.Context(), avatarID)
	l := log.Ctx(ctx)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	raw, err := h.readImage(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, msgImageTooLarge, detailPayloadTooBig)
			return
		}
		// A missing or unreadable part is reported after the avatar lookup.
		l.Debug().Err(err).Msg("no image in request")
	}

	avatar, err := h.avatarService.UpdateAvatarImage(ctx, avatarID, raw)
	if err != nil {
		h.writeError(c, avatarID, err)
		return
	}

	response.Success(c, msgImageUpdated, domain.AvatarEnvelope{Avatar: avatar})
}

func (h *Handler) readImage(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile(imageFormField)
	if err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// bindJSON decodes the body into req. An empty body decodes to the zero
// value; type mismatches become field errors.
func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	log.Ctx(c.Request.Context()).Warn().Err(err).Msg("failed to bind request body")

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		response.BadRequest(c, msgValidationFailed, validation.FieldError(typeErr.Field, expectedType(typeErr.Type)))
		return false
	}

	response.BadRequest(c, msgInvalidBody, detailBadRequest)
	return false
}

func expectedType(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "Expected number."
	case reflect.String:
		return "Expected string."
	default:
		return "Invalid value."
	}
}

// writeError maps service errors onto the response envelope.
func (h *Handler) writeError(c *gin.Context, avatarID string, err error) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		response.BadRequest(c, msgValidationFailed, verrs)
	case errors.Is(err, service.ErrInsufficientData):
		response.BadRequest(c, msgInsufficientData, detailInsufficient)
	case errors.Is(err, service.ErrImageMissing):
		response.BadRequest(c, msgImageMissing, detailBadRequest)
	case errors.Is(err, service.ErrAvatarNotFound):
		response.NotFound(c, fmt.Sprintf("Avatar with ID [%s] does not exist.", avatarID))
	case errors.Is(err, service.ErrAvatarNotAccessible):
		response.Forbidden(c, fmt.Sprintf("Avatar with ID [%s] not available.", avatarID))
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldAvatarID, avatarID).Str(log.FieldRoute, c.FullPath()).Msg("avatar request failed")
		response.InternalError(c)
	}
}

// queryInt parses the leading digits of a query parameter, so "2abc" reads
// as 2. Values that are missing, below 1 or out of range fall back to def.
func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimLeft(c.Query(key), " \t\n\r")
	if raw != "" && raw[0] == '+' {
		raw = raw[1:]
	}

	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}

	v, err := strconv.Atoi(raw[:end])
	if err != nil || v < 1 {
		return def
	}
	return v
}
