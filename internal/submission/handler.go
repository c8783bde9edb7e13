// File: internal/submission/handler.go
package submission

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/config"
	"marketplace_backend/internal/draft"
	"marketplace_backend/internal/upload"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	draftField     = "draft"
	imageField     = "image"
	documentPrefix = "documents["
)

// Submitter is implemented by *Orchestrator.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (*Result, error)
}

// DraftSource supplies the autosaved draft when the form carries none.
type DraftSource interface {
	Current(ctx context.Context, userID string) (*draft.SessionView, error)
}

// Handler struct holds dependencies for submission handlers.
type Handler struct {
	submitter Submitter
	drafts    DraftSource
	maxBytes  int64
	logger    *zap.Logger
}

// NewHandler creates a new submission handler.
func NewHandler(submitter Submitter, drafts DraftSource, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		submitter: submitter,
		drafts:    drafts,
		maxBytes:  cfg.MaxUploadSizeMB << 20,
		logger:    logger,
	}
}

// RegisterRoutes sets up POST /listings.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	router.POST("/listings", authMW, h.submit)
}

func (h *Handler) submit(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == "" {
		common.RespondWithError(c, ErrUnauthenticated)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		h.logger.Warn("Submit listing: failed to parse multipart form", zap.Error(err), zap.String("userID", userID))
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request format or files too large."))
		return
	}
	defer func() {
		if c.Request.MultipartForm != nil {
			_ = c.Request.MultipartForm.RemoveAll()
		}
	}()

	d, err := h.readDraft(c, userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	req := SubmitRequest{Draft: d}

	form := c.Request.MultipartForm
	if files := form.File[imageField]; len(files) > 0 {
		img, err := upload.FromFileHeader(files[0])
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("The listing image could not be read."))
			return
		}
		req.Image = &img
	}

	keys := make([]string, 0, len(form.File))
	for field := range form.File {
		if strings.HasPrefix(field, documentPrefix) && strings.HasSuffix(field, "]") {
			keys = append(keys, field)
		}
	}
	sort.Strings(keys)
	for _, field := range keys {
		key := strings.TrimSuffix(strings.TrimPrefix(field, documentPrefix), "]")
		if key == "" || len(form.File[field]) == 0 {
			continue
		}
		f, err := upload.FromFileHeader(form.File[field][0])
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("Document "+key+" could not be read."))
			return
		}
		req.Documents = append(req.Documents, upload.DocumentUpload{Key: key, File: f})
	}

	result, err := h.submitter.Submit(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Listing submitted for review.", result)
}

// readDraft prefers the draft sent with the form and falls back to the
// seller's autosaved draft.
func (h *Handler) readDraft(c *gin.Context, userID string) (*draft.Draft, error) {
	if raw := strings.TrimSpace(c.Request.FormValue(draftField)); raw != "" {
		d := &draft.Draft{}
		if err := d.Apply([]byte(raw)); err != nil {
			return nil, common.ErrBadRequest.WithDetails("The draft could not be read: " + err.Error())
		}
		return d, nil
	}
	if h.drafts == nil {
		return nil, common.ErrBadRequest.WithDetails("A listing draft is required.")
	}
	view, err := h.drafts.Current(c.Request.Context(), userID)
	if err != nil {
		return nil, err
	}
	d := view.Draft
	return &d, nil
}
