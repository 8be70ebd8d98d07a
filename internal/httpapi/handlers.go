package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/domain"
	"docchat/internal/export"
	"docchat/internal/orchestrator"
	"docchat/internal/service"
	"docchat/internal/session"
)

// ChatService is the subset of the service the handlers call.
type ChatService interface {
	Upload(ctx context.Context, uploads []domain.Upload) (service.IngestReport, error)
	Ask(ctx context.Context, question string, sink domain.TokenSink) (orchestrator.Reply, session.Snapshot)
	Delete(i int) (session.Snapshot, error)
	Refresh() session.Snapshot
	Snapshot() session.Snapshot
}

// API provides the HTTP handlers.
type API struct {
	service ChatService
	logger  *slog.Logger
}

func NewAPI(svc ChatService, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &API{service: svc, logger: logger}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

type askResponse struct {
	Answer  string           `json:"answer"`
	Intent  string           `json:"intent"`
	Cached  bool             `json:"cached"`
	Failed  bool             `json:"failed"`
	Session session.Snapshot `json:"session"`
}

func toResponse(reply orchestrator.Reply, snap session.Snapshot) askResponse {
	return askResponse{
		Answer:  reply.Text,
		Intent:  reply.Intent.String(),
		Cached:  reply.Cached,
		Failed:  reply.Failed,
		Session: snap,
	}
}

func (a *API) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UploadHandler indexes the multipart "files" of the request, replacing the
// current document set.
func (a *API) UploadHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected a multipart form with files"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}
	uploads := make([]domain.Upload, 0, len(headers))
	for _, fh := range headers {
		u, closeFn, err := openUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("read %s: %v", fh.Filename, err)})
			return
		}
		defer closeFn()
		uploads = append(uploads, u)
	}

	report, err := a.service.Upload(c.Request.Context(), uploads)
	switch {
	case errors.Is(err, domain.ErrNoDocuments):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "report": report})
	case err != nil:
		a.logger.Error("upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to index documents", "report": report})
	default:
		c.JSON(http.StatusOK, gin.H{"report": report, "session": a.service.Snapshot()})
	}
}

func openUpload(fh *multipart.FileHeader) (domain.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return domain.Upload{}, nil, err
	}
	u := domain.Upload{
		Name:     fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Body:     f,
	}
	return u, func() { _ = f.Close() }, nil
}

func (a *API) AskHandler(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	reply, snap := a.service.Ask(c.Request.Context(), req.Question, nil)
	c.JSON(http.StatusOK, toResponse(reply, snap))
}

// AskStreamHandler answers as server-sent events: one "token" event per
// increment, then a final "done" event carrying the full response.
func (a *API) AskStreamHandler(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	reply, snap := a.service.Ask(c.Request.Context(), req.Question, func(tok string) {
		c.SSEvent("token", tok)
		c.Writer.Flush()
	})
	c.SSEvent("done", toResponse(reply, snap))
	c.Writer.Flush()
}

func (a *API) SessionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.service.Snapshot())
}

func (a *API) HistoryHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"exchanges": a.service.Snapshot().Exchanges})
}

func (a *API) ClearHistoryHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.service.Refresh())
}

func (a *API) DeleteHistoryHandler(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}
	snap, err := a.service.Delete(i)
	if errors.Is(err, domain.ErrIndex) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ExportHandler returns the history as a PDF transcript.
func (a *API) ExportHandler(c *gin.Context) {
	snap := a.service.Snapshot()
	now := time.Now()
	data, err := export.Transcript(snap.Exchanges, snap.Documents, now)
	if err != nil {
		a.logger.Error("export failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render transcript"})
		return
	}
	name := "docchat-transcript-" + now.Format("20060102-150405") + ".pdf"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
