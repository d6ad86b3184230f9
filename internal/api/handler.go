package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/forPelevin/sportsight/internal/apperr"
	"github.com/forPelevin/sportsight/internal/config"
	"github.com/forPelevin/sportsight/internal/pipeline"
	"github.com/forPelevin/sportsight/internal/results"
	"github.com/forPelevin/sportsight/internal/types"
	"github.com/forPelevin/sportsight/internal/usecase"
)

// RunFunc executes one pipeline run. pipeline.Run satisfies it.
type RunFunc func(ctx context.Context, cfg config.Config, log *zap.Logger) (types.Manifest, error)

type Handler struct {
	cfg config.Config
	log *zap.Logger
	run RunFunc

	// busy rejects a second /run or /upload while one run is executing.
	busy sync.Mutex
}

func NewHandler(cfg config.Config, log *zap.Logger, run RunFunc) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if run == nil {
		run = pipeline.Run
	}
	return &Handler{cfg: cfg, log: log, run: run}
}

func (h *Handler) Upload(c *gin.Context) {
	if !h.busy.TryLock() {
		fail(c, apperr.New(apperr.CodeRunInProgress, "a run is in progress"))
		return
	}
	defer h.busy.Unlock()

	if limit := h.cfg.Server.MaxUploadMB << 20; limit > 0 {
		if c.Request.ContentLength > limit {
			fail(c, apperr.New(apperr.CodeUploadTooLarge, "upload too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	file, err := c.FormFile("video")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, apperr.Wrap(apperr.CodeUploadTooLarge, "upload too large", err))
			return
		}
		fail(c, apperr.Wrap(apperr.CodeUploadMissing, "no video file part", err))
		return
	}
	if file.Size == 0 || file.Filename == "" {
		fail(c, apperr.New(apperr.CodeUploadMissing, "empty video file"))
		return
	}

	dst := h.cfg.Paths.Input
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		fail(c, apperr.Wrap(apperr.CodeUploadWrite, "create input dir", err))
		return
	}
	tmp := dst + ".part"
	if err := c.SaveUploadedFile(file, tmp); err != nil {
		_ = os.Remove(tmp)
		fail(c, apperr.Wrap(apperr.CodeUploadWrite, "store upload", err))
		return
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		fail(c, apperr.Wrap(apperr.CodeUploadWrite, "store upload", err))
		return
	}

	h.log.Info("video uploaded", zap.String("name", file.Filename), zap.Int64("bytes", file.Size), zap.String("path", dst))
	success(c, gin.H{"path": dst, "bytes": file.Size})
}

func (h *Handler) Run(c *gin.Context) {
	if !h.busy.TryLock() {
		fail(c, apperr.New(apperr.CodeRunInProgress, "a run is already in progress"))
		return
	}
	defer h.busy.Unlock()

	m, err := h.run(c.Request.Context(), h.cfg, h.log)
	if err != nil {
		fail(c, runError(err))
		return
	}
	success(c, m)
}

func runError(err error) *apperr.AppError {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.CodeRunCancelled, "run cancelled", err)
	case errors.Is(err, pipeline.ErrRunInProgress):
		return apperr.Wrap(apperr.CodeRunInProgress, "a run is already in progress", err)
	case errors.Is(err, usecase.ErrSourceUnreadable):
		return apperr.Wrap(apperr.CodeSourceUnreadable, "source video unreadable", err)
	case errors.Is(err, usecase.ErrNoSignal):
		return apperr.Wrap(apperr.CodeNoSignal, "no motion detected", err)
	case errors.Is(err, usecase.ErrNoHighlights):
		return apperr.Wrap(apperr.CodeNoHighlights, "no highlights found", err)
	case errors.Is(err, usecase.ErrClipExtraction):
		return apperr.Wrap(apperr.CodeClipExtraction, "clip extraction failed", err)
	default:
		return apperr.Wrap(apperr.CodeRunFailed, "run failed", err)
	}
}

func (h *Handler) Results(c *gin.Context) {
	items, err := results.List(h.cfg.Paths.ClipsDir, h.cfg.Paths.CaptionsDir, func(name string) string {
		return "/clips/" + name
	})
	if err != nil {
		fail(c, apperr.Wrap(apperr.CodeResultsRead, "read results", err))
		return
	}
	success(c, items)
}

var clipNameRE = regexp.MustCompile(`^clip_\d+\.mp4$`)

func (h *Handler) Clip(c *gin.Context) {
	name := c.Param("name")
	if name != filepath.Base(name) || !clipNameRE.MatchString(name) {
		fail(c, apperr.New(apperr.CodeNotFound, "clip not found"))
		return
	}
	p := filepath.Join(h.cfg.Paths.ClipsDir, name)
	if st, err := os.Stat(p); err != nil || st.IsDir() {
		fail(c, apperr.New(apperr.CodeNotFound, "clip not found"))
		return
	}
	c.File(p)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
