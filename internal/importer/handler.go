package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockroom/internal/platform/httpx"
)

// Archiver keeps a copy of each uploaded file.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) (string, error)
}

// Handler exposes the upload and status endpoints.
type Handler struct {
	logger   *slog.Logger
	importer *Importer
	archiver Archiver
	maxBytes int64
}

// NewHandler constructs the import handler. archiver may be nil.
func NewHandler(logger *slog.Logger, importer *Importer, archiver Archiver, maxBytes int64) *Handler {
	return &Handler{logger: logger, importer: importer, archiver: archiver, maxBytes: maxBytes}
}

// MountRoutes registers import routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/import", h.handleImport)
	r.Get("/api/import/status", h.handleStatus)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.JSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "File too large"})
			return
		}
		httpx.JSON(w, http.StatusBadRequest, map[string]string{"error": "No file uploaded"})
		return
	}
	defer file.Close()
	if strings.TrimSpace(header.Filename) == "" {
		httpx.JSON(w, http.StatusBadRequest, map[string]string{"error": "No file selected"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("read upload failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "could not read uploaded file")
		return
	}

	// The run continues if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	var archiveKey string
	if h.archiver != nil {
		archiveKey, err = h.archiver.Archive(ctx, header.Filename, data)
		if err != nil {
			h.logger.Warn("archive upload failed", slog.Any("error", err), slog.String("file", header.Filename))
		}
	}

	result, err := h.importer.Import(ctx, bytes.NewReader(data))
	if err != nil {
		h.logger.Error("import failed", slog.Any("error", err), slog.String("file", header.Filename))
		httpx.Problem(w, http.StatusInternalServerError, "Import Failed", err.Error())
		return
	}
	body := map[string]any{
		"success":       true,
		"message":       fmt.Sprintf("Successfully imported %d records. %d errors.", result.SuccessCount, result.ErrorCount),
		"success_count": result.SuccessCount,
		"error_count":   result.ErrorCount,
	}
	if archiveKey != "" {
		body["archive_key"] = archiveKey
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.importer.Status(r.Context())
	if err != nil {
		h.logger.Error("read import status failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}
