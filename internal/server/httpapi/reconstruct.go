package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/platerecon/internal/common"
)

const (
	uploadField = "file"
	// Room for multipart boundaries and part headers on top of the file.
	multipartOverhead = 64 << 10
)

func (h *Handler) reconstruct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)

	// Checked before reading the upload so clients find out early.
	if !h.models.IsLoaded() {
		h.writeError(ctx, w, common.ErrModelNotReady)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeDetail(ctx, w, http.StatusRequestEntityTooLarge, h.tooLargeDetail())
			return
		}
		h.writeDetail(ctx, w, http.StatusBadRequest, "Missing file upload")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		h.writeDetail(ctx, w, http.StatusBadRequest, "File must be an image")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.writeDetail(ctx, w, http.StatusBadRequest, "Could not read upload")
		return
	}
	if int64(len(raw)) > h.maxUploadBytes {
		h.writeDetail(ctx, w, http.StatusRequestEntityTooLarge, h.tooLargeDetail())
		return
	}

	rec, err := h.reconstructor.Reconstruct(ctx, user, raw, contentType)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(rec.PNG)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="reconstructed_%s.png"`, baseName(header.Filename)))
	w.Header().Set("X-User-ID", strconv.FormatInt(user.ID, 10))
	w.Header().Set("X-Reconstruction-ID", rec.ID.String())
	w.Header().Set("X-Image-Digest", rec.Digest)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(rec.PNG); err != nil {
		h.logger.Warn(ctx, "write image failed", "error", err)
	}
}

func (h *Handler) tooLargeDetail() string {
	return fmt.Sprintf("File too large. Maximum size is %dMB", h.maxUploadBytes>>20)
}

// baseName returns the upload name without directory and extension, safe to
// embed in a quoted header parameter.
func baseName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "image"
	}
	return name
}
