package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Tyrowin/tapwars/internal/model"
)

// IconPathPrefix is the URL prefix under which uploaded icons are served.
const IconPathPrefix = "/icons/"

// ErrNicknameBanned is returned when a banned nickname tries to change its icon.
var ErrNicknameBanned = errors.New("nickname is banned")

var iconExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadResponse is the JSON body returned by the icon upload endpoint.
type UploadResponse struct {
	OK    bool   `json:"ok"`
	Icon  string `json:"icon,omitempty"`
	Error string `json:"error,omitempty"`
}

// SetIcon records icon as nickname's icon, creating the player if needed.
// The update runs on the hub goroutine and is followed by a rankings
// broadcast so every client sees the new icon.
func (h *Hub) SetIcon(ctx context.Context, nickname, icon string) error {
	var result error
	err := h.do(ctx, func() {
		result = h.applyIcon(nickname, icon)
	})
	if err != nil {
		return err
	}
	return result
}

func (h *Hub) applyIcon(nickname, icon string) error {
	ctx, cancel := h.opContext()
	defer cancel()

	banned, err := h.store.IsBanned(ctx, nickname)
	if err != nil {
		return err
	}
	if banned {
		return ErrNicknameBanned
	}

	if _, err := h.store.SetPlayerIcon(ctx, nickname, icon); err != nil {
		return err
	}

	h.logger.Info("icon updated", slog.String("nickname", nickname), slog.String("icon", icon))
	h.broadcastPlayersAndRanks()
	return nil
}

// IconUploadHandler accepts a multipart form with "nickname" and "icon"
// fields, plus "adminToken" for the administrator. It stores the image under
// the icon directory and points the player at it.
func (s *Server) IconUploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxIconSize+(1<<20))
	if err := r.ParseMultipartForm(s.cfg.MaxIconSize); err != nil {
		s.writeUploadError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	nickname := model.NormalizeNickname(r.FormValue("nickname"))
	if nickname == "" {
		s.writeUploadError(w, http.StatusBadRequest, "nickname is required")
		return
	}
	if model.IsAdministrator(nickname) {
		if !s.hub.registry.validAdminToken(r.FormValue("adminToken")) {
			s.writeUploadError(w, http.StatusForbidden, "administrator token required")
			return
		}
		nickname = model.AdminNickname
	}

	file, _, err := r.FormFile("icon")
	if err != nil {
		s.writeUploadError(w, http.StatusBadRequest, "icon file is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxIconSize+1))
	if err != nil {
		s.writeUploadError(w, http.StatusBadRequest, "could not read icon")
		return
	}
	if int64(len(data)) > s.cfg.MaxIconSize {
		s.writeUploadError(w, http.StatusRequestEntityTooLarge, "icon is too large")
		return
	}

	ext, ok := iconExtensions[http.DetectContentType(data)]
	if !ok {
		s.writeUploadError(w, http.StatusUnsupportedMediaType, "icon must be png, jpeg, gif or webp")
		return
	}

	if err := os.MkdirAll(s.cfg.IconDir, 0o755); err != nil {
		s.logger.Error("creating icon directory failed", slog.Any("error", err))
		s.writeUploadError(w, http.StatusInternalServerError, "could not store icon")
		return
	}

	fileName := uuid.NewString() + ext
	path := filepath.Join(s.cfg.IconDir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("writing icon failed", slog.String("path", path), slog.Any("error", err))
		s.writeUploadError(w, http.StatusInternalServerError, "could not store icon")
		return
	}

	icon := IconPathPrefix + fileName
	if err := s.hub.SetIcon(r.Context(), nickname, icon); err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrNicknameBanned) {
			s.writeUploadError(w, http.StatusForbidden, "nickname is banned")
			return
		}
		s.logger.Error("updating icon failed", slog.String("nickname", nickname), slog.Any("error", err))
		s.writeUploadError(w, http.StatusInternalServerError, "could not update icon")
		return
	}

	s.writeJSON(w, http.StatusOK, UploadResponse{OK: true, Icon: icon})
}

func (s *Server) writeUploadError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, UploadResponse{OK: false, Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("error writing JSON response", slog.Any("error", err))
	}
}
