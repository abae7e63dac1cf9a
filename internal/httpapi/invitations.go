package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/meimodev/activid-web-sub001/internal/guest"
	"github.com/meimodev/activid-web-sub001/internal/invitation"
	"github.com/meimodev/activid-web-sub001/internal/photos"
	"github.com/meimodev/activid-web-sub001/internal/share"
)

// QR edge length bounds in pixels.
const (
	minQRSize = 128
	maxQRSize = 1024
)

type guestView struct {
	Name         string `json:"name,omitempty"`
	Personalized bool   `json:"personalized"`
}

type invitationResponse struct {
	Invitation *invitation.Invitation `json:"invitation"`
	Background []photos.Photo         `json:"background"`
	Guest      guestView              `json:"guest"`
}

func (s *Server) handleInvitation(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.resolve(w, r)
	if !ok {
		return
	}

	background, err := photos.Background(r.Context(), s.photos, inv)
	if err != nil {
		s.logger.Warn("background photos unavailable", "invitation", inv.ID, "error", err)
		background = []photos.Photo{}
	}

	name, _ := guest.FromQuery(r.URL.Query())
	writeJSON(w, http.StatusOK, invitationResponse{
		Invitation: inv,
		Background: background,
		Guest:      guestView{Name: name, Personalized: guest.Personalized(name)},
	})
}

func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.resolve(w, r)
	if !ok {
		return
	}

	background, err := photos.Background(r.Context(), s.photos, inv)
	if err != nil {
		s.logger.Warn("background photos unavailable", "invitation", inv.ID, "error", err)
		writeError(w, http.StatusBadGateway, "PHOTOS_UNAVAILABLE", "photo library is unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"photos": background})
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.resolve(w, r)
	if !ok {
		return
	}

	name, _ := guest.FromQuery(r.URL.Query())
	link, err := share.Link(s.cfg.BaseURL, inv.ID, name)
	if errors.Is(err, share.ErrNotPersonalized) {
		writeError(w, http.StatusBadRequest, "NOT_PERSONALIZED", "guest name has no letters or digits")
		return
	}
	if err != nil {
		s.logger.Error("build link failed", "invitation", inv.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "could not build link")
		return
	}

	size := share.DefaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			writeError(w, http.StatusBadRequest, "INVALID_SIZE", "size must be between 128 and 1024")
			return
		}
		size = n
	}

	png, err := share.QRPNG(link, size)
	if err != nil {
		s.logger.Error("qr encode failed", "invitation", inv.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "could not encode qr code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
