package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meimodev/activid-web-sub001/internal/guest"
	"github.com/meimodev/activid-web-sub001/internal/invitation"
	"github.com/meimodev/activid-web-sub001/internal/wish"
)

// maxBodyBytes bounds submission bodies.
const maxBodyBytes = 16 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// submitRequest is the body of POST /wishes. To falls back to the link's
// ?to= parameter.
type submitRequest struct {
	To         string `json:"to" validate:"max=128"`
	Attendance string `json:"attendance" validate:"max=16"`
	Message    string `json:"message" validate:"max=2000"`
}

// wishView is a wish as listed to guests.
type wishView struct {
	wish.Wish
	TimeAgo string `json:"timeAgo"`
}

type submitResponse struct {
	Outcome wish.Outcome `json:"outcome"`
	Wish    wishView     `json:"wish"`
	Notice  string       `json:"notice"`
}

func (s *Server) view(now time.Time, w wish.Wish) wishView {
	return wishView{Wish: w, TimeAgo: wish.TimeAgo(now, w.CreatedAt)}
}

func (s *Server) views(wishes []wish.Wish) []wishView {
	now := s.clock.Now()
	out := make([]wishView, len(wishes))
	for i, w := range wishes {
		out[i] = s.view(now, w)
	}
	return out
}

// wishesEnabled writes a 404 when the invitation has no wishes section.
func wishesEnabled(w http.ResponseWriter, inv *invitation.Invitation) bool {
	if !inv.Sections.Wishes.Enabled {
		writeError(w, http.StatusNotFound, "WISHES_DISABLED", "this invitation does not accept wishes")
		return false
	}
	return true
}

// dedupeParam reads ?dedupe=, defaulting to the invitation setting.
func dedupeParam(r *http.Request, inv *invitation.Invitation) bool {
	raw := r.URL.Query().Get("dedupe")
	if raw == "" {
		return inv.Sections.Wishes.Dedupe
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return inv.Sections.Wishes.Dedupe
	}
	return v
}

func (s *Server) handleListWishes(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.resolve(w, r)
	if !ok || !wishesEnabled(w, inv) {
		return
	}

	wishes, err := s.feed.Snapshot(r.Context(), inv.ID, dedupeParam(r, inv))
	if err != nil {
		s.logger.Warn("list wishes failed", "invitation", inv.ID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "wishes are temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wishes": s.views(wishes)})
}

func (s *Server) handleMyWish(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.resolve(w, r)
	if !ok || !wishesEnabled(w, inv) {
		return
	}

	name, _ := guest.FromQuery(r.URL.Query())
	found, err := s.wishes.Find(r.Context(), inv.ID, name)
	if wish.IsNotPersonalized(err) {
		writeError(w, http.StatusBadRequest, string(wish.ErrCodeNotPersonalized), inv.Sections.Wishes.NotPersonalized)
		return
	}
	if err != nil {
		s.logger.Warn("find wish failed", "invitation", inv.ID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "wishes are temporarily unavailable")
		return
	}

	if found == nil {
		writeJSON(w, http.StatusOK, map[string]any{"wish": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wish": s.view(s.clock.Now(), *found)})
}

func (s *Server) handleSubmitWish(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.resolve(w, r)
	if !ok || !wishesEnabled(w, inv) {
		return
	}

	var req submitRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", verrs[0].Field()+" is too long")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if req.To == "" {
		req.To, _ = guest.FromQuery(r.URL.Query())
	}

	draft := wish.Draft{
		InvitationID: inv.ID,
		Name:         req.To,
		Attendance:   wish.Attendance(req.Attendance),
		Message:      req.Message,
		NoAttendance: !inv.Sections.Wishes.Attendance,
	}

	var res *wish.Result
	var err error
	if inv.Demo {
		res, err = s.wishes.SubmitAnonymous(r.Context(), draft)
	} else {
		res, err = s.wishes.Submit(r.Context(), draft)
	}
	if err != nil {
		s.writeWishError(w, inv, err)
		return
	}

	status := http.StatusCreated
	notice := inv.Sections.Wishes.ThankYou
	if res.Outcome == wish.OutcomeAlreadyPosted {
		status = http.StatusOK
		notice = inv.Sections.Wishes.AlreadyPosted
	}
	writeJSON(w, status, submitResponse{
		Outcome: res.Outcome,
		Wish:    s.view(s.clock.Now(), *res.Wish),
		Notice:  notice,
	})
}

func (s *Server) writeWishError(w http.ResponseWriter, inv *invitation.Invitation, err error) {
	code := wish.CodeOf(err)
	switch code {
	case wish.ErrCodeNotPersonalized:
		writeError(w, http.StatusBadRequest, string(code), inv.Sections.Wishes.NotPersonalized)
	case wish.ErrCodeEmptyMessage:
		writeError(w, http.StatusBadRequest, string(code), "message is empty")
	case wish.ErrCodeInvalidAttendance:
		writeError(w, http.StatusBadRequest, string(code), "attendance must be \"hadir\" or \"tidak\"")
	case wish.ErrCodeTransient:
		writeError(w, http.StatusServiceUnavailable, string(code), inv.Sections.Wishes.Failure)
	default:
		s.logger.Error("submit wish failed", "invitation", inv.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
