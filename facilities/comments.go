package facilities

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/auth"
	"github.com/ecobuddy/locator/httpx"
	"github.com/ecobuddy/locator/logging"
	"github.com/ecobuddy/locator/metrics"
	"github.com/ecobuddy/locator/status"
	"github.com/ecobuddy/locator/validation"
)

type commentForm struct {
	FacilityID int64  `form:"facility_id" validate:"required,gt=0"`
	Comment    string `form:"comments" validate:"required,facility_status"`
}

type commentData struct {
	FacilityID int64          `json:"facility_id"`
	Comment    status.Comment `json:"comment"`
}

type commentResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Data    *commentData `json:"data,omitempty"`
}

func commentFailure(w http.ResponseWriter, code int, message string) {
	httpx.WriteJSON(w, code, commentResponse{Success: false, Error: message})
}

// updateComment sets the status comment of one facility. It is open to
// guests holding a valid form token.
func (h *Handler) updateComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		commentFailure(w, http.StatusMethodNotAllowed, "Invalid request method.")
		return
	}

	if err := auth.CheckForm(r); err != nil {
		metrics.CommentUpdate("forbidden")
		commentFailure(w, http.StatusForbidden, "CSRF token validation failed.")
		return
	}

	form, err := parseCommentForm(r)
	if err != nil {
		metrics.CommentUpdate("invalid")
		commentFailure(w, http.StatusBadRequest, apperr.Message(err))
		return
	}

	comment, _ := status.Parse(form.Comment)
	if err := h.store.UpdateComment(r.Context(), form.FacilityID, comment); err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			metrics.CommentUpdate("not_found")
			commentFailure(w, http.StatusNotFound, apperr.Message(err))
		case errors.Is(err, apperr.ErrValidation):
			metrics.CommentUpdate("invalid")
			commentFailure(w, http.StatusBadRequest, apperr.Message(err))
		default:
			metrics.CommentUpdate("error")
			logging.Ctx(r.Context()).Error().Err(err).Int64("facility_id", form.FacilityID).Msg("comment update failed")
			commentFailure(w, http.StatusInternalServerError, "Failed to update comment.")
		}
		return
	}

	metrics.CommentUpdate("ok")
	logging.Ctx(r.Context()).Info().Int64("facility_id", form.FacilityID).Str("comment", string(comment)).Msg("comment updated")
	httpx.WriteJSON(w, http.StatusOK, commentResponse{
		Success: true,
		Message: "Comment updated successfully.",
		Data:    &commentData{FacilityID: form.FacilityID, Comment: comment},
	})
}

func parseCommentForm(r *http.Request) (commentForm, error) {
	var form commentForm
	if raw := strings.TrimSpace(r.PostFormValue("facility_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return form, apperr.Validation("facility_id must be an integer")
		}
		form.FacilityID = id
	}
	form.Comment = r.PostFormValue("comments")
	if err := validation.Struct(form); err != nil {
		return form, err
	}
	return form, nil
}
