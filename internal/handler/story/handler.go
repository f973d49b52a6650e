package story

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coauthor/backend/internal/model/story"
	authservice "github.com/coauthor/backend/internal/service/auth"
	"github.com/coauthor/backend/internal/service/export"
	storyservice "github.com/coauthor/backend/internal/service/story"
	"github.com/coauthor/backend/pkg/utils"
)

// Handler exposes the story collection endpoints. Every route resolves the
// owning user from the active session.
type Handler struct {
	stories *storyservice.Service
	authSvc *authservice.Service
}

// New creates the story handler.
func New(stories *storyservice.Service, authSvc *authservice.Service) *Handler {
	return &Handler{stories: stories, authSvc: authSvc}
}

// RegisterRoutes registers the story routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stories", h.handleList)
	r.Post("/stories", h.handleCreate)
	r.Route("/stories/{storyID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Patch("/", h.handleUpdate)
		r.Get("/export", h.handleExport)
		r.Post("/turns", h.handleSubmitTurn)
		r.Patch("/messages/{messageID}", h.handleEditMessage)
		r.Post("/messages/{messageID}/regenerate", h.handleRegenerate)
		r.Post("/memory", h.handleAddMemory)
		r.Patch("/memory/{memoryID}", h.handleUpdateMemory)
		r.Delete("/memory/{memoryID}", h.handleRemoveMemory)
	})
}

func (h *Handler) currentUserID(w http.ResponseWriter) (string, bool) {
	session, ok := h.authSvc.Current()
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return "", false
	}
	return session.User.ID, true
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storyservice.ErrStoryNotFound),
		errors.Is(err, storyservice.ErrMessageNotFound),
		errors.Is(err, storyservice.ErrMemoryNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storyservice.ErrGenerationInFlight):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storyservice.ErrGeneratorUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w)
	if !ok {
		return
	}

	stories, err := h.stories.Stories(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, stories)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w)
	if !ok {
		return
	}

	var payload struct {
		Setting     string `json:"setting"`
		Vibe        string `json:"vibe"`
		Protagonist string `json:"protagonist"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Setting == "" || payload.Vibe == "" || payload.Protagonist == "" {
		utils.RespondError(w, http.StatusBadRequest, "setting, vibe and protagonist are required")
		return
	}

	st, err := h.stories.CreateStory(r.Context(), userID, story.Setup{
		Setting:     payload.Setting,
		Vibe:        payload.Vibe,
		Protagonist: payload.Protagonist,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, st)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w)
	if !ok {
		return
	}

	st, err := h.stories.Story(r.Context(), userID, chi.URLParam(r, "storyID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, st)
}

// handleUpdate applies title and setup changes. Both fields are optional;
// absent fields are left alone.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w)
	if !ok {
		return
	}
	storyID := chi.URLParam(r, "storyID")

	var payload struct {
		Title *string      `json:"title"`
		Setup *story.Setup `json:"setup"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Title == nil && payload.Setup == nil {
		utils.RespondError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	var (
		st  story.Story
		err error
	)
	if payload.Title != nil {
		st, err = h.stories.RenameStory(r.Context(), userID, storyID, *payload.Title)
		if err != nil {
			respondServiceError(w, err)
			return
		}
	}
	if payload.Setup != nil {
		st, err = h.stories.UpdateSetup(r.Context(), userID, storyID, *payload.Setup)
		if err != nil {
			respondServiceError(w, err)
			return
		}
	}
	utils.RespondJSON(w, http.StatusOK, st)
}

func (h *Handler) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	st, err := h.stories.SubmitTurn(r.Context(), userID, chi.URLParam(r, "storyID"), payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, st)
}

func (h *Handler) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.stories.EditMessage(r.Context(), userID,
		chi.URLParam(r, "storyID"), chi.URLParam(r, "messageID"), payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, st)
}

func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w)
	if !ok {
		return
	}

	st, err := h.stories.Regenerate(r.Context(), userID,
		chi.URLParam(r, "storyID"), chi.URLParam(r, "messageID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, st)
}

func (h *Handler) handleAddMemory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w)
	if !ok {
		return
	}

	memory, err := h.stories.AddMemory(r.Context(), userID, chi.URLParam(r, "storyID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, memory)
}

// handleUpdateMemory changes a memory's text, active flag, or both.
func (h *Handler) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w)
	if !ok {
		return
	}
	storyID := chi.URLParam(r, "storyID")
	memoryID := chi.URLParam(r, "memoryID")

	var payload struct {
		Text   *string `json:"text"`
		Active *bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Text == nil && payload.Active == nil {
		utils.RespondError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	if payload.Text != nil {
		if err := h.stories.UpdateMemory(r.Context(), userID, storyID, memoryID, *payload.Text); err != nil {
			respondServiceError(w, err)
			return
		}
	}
	if payload.Active != nil {
		if err := h.stories.SetMemoryActive(r.Context(), userID, storyID, memoryID, *payload.Active); err != nil {
			respondServiceError(w, err)
			return
		}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleRemoveMemory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w)
	if !ok {
		return
	}

	err := h.stories.RemoveMemory(r.Context(), userID,
		chi.URLParam(r, "storyID"), chi.URLParam(r, "memoryID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(w)
	if !ok {
		return
	}

	st, err := h.stories.Story(r.Context(), userID, chi.URLParam(r, "storyID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(st)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(export.RenderText(st)))
}
