package handlers

import (
	"net/http"
	"strconv"

	"github.com/gatherguru/server/internal/api/middleware"
	"github.com/gatherguru/server/internal/api/respond"
	"github.com/gatherguru/server/internal/domain/events"
	"github.com/gatherguru/server/internal/upload"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventsHandler serves the organizer event lifecycle and the public
// discovery routes.
type EventsHandler struct {
	Service  *events.Service
	Uploader upload.Uploader
	Env      string
}

func NewEventsHandler(service *events.Service, uploader upload.Uploader, env string) *EventsHandler {
	return &EventsHandler{Service: service, Uploader: uploader, Env: env}
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFrom(r)

	var input events.BasicInput
	if err := decodeJSON(r, &input); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "Invalid request body", err, h.Env)
		return
	}

	event, err := h.Service.CreateBasic(r.Context(), principal.ID, input)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	respond.Data(w, http.StatusCreated, event)
}

// UpdateBanner accepts a multipart banner upload, stores it, and attaches
// it to the event. The replaced asset is deleted best-effort.
func (h *EventsHandler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFrom(r)

	eventID, err := eventIDFromPath(r)
	if err != nil {
		respond.Error(w, r, http.StatusNotFound, "Resource not found", err, h.Env)
		return
	}

	file, closeFile, err := fileFromRequest(r, "eventBanner")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "Event banner file is required", err, h.Env)
		return
	}
	defer closeFile()

	result, err := h.Uploader.Store(r.Context(), file, upload.CategoryEventBanners)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	event, previous, err := h.Service.UpdateBanner(r.Context(), principal.ID, eventID, events.Banner{
		URL:          result.URL,
		Key:          result.Key,
		OriginalName: result.OriginalName,
	})
	if err != nil {
		// The stored object is now orphaned; clean it up best-effort.
		if _, deleteErr := h.Uploader.Delete(r.Context(), result.Key); deleteErr != nil {
			zerolog.Ctx(r.Context()).Warn().Err(deleteErr).Str("key", result.Key).Msg("failed to delete orphaned banner")
		}
		writeDomainError(w, r, err, h.Env)
		return
	}

	if previous != nil && previous.Key != "" {
		if _, deleteErr := h.Uploader.Delete(r.Context(), previous.Key); deleteErr != nil {
			zerolog.Ctx(r.Context()).Warn().Err(deleteErr).Str("key", previous.Key).Msg("failed to delete replaced banner")
		}
	}

	respond.Data(w, http.StatusOK, event)
}

func (h *EventsHandler) UpdateTicketing(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFrom(r)

	eventID, err := eventIDFromPath(r)
	if err != nil {
		respond.Error(w, r, http.StatusNotFound, "Resource not found", err, h.Env)
		return
	}

	var input events.TicketingInput
	if err := decodeJSON(r, &input); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "Invalid request body", err, h.Env)
		return
	}

	event, err := h.Service.UpdateTicketing(r.Context(), principal.ID, eventID, input)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	respond.Data(w, http.StatusOK, event)
}

func (h *EventsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFrom(r)

	eventID, err := eventIDFromPath(r)
	if err != nil {
		respond.Error(w, r, http.StatusNotFound, "Resource not found", err, h.Env)
		return
	}

	event, err := h.Service.Publish(r.Context(), principal.ID, eventID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	respond.Data(w, http.StatusOK, event)
}

// OrganizerEvents lists every event owned by the caller, drafts included.
func (h *EventsHandler) OrganizerEvents(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFrom(r)

	list, err := h.Service.OrganizerEvents(r.Context(), principal.ID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	respond.Data(w, http.StatusOK, list)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDFromPath(r)
	if err != nil {
		respond.Error(w, r, http.StatusNotFound, "Resource not found", err, h.Env)
		return
	}

	event, err := h.Service.GetPublished(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	respond.Data(w, http.StatusOK, event)
}

func (h *EventsHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, skip := paginationParams(r)
	list, err := h.Service.Search(r.Context(), r.URL.Query().Get("q"), limit, skip)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	respond.Data(w, http.StatusOK, list)
}

func (h *EventsHandler) Popular(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Popular(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	respond.Data(w, http.StatusOK, list)
}

func (h *EventsHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	limit, skip := paginationParams(r)
	list, err := h.Service.ByCategory(r.Context(), r.PathValue("category"), limit, skip)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	respond.Data(w, http.StatusOK, list)
}

func (h *EventsHandler) All(w http.ResponseWriter, r *http.Request) {
	limit, skip := paginationParams(r)
	list, err := h.Service.All(r.Context(), limit, skip)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	respond.Data(w, http.StatusOK, list)
}

func (h *EventsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	respond.Data(w, http.StatusOK, events.Categories)
}

func eventIDFromPath(r *http.Request) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(r.PathValue("id"))
}

func paginationParams(r *http.Request) (limit, skip int64) {
	query := r.URL.Query()
	limit, _ = strconv.ParseInt(query.Get("limit"), 10, 64)
	skip, _ = strconv.ParseInt(query.Get("skip"), 10, 64)
	return limit, skip
}
