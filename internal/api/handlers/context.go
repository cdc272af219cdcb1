package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gatherguru/server/internal/api/respond"
	"github.com/gatherguru/server/internal/domain/events"
	"github.com/gatherguru/server/internal/domain/principals"
	"github.com/gatherguru/server/internal/upload"
)

// writeJSON emits a raw JSON payload for the few routes that do not use
// the standard response envelope.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// fileFromRequest extracts one multipart upload from the request. The
// returned close func must be called after the backend has consumed it.
func fileFromRequest(r *http.Request, field string) (upload.File, func(), error) {
	part, header, err := r.FormFile(field)
	if err != nil {
		return upload.File{}, nil, fmt.Errorf("missing %q file field: %w", field, err)
	}
	return upload.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      part,
	}, func() { _ = part.Close() }, nil
}

// writeDomainError maps domain failures onto the error taxonomy:
// validation → 400, bad credentials → 401, ownership → 403, missing → 404,
// anything unexpected → 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var principalValidation principals.ValidationError
	var eventValidation events.ValidationError

	switch {
	case errors.As(err, &principalValidation), errors.As(err, &eventValidation),
		errors.Is(err, upload.ErrNotAnImage), errors.Is(err, upload.ErrTooLarge),
		errors.Is(err, events.ErrIncomplete), errors.Is(err, events.ErrAlreadyPublished),
		errors.Is(err, principals.ErrEmailTaken):
		respond.Error(w, r, http.StatusBadRequest, err.Error(), err, env)
	case errors.Is(err, principals.ErrInvalidCredentials):
		respond.Error(w, r, http.StatusUnauthorized, err.Error(), err, env)
	case errors.Is(err, events.ErrForbidden):
		respond.Error(w, r, http.StatusForbidden, "Not authorized to access this route", err, env)
	case errors.Is(err, events.ErrNotFound), errors.Is(err, principals.ErrNotFound):
		respond.Error(w, r, http.StatusNotFound, "Resource not found", err, env)
	default:
		respond.Error(w, r, http.StatusInternalServerError, "Something went wrong!", err, env)
	}
}
