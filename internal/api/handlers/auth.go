package handlers

import (
	"net/http"

	"github.com/gatherguru/server/internal/api/middleware"
	"github.com/gatherguru/server/internal/api/respond"
	"github.com/gatherguru/server/internal/auth"
	"github.com/gatherguru/server/internal/domain/principals"
	"github.com/gatherguru/server/internal/upload"
	"github.com/rs/zerolog"
)

// AuthHandler serves registration, login, logout, and profile routes. One
// handler instance covers all three roles; the role is bound per-route.
type AuthHandler struct {
	Service      *principals.Service
	Tokens       *auth.JWTManager
	Uploader     upload.Uploader
	CookieName   string
	CookieSecure bool
	Env          string
}

func NewAuthHandler(service *principals.Service, tokens *auth.JWTManager, uploader upload.Uploader, cookieName string, cookieSecure bool, env string) *AuthHandler {
	return &AuthHandler{
		Service:      service,
		Tokens:       tokens,
		Uploader:     uploader,
		CookieName:   cookieName,
		CookieSecure: cookieSecure,
		Env:          env,
	}
}

// Register creates an account with the role fixed by the route.
func (h *AuthHandler) Register(role principals.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input principals.RegisterInput
		if err := decodeJSON(r, &input); err != nil {
			respond.Error(w, r, http.StatusBadRequest, "Invalid request body", err, h.Env)
			return
		}

		principal, err := h.Service.Register(r.Context(), role, input)
		if err != nil {
			writeDomainError(w, r, err, h.Env)
			return
		}

		respond.Data(w, http.StatusCreated, principal)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and delivers the session token in an HTTP-only
// cookie alongside the principal payload.
func (h *AuthHandler) Login(role principals.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input loginRequest
		if err := decodeJSON(r, &input); err != nil {
			respond.Error(w, r, http.StatusBadRequest, "Invalid request body", err, h.Env)
			return
		}

		principal, err := h.Service.Login(r.Context(), role, input.Email, input.Password)
		if err != nil {
			writeDomainError(w, r, err, h.Env)
			return
		}

		token, err := h.Tokens.Issue(principal.ID.Hex(), string(principal.Role))
		if err != nil {
			respond.Error(w, r, http.StatusInternalServerError, "Something went wrong!", err, h.Env)
			return
		}

		http.SetCookie(w, h.sessionCookie(token, int(h.Tokens.Expiry().Seconds())))
		respond.Data(w, http.StatusOK, principal)
	}
}

// Logout clears the session cookie. There is no server-side revocation:
// an already-issued token stays valid until expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1))
	respond.Message(w, http.StatusOK, "Logged out successfully")
}

func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFrom(r)
	respond.Data(w, http.StatusOK, principal)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFrom(r)

	var input principals.UpdateProfileInput
	if err := decodeJSON(r, &input); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "Invalid request body", err, h.Env)
		return
	}

	updated, err := h.Service.UpdateProfile(r.Context(), principal.ID, input)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	respond.Data(w, http.StatusOK, updated)
}

// UploadProfileImage stores a new profile image and removes the replaced
// object best-effort; a failed cleanup never fails the request.
func (h *AuthHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFrom(r)

	file, closeFile, err := fileFromRequest(r, "profileImage")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "Profile image file is required", err, h.Env)
		return
	}
	defer closeFile()

	result, err := h.Uploader.Store(r.Context(), file, upload.CategoryProfileImages)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	updated, previous, err := h.Service.SetProfileImage(r.Context(), principal.ID, principals.ProfileImage{
		URL:          result.URL,
		Key:          result.Key,
		OriginalName: result.OriginalName,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	if previous != nil && previous.Key != "" {
		if _, err := h.Uploader.Delete(r.Context(), previous.Key); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("key", previous.Key).Msg("failed to delete replaced profile image")
		}
	}

	respond.Data(w, http.StatusOK, updated)
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.CookieSecure {
		// Cross-site cookie for the separately hosted frontend.
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     h.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: sameSite,
	}
}
