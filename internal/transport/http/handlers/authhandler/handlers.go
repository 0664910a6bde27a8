package authhandler

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pquerna/otp/totp"

	"zenora/internal/domain/auth"
	"zenora/internal/platform/crypto"
	"zenora/internal/platform/email"
	"zenora/internal/transport/http/api"
	"zenora/internal/transport/http/middleware"
	"zenora/internal/transport/http/shared"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
	resetTokenTTL   = time.Hour
)

type Handler struct {
	Store     *auth.Store
	Crypto    *crypto.Service
	Mailer    email.Sender
	JWTSecret string
	EmailFrom string
}

func New(store *auth.Store, cryptoSvc *crypto.Service, mailer email.Sender, jwtSecret, emailFrom string) *Handler {
	return &Handler{Store: store, Crypto: cryptoSvc, Mailer: mailer, JWTSecret: jwtSecret, EmailFrom: emailFrom}
}

// Routes mounts the unauthenticated auth endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Post("/password-reset/request", h.requestPasswordReset)
	r.Post("/password-reset/confirm", h.confirmPasswordReset)
}

// SessionRoutes mounts the endpoints that require an authenticated user.
func (h *Handler) SessionRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
	r.Post("/mfa/setup", h.mfaSetup)
	r.Post("/mfa/enable", h.mfaEnable)
	r.Post("/mfa/disable", h.mfaDisable)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode,omitempty"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		api.Fail(w, r, http.StatusBadRequest, "missing_credentials", "email and password are required")
		return
	}

	user, err := h.Store.FindActiveUserByEmail(r.Context(), req.Email)
	if err != nil {
		// same response for unknown email and wrong password
		api.Fail(w, r, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		api.Fail(w, r, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	if user.MFAEnabled {
		if req.MFACode == "" {
			api.FailWithDetails(w, r, http.StatusUnauthorized, "mfa_required", "MFA code required",
				map[string]bool{"mfaRequired": true})
			return
		}
		secret, err := h.Crypto.DecryptString(user.MFASecretEnc)
		if err != nil || !totp.Validate(req.MFACode, secret) {
			api.Fail(w, r, http.StatusUnauthorized, "invalid_mfa_code", "invalid MFA code")
			return
		}
	}

	tokens, err := h.issueSession(r, user)
	if err != nil {
		slog.Error("session issue failed", "err", err)
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not create session")
		return
	}
	if err := h.Store.UpdateLastLogin(r.Context(), user.ID); err != nil {
		slog.Warn("last login update failed", "err", err)
	}
	api.Success(w, r, tokens)
}

func (h *Handler) issueSession(r *http.Request, user auth.AuthUser) (tokenResponse, error) {
	refreshToken, err := randomToken()
	if err != nil {
		return tokenResponse{}, err
	}
	sessionID, err := h.Store.CreateSession(r.Context(), user.ID, auth.HashToken(refreshToken), time.Now().Add(refreshTokenTTL))
	if err != nil {
		return tokenResponse{}, err
	}
	access, err := auth.GenerateToken(h.JWTSecret, auth.Claims{
		UserID:    user.ID,
		TenantID:  user.TenantID,
		RoleID:    user.RoleID,
		RoleName:  user.RoleName,
		SessionID: sessionID,
	}, accessTokenTTL)
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int(accessTokenTTL.Seconds()),
	}, nil
}

type refreshRequest struct {
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	user, err := h.Store.FindActiveUserByEmail(r.Context(), req.Email)
	if err != nil {
		api.Fail(w, r, http.StatusUnauthorized, "invalid_refresh", "invalid refresh token")
		return
	}
	sessionID, err := h.Store.SessionByRefreshToken(r.Context(), user.ID, auth.HashToken(req.RefreshToken))
	if err != nil {
		api.Fail(w, r, http.StatusUnauthorized, "invalid_refresh", "invalid refresh token")
		return
	}

	newRefresh, err := randomToken()
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not rotate session")
		return
	}
	if err := h.Store.RotateSession(r.Context(), sessionID, auth.HashToken(newRefresh), time.Now().Add(refreshTokenTTL)); err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not rotate session")
		return
	}
	access, err := auth.GenerateToken(h.JWTSecret, auth.Claims{
		UserID:    user.ID,
		TenantID:  user.TenantID,
		RoleID:    user.RoleID,
		RoleName:  user.RoleName,
		SessionID: sessionID,
	}, accessTokenTTL)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not issue token")
		return
	}
	api.Success(w, r, tokenResponse{AccessToken: access, RefreshToken: newRefresh, ExpiresIn: int(accessTokenTTL.Seconds())})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	if err := h.Store.RevokeSession(r.Context(), user.SessionID); err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not revoke session")
		return
	}
	api.Success(w, r, map[string]bool{"loggedOut": true})
}

func (h *Handler) mfaSetup(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "Zenora", AccountName: user.UserID})
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not generate MFA secret")
		return
	}
	secretEnc, err := h.Crypto.EncryptString(key.Secret())
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not store MFA secret")
		return
	}
	if err := h.Store.UpdateMFASecret(r.Context(), user.UserID, secretEnc); err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not store MFA secret")
		return
	}
	api.Success(w, r, map[string]string{"secret": key.Secret(), "otpauthUrl": key.URL()})
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) mfaEnable(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var req mfaCodeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	secretEnc, err := h.Store.MFASecret(r.Context(), user.UserID)
	if err != nil || len(secretEnc) == 0 {
		api.Fail(w, r, http.StatusBadRequest, "mfa_not_setup", "run MFA setup first")
		return
	}
	secret, err := h.Crypto.DecryptString(secretEnc)
	if err != nil || !totp.Validate(req.Code, secret) {
		api.Fail(w, r, http.StatusBadRequest, "invalid_mfa_code", "invalid MFA code")
		return
	}
	if err := h.Store.SetMFAEnabled(r.Context(), user.UserID, true); err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not enable MFA")
		return
	}
	api.Success(w, r, map[string]bool{"mfaEnabled": true})
}

func (h *Handler) mfaDisable(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Store.SetMFAEnabled(r.Context(), user.UserID, false); err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not disable MFA")
		return
	}
	api.Success(w, r, map[string]bool{"mfaEnabled": false})
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

func (h *Handler) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	// always 200 so the endpoint cannot be used to probe for accounts
	userID, err := h.Store.UserIDByEmail(r.Context(), req.Email)
	if err == nil {
		token, terr := randomToken()
		if terr == nil {
			if cerr := h.Store.CreatePasswordReset(r.Context(), userID, auth.HashToken(token), time.Now().Add(resetTokenTTL)); cerr == nil {
				if merr := h.Mailer.Send(r.Context(), h.EmailFrom, req.Email,
					"Password reset", "Your password reset token: "+token); merr != nil {
					slog.Warn("password reset email failed", "err", merr)
				}
			}
		}
	}
	api.Success(w, r, map[string]bool{"sent": true})
}

type passwordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirm
	if err := shared.DecodeJSON(r, &req); err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if len(req.NewPassword) < 8 {
		api.Fail(w, r, http.StatusBadRequest, "weak_password", "password must be at least 8 characters")
		return
	}
	tokenHash := auth.HashToken(req.Token)
	userID, err := h.Store.PasswordResetUserID(r.Context(), tokenHash)
	if err != nil {
		api.Fail(w, r, http.StatusBadRequest, "invalid_token", "invalid or expired reset token")
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not update password")
		return
	}
	if err := h.Store.UpdateUserPassword(r.Context(), userID, hash); err != nil {
		api.Fail(w, r, http.StatusInternalServerError, "internal", "could not update password")
		return
	}
	if err := h.Store.MarkPasswordResetUsed(r.Context(), tokenHash); err != nil {
		slog.Warn("password reset mark-used failed", "err", err)
	}
	api.Success(w, r, map[string]bool{"updated": true})
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
