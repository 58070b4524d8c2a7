package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"coldeye/cmd/identity"
	"coldeye/cmd/internal/auth/session"
	"coldeye/cmd/internal/httpx"
)

// TokenHeader carries the session token on authenticated requests.
const TokenHeader = "token"

const (
	msgInvalidCredentials = "invalid username or password"
	msgTokenNotFound      = "token not found or expired"
	msgTokenRequired      = "token header is required"
	msgInvalidBody        = "invalid request body"
	msgUnavailable        = "service temporarily unavailable"
	msgInternal           = "internal error"
)

// Handler wires the /sys/user endpoints to identity/session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	auth      Authenticator
	users     UserLookup
	companies CompanyLookup
	sessions  *session.Service
	audit     AuditSink
	metrics   *Metrics
}

// Deps are the services a Handler calls. Companies, Audit and Metrics are optional.
type Deps struct {
	Auth      Authenticator
	Users     UserLookup
	Sessions  *session.Service
	Companies CompanyLookup
	Audit     AuditSink
	Metrics   *Metrics
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, deps Deps) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if deps.Auth == nil || deps.Users == nil || deps.Sessions == nil {
		return nil, errors.New("authapi: auth, users and sessions are required")
	}

	h := &Handler{
		log:       log,
		cfg:       cfg.withDefaults(),
		auth:      deps.Auth,
		users:     deps.Users,
		companies: deps.Companies,
		sessions:  deps.Sessions,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
	}
	if h.audit == nil {
		h.audit = NoopAuditSink{}
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/sys/user/login", h.handleLogin)
	mux.HandleFunc("/sys/user/getToken", h.handleGetToken)
	mux.HandleFunc("/sys/user/logout", h.handleLogout)
	mux.Handle("/sys/user/info", h.RequireSession(http.HandlerFunc(h.handleInfo)))
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.metrics.login("bad_request")
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	ctx := r.Context()
	ip := httpx.ClientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())
	username := identity.NormalizeUsername(req.Username)

	user, err := h.auth.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			h.metrics.login("invalid_credentials")
			h.log.Info("auth.login.fail", "username", username, "ip", ipString(ip))
			h.auditLoginFailed(ctx, nil, ip, ua, username, "invalid_credentials")
			httpx.WriteError(w, http.StatusForbidden, msgInvalidCredentials)
			return
		}
		h.metrics.login("error")
		h.writeServiceError(w, "auth.login.authenticate.fail", err)
		return
	}

	tok, err := h.sessions.CreateToken(ctx, user.ID)
	if err != nil {
		h.metrics.login("error")
		h.writeServiceError(w, "auth.login.create_token.fail", err)
		return
	}

	fp := h.sessions.Fingerprint(tok.Token)
	h.metrics.login("success")
	h.log.Info("auth.login.success", "user_id", user.ID, "token_fp", fp, "ip", ipString(ip))
	h.auditLoginSuccess(ctx, user.ID, ip, ua, fp)

	httpx.WriteOK(w, toTokenResponse(tok))
}

// handleGetToken returns the bare token record, not wrapped in the envelope.
func (h *Handler) handleGetToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, http.MethodPost)
		return
	}

	plain := tokenFromRequest(r)
	if plain == "" {
		httpx.WriteError(w, http.StatusBadRequest, msgTokenRequired)
		return
	}

	tok, err := h.sessions.GetToken(r.Context(), plain)
	if err != nil {
		if errors.Is(err, session.ErrTokenNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, msgTokenNotFound)
			return
		}
		h.writeServiceError(w, "auth.get_token.fail", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(tok))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, http.MethodPost)
		return
	}

	plain := tokenFromRequest(r)
	if plain == "" {
		httpx.WriteError(w, http.StatusBadRequest, msgTokenRequired)
		return
	}

	ctx := r.Context()

	// Resolve the owner for the audit trail only; an unknown token still logs out cleanly.
	var userID *int64
	if tok, err := h.sessions.GetToken(ctx, plain); err == nil {
		userID = &tok.UserID
	}

	if err := h.sessions.Logout(ctx, plain); err != nil {
		h.writeServiceError(w, "auth.logout.fail", err)
		return
	}

	fp := h.sessions.Fingerprint(plain)
	if userID != nil {
		h.log.Info("auth.logout", "user_id", *userID, "token_fp", fp)
	}
	h.auditLogout(ctx, userID, httpx.ClientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()), fp)

	httpx.WriteOK(w, "success")
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, http.MethodGet)
		return
	}

	ctx := r.Context()
	tok, ok := SessionFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, msgTokenNotFound)
		return
	}

	u, err := h.users.GetUserByID(ctx, tok.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			httpx.WriteError(w, http.StatusUnauthorized, msgTokenNotFound)
			return
		}
		h.writeServiceError(w, "auth.info.fail", err)
		return
	}

	httpx.WriteOK(w, infoResponse{
		Name:      u.DisplayName(),
		Company:   h.companyName(ctx, u),
		Phone:     u.Phone,
		Avatar:    u.Avatar,
		Username:  u.Username,
		LoginTime: httpx.FormatTime(tok.UpdateTime),
	})
}

// ---- session middleware ----

type ctxKey struct{}

// RequireSession resolves the token header and stores the session in the request context.
// Requests without a live token are rejected with 401.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		plain := tokenFromRequest(r)
		if plain == "" {
			httpx.WriteError(w, http.StatusUnauthorized, msgTokenRequired)
			return
		}

		tok, err := h.sessions.GetToken(r.Context(), plain)
		if err != nil {
			if errors.Is(err, session.ErrTokenNotFound) {
				httpx.WriteError(w, http.StatusUnauthorized, msgTokenNotFound)
				return
			}
			h.writeServiceError(w, "auth.require_session.fail", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), tok)))
	})
}

// WithSession returns ctx carrying tok.
func WithSession(ctx context.Context, tok session.Token) context.Context {
	return context.WithValue(ctx, ctxKey{}, tok)
}

// SessionFromContext returns the session attached by RequireSession.
func SessionFromContext(ctx context.Context) (session.Token, bool) {
	tok, ok := ctx.Value(ctxKey{}).(session.Token)
	return tok, ok
}

// ---- helpers ----

func (h *Handler) companyName(ctx context.Context, u identity.User) string {
	if u.CompanyID == nil || h.companies == nil {
		return h.cfg.DefaultCompanyName
	}
	name, err := h.companies.CompanyName(ctx, *u.CompanyID)
	if err != nil {
		h.log.Warn("auth.info.company.fail", "user_id", u.ID, "company_id", *u.CompanyID, "err", err)
		return h.cfg.DefaultCompanyName
	}
	if name == "" {
		return h.cfg.DefaultCompanyName
	}
	return name
}

// writeServiceError maps infrastructure failures to 503 and everything else to 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, event string, err error) {
	if errors.Is(err, session.ErrStoreUnavailable) || identity.IsUnavailable(err) {
		h.log.Error(event, "err", err, "kind", "unavailable")
		httpx.WriteError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	h.log.Error(event, "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, msgInternal)
}

// tokenFromRequest reads the token header, falling back to "Authorization: Bearer".
func tokenFromRequest(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(TokenHeader)); v != "" {
		return v
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
