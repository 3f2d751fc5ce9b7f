package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authflow "github.com/abjadnlp2026-anon/arabic-dialect-hub"
)

const (
	defaultCookieName = "adh_flow"
	defaultIdleTTL    = 30 * time.Minute
	defaultSweepEvery = time.Minute
)

// Config tunes the HTTP surface.
type Config struct {
	// TokenSecret signs the flow affinity cookie. Required.
	TokenSecret []byte

	// TokenTTL bounds how long an issued cookie stays valid.
	// Defaults to IdleTTL.
	TokenTTL time.Duration

	// IdleTTL is how long an untouched flow survives before the sweeper
	// closes and evicts it. Defaults to 30 minutes.
	IdleTTL time.Duration

	// SweepEvery is the eviction cadence. Defaults to one minute.
	SweepEvery time.Duration

	// CookieName overrides the flow cookie name.
	CookieName string

	// CookieSecure marks the flow cookie Secure. Set it on anything
	// served over TLS.
	CookieSecure bool
}

// API mounts the authentication flows over HTTP. Each browser session holds
// at most one flow, addressed through a signed cookie; every action responds
// with the flow snapshot the client should render.
type API struct {
	engine *authflow.Engine
	reg    *registry
	tokens *tokenCodec
	cfg    Config
}

// New wires the HTTP surface around a built engine.
func New(engine *authflow.Engine, cfg Config) (*API, error) {
	if engine == nil {
		return nil, errors.New("httpapi: engine required")
	}
	if len(cfg.TokenSecret) == 0 {
		return nil, errors.New("httpapi: token secret required")
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = defaultSweepEvery
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = cfg.IdleTTL
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	return &API{
		engine: engine,
		reg:    newRegistry(cfg.IdleTTL, cfg.SweepEvery),
		tokens: newTokenCodec(cfg.TokenSecret, cfg.TokenTTL),
		cfg:    cfg,
	}, nil
}

// Router returns the mounted routes.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(clientIPContext)

	r.Route("/flows", func(r chi.Router) {
		r.Post("/signin", a.handleCreate(authflow.ModeSignIn))
		r.Post("/signup", a.handleCreate(authflow.ModeSignUp))

		r.Route("/current", func(r chi.Router) {
			r.Get("/", a.withFlow(a.handleSnapshot))
			r.Delete("/", a.handleClose)
			r.Post("/fields", a.withFlow(a.handleFields))
			r.Post("/submit", a.withFlow(a.handleSubmit))
			r.Post("/back", a.withFlow(a.handleBack))
			r.Post("/forgot-password", a.withFlow(a.handleForgotPassword))
			r.Post("/resend", a.withFlow(a.handleResend))
		})
	})
	return r
}

// Close stops the eviction sweeper and closes every tracked flow.
func (a *API) Close() {
	a.reg.close()
}

// clientIPContext copies the request's remote address into the flow context
// so throttles and audit events see the caller's IP. middleware.RealIP has
// already folded X-Forwarded-For into RemoteAddr by this point.
func clientIPContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(authflow.WithClientIP(r.Context(), ip)))
	})
}

func (a *API) handleCreate(mode authflow.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f *authflow.Flow
		if mode == authflow.ModeSignUp {
			f = a.engine.NewSignUpFlow()
		} else {
			f = a.engine.NewSignInFlow()
		}

		token, err := a.tokens.issue(f.ID())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not issue flow token")
			return
		}

		// Replacing an abandoned flow: the old cookie is simply
		// overwritten and its flow ages out through the sweeper.
		a.reg.add(f)
		http.SetCookie(w, a.flowCookie(token, a.cfg.TokenTTL))
		writeJSON(w, http.StatusCreated, f.Snapshot())
	}
}

type flowHandler func(w http.ResponseWriter, r *http.Request, f *authflow.Flow)

func (a *API) withFlow(h flowHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := a.currentFlow(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "no active flow")
			return
		}
		h(w, r, f)
	}
}

func (a *API) currentFlow(r *http.Request) (*authflow.Flow, bool) {
	c, err := r.Cookie(a.cfg.CookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	id, err := a.tokens.parse(c.Value)
	if err != nil {
		return nil, false
	}
	return a.reg.get(id)
}

func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request, f *authflow.Flow) {
	writeJSON(w, http.StatusOK, f.Snapshot())
}

// fieldsRequest is a partial update: only the fields present in the body are
// applied, in declaration order.
type fieldsRequest struct {
	Email            *string `json:"email"`
	Password         *string `json:"password"`
	Username         *string `json:"username"`
	SourceDialect    *string `json:"source_dialect"`
	TargetDialect    *string `json:"target_dialect"`
	AvatarID         *int    `json:"avatar_id"`
	VerificationCode *string `json:"code"`
}

func (a *API) handleFields(w http.ResponseWriter, r *http.Request, f *authflow.Flow) {
	var req fieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := applyFields(f, req); err != nil {
		usageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func applyFields(f *authflow.Flow, req fieldsRequest) error {
	if req.Email != nil {
		if err := f.SetEmail(*req.Email); err != nil {
			return err
		}
	}
	if req.Password != nil {
		if err := f.SetPassword(*req.Password); err != nil {
			return err
		}
	}
	if req.Username != nil {
		if err := f.SetUsername(*req.Username); err != nil {
			return err
		}
	}
	if req.SourceDialect != nil {
		if err := f.SetSourceDialect(authflow.Dialect(*req.SourceDialect)); err != nil {
			return err
		}
	}
	if req.TargetDialect != nil {
		if err := f.SetTargetDialect(authflow.Dialect(*req.TargetDialect)); err != nil {
			return err
		}
	}
	if req.AvatarID != nil {
		if err := f.SetAvatarID(*req.AvatarID); err != nil {
			return err
		}
	}
	if req.VerificationCode != nil {
		if err := f.SetVerificationCode(*req.VerificationCode); err != nil {
			return err
		}
	}
	return nil
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request, f *authflow.Flow) {
	if err := f.Submit(r.Context()); err != nil {
		usageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func (a *API) handleBack(w http.ResponseWriter, r *http.Request, f *authflow.Flow) {
	if err := f.Back(); err != nil {
		usageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request, f *authflow.Flow) {
	if err := f.ForgotPassword(r.Context()); err != nil {
		usageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func (a *API) handleResend(w http.ResponseWriter, r *http.Request, f *authflow.Flow) {
	if err := f.ResendCode(r.Context()); err != nil {
		usageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

// handleClose tears the flow down and clears the cookie. Idempotent: a stale
// or missing cookie still answers 204.
func (a *API) handleClose(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(a.cfg.CookieName); err == nil && c.Value != "" {
		if id, err := a.tokens.parse(c.Value); err == nil {
			a.reg.remove(id)
		}
	}
	http.SetCookie(w, a.flowCookie("", -time.Hour))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) flowCookie(value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// usageError maps flow usage faults onto HTTP statuses. Domain outcomes
// (validation text, provider rejections) never surface here; they live in
// the snapshot's error field with a 200.
func usageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authflow.ErrFlowClosed):
		writeError(w, http.StatusGone, err.Error())
	default:
		writeError(w, http.StatusConflict, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
