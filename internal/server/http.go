package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sparkplay/dominion-server-go/internal/game"
	"github.com/sparkplay/dominion-server-go/internal/spark"
)

const signatureHeader = "X-Spark-Signature"

// MessageFetcher loads the full message a webhook points at.
type MessageFetcher interface {
	GetMessage(ctx context.Context, id string) (*spark.Message, error)
}

// MessageHandler consumes inbound chat messages.
type MessageHandler interface {
	Handle(ctx context.Context, msg *spark.Message) error
}

// HTTPOptions wires the HTTP surface.
type HTTPOptions struct {
	Fetcher MessageFetcher
	Handler MessageHandler
	Manager *game.Manager
	Hub     *Hub
	Outbox  *spark.Outbox
	Logger  *zap.Logger
	Version string
	Started time.Time
	Timeout time.Duration
	// WebhookSecret enables signature checks on /messages.
	WebhookSecret string
	// AdminUser and AdminPasswordHash guard /admin. Admin routes are off
	// without a hash.
	AdminUser         string
	AdminPasswordHash string
}

type webhook struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data struct {
		ID       string `json:"id"`
		RoomID   string `json:"roomId"`
		PersonID string `json:"personId"`
	} `json:"data"`
}

type httpAPI struct {
	opts   HTTPOptions
	logger *zap.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(opts HTTPOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	api := &httpAPI{opts: opts, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", api.health)
	r.With(middleware.Timeout(opts.Timeout)).Post("/messages", api.messages)

	if opts.AdminPasswordHash != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(api.basicAuth)
			r.Get("/games", api.games)
		})
	}
	if opts.Hub != nil {
		r.Get("/ws", opts.Hub.ServeWS)
	}
	return r
}

func (a *httpAPI) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (a *httpAPI) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"ok":      true,
		"version": a.opts.Version,
		"uptime":  time.Since(a.opts.Started).Round(time.Second).String(),
	}
	if a.opts.Manager != nil {
		body["active_games"] = a.opts.Manager.ActiveCount()
	}
	if a.opts.Hub != nil {
		body["spectators"] = a.opts.Hub.Connected()
	}
	if a.opts.Outbox != nil {
		body["outbox_pending"] = a.opts.Outbox.Pending()
		body["outbox_dropped"] = a.opts.Outbox.Dropped()
	}
	writeJSON(w, http.StatusOK, body)
}

// messages receives the Webex "message created" webhook. The payload only
// names the message, so the full text is fetched before dispatch.
func (a *httpAPI) messages(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if a.opts.WebhookSecret != "" && !validSignature(a.opts.WebhookSecret, body, r.Header.Get(signatureHeader)) {
		a.logger.Warn("webhook signature mismatch", zap.String("remote", r.RemoteAddr))
		http.Error(w, "bad signature", http.StatusUnauthorized)
		return
	}

	var hook webhook
	if err := json.Unmarshal(body, &hook); err != nil || hook.Data.ID == "" {
		http.Error(w, "message id is required", http.StatusBadRequest)
		return
	}

	msg, err := a.opts.Fetcher.GetMessage(r.Context(), hook.Data.ID)
	if err != nil {
		a.logger.Error("failed to fetch message", zap.String("message_id", hook.Data.ID), zap.Error(err))
		http.Error(w, "fetch message", http.StatusInternalServerError)
		return
	}
	if err := a.opts.Handler.Handle(r.Context(), msg); err != nil {
		a.logger.Error("failed to handle message", zap.String("message_id", hook.Data.ID), zap.Error(err))
		http.Error(w, "handle message", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *httpAPI) games(w http.ResponseWriter, _ *http.Request) {
	summaries := []game.Summary{}
	if a.opts.Manager != nil {
		summaries = a.opts.Manager.Summaries()
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": summaries})
}

func (a *httpAPI) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(a.opts.AdminUser)) != 1 ||
			bcrypt.CompareHashAndPassword([]byte(a.opts.AdminPasswordHash), []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="dominion admin"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validSignature checks the hex HMAC-SHA1 Webex puts on signed webhooks.
func validSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	want := mac.Sum(nil)
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
