package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sortmemo/internal/config"
	"sortmemo/internal/domain"
	sorterr "sortmemo/internal/errors"
	"sortmemo/internal/security/resettoken"
	"sortmemo/internal/sortstate"
	storepkg "sortmemo/internal/store"
)

// TypedListPath is the list view route whose path names the listing type.
const TypedListPath = "/wp-admin/types/{postType}/edit.php"

type contextKey string

const (
	contextKeyUserID      contextKey = "user_id"
	contextKeyListingType contextKey = "listing_type"
	contextKeyDecision    contextKey = "sort_decision"
)

// EventPublisher delivers preference events to an outside listener.
type EventPublisher interface {
	Enabled() bool
	Publish(ctx context.Context, event domain.Event) error
}

type Server struct {
	cfg        config.Config
	store      storepkg.Store
	reconciler *sortstate.Reconciler
	presenter  *sortstate.Presenter
	publisher  EventPublisher
}

func NewServer(cfg config.Config, store storepkg.Store, publisher EventPublisher) *Server {
	tokens := resettoken.NewService(cfg.ResetTokenSecret, cfg.ResetTokenTTL)
	return &Server{
		cfg:        cfg,
		store:      store,
		reconciler: sortstate.NewReconciler(store, tokens, cfg.ListPath),
		presenter:  sortstate.NewPresenter(store, tokens, cfg.ListPath),
		publisher:  publisher,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog, middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/admin/login", s.handleLogin)

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireUser)
		protected.Post("/admin/logout", s.handleLogout)
		protected.With(s.rememberSort).Get(listRoute(s.cfg.ListPath), s.handleListView)
		protected.With(withListingType, s.rememberSort).Get(TypedListPath, s.handleListView)
	})

	r.Group(func(api chi.Router) {
		api.Use(s.requireBearer)
		api.Get("/prefs", s.handleListPrefs)
		api.Delete("/prefs/{postType}", s.handleDeletePref)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListPrefs(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())
	prefs, err := s.store.List(r.Context(), userID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"preferences": prefs,
		"count":       len(prefs),
	})
}

func (s *Server) handleDeletePref(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())
	contentType := sortstate.ResolveContentType("", chi.URLParam(r, "postType"))
	if err := s.store.Delete(r.Context(), userID, contentType); err != nil {
		writeFailure(w, err)
		return
	}
	s.emitEvent(domain.EventSortReset, userID, contentType, map[string]interface{}{
		"source": "api",
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"content_type": contentType,
	})
}

func (s *Server) emitEvent(eventType domain.EventType, userID, contentType string, payload map[string]interface{}) {
	if s.publisher == nil || !s.publisher.Enabled() {
		return
	}
	event := domain.Event{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        eventType,
		ContentType: contentType,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
	timeout := publishBudget(s.cfg)
	go func(evt domain.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, evt); err != nil {
			log.Warn().Err(err).Str("event_id", evt.ID).Str("event_type", string(evt.Type)).Msg("publish event failed")
		}
	}(event)
}

// publishBudget bounds one background publish: every attempt may run the
// full request timeout and every retry may wait up to the backoff cap.
func publishBudget(cfg config.Config) time.Duration {
	retries := time.Duration(max(cfg.WebhookMaxRetries, 0))
	budget := cfg.WebhookTimeout*(retries+1) + cfg.WebhookRetryMax*retries
	if budget <= 0 {
		return 5 * time.Second
	}
	return budget
}

// accessLog writes one zerolog line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func listRoute(listPath string) string {
	path, _, _ := strings.Cut(listPath, "?")
	if path == "" {
		return "/"
	}
	return path
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps a coded error to its HTTP status.
func writeFailure(w http.ResponseWriter, err error) {
	status := sorterr.HTTPStatus(err)
	switch {
	case sorterr.IsUnauthorized(err):
		writeError(w, status, "Security check failed")
	case sorterr.IsUnavailable(err):
		log.Error().Err(err).Fields(sorterr.FieldsOf(err)).Msg("store unavailable")
		writeError(w, status, "preference store unavailable")
	case status == http.StatusBadRequest:
		writeError(w, status, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, status, "internal error")
	}
}
