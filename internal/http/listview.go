package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"sortmemo/internal/domain"
	"sortmemo/internal/sortstate"
)

// withListingType exposes the route's {postType} as the framework's current
// listing type.
func withListingType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithListingType(r.Context(), chi.URLParam(r, "postType"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithListingType lets a host handler announce the listing type it renders.
func WithListingType(ctx context.Context, listingType string) context.Context {
	return context.WithValue(ctx, contextKeyListingType, listingType)
}

func listingTypeFromContext(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyListingType).(string)
	return v
}

func decisionFromContext(ctx context.Context) (domain.Decision, bool) {
	d, ok := ctx.Value(contextKeyDecision).(domain.Decision)
	return d, ok
}

// rememberSort runs the sort reconciler before the list view renders. A
// replay or reset ends the request with a redirect.
func (s *Server) rememberSort(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := userFromContext(r.Context())
		req := sortstate.NewRequestContext(userID, listingTypeFromContext(r.Context()), r.URL.Query())

		decision, err := s.reconciler.Reconcile(r.Context(), req)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("sort reconcile failed")
			writeFailure(w, err)
			return
		}

		switch decision.Outcome {
		case domain.OutcomeRecord:
			s.emitEvent(domain.EventSortRecorded, userID, decision.ContentType, map[string]interface{}{
				"orderby": decision.Preference.OrderBy,
				"order":   decision.Preference.Order,
			})
		case domain.OutcomeReset:
			s.emitEvent(domain.EventSortReset, userID, decision.ContentType, map[string]interface{}{
				"source": "list_view",
			})
		}

		if decision.Terminates() {
			http.Redirect(w, r, decision.Redirect, http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyDecision, decision)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleListView stands in for the host list screen: it echoes the sort it
// would render and the toolbar controls available to the user.
func (s *Server) handleListView(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())
	query := r.URL.Query()

	contentType := sortstate.ResolveContentType(listingTypeFromContext(r.Context()), query.Get(domain.ParamPostType))
	outcome := domain.OutcomePass
	if d, ok := decisionFromContext(r.Context()); ok {
		contentType = d.ContentType
		outcome = d.Outcome
	}

	toolbar := map[string]interface{}{}
	link, err := s.presenter.ResetAffordance(r.Context(), userID, contentType)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("content_type", contentType).Msg("reset affordance unavailable")
	} else if link != nil {
		toolbar["reset_link"] = map[string]interface{}{
			"href":  link.Href,
			"label": link.Label,
			"html":  string(link.HTML()),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"content_type": contentType,
		"orderby":      query.Get(domain.ParamOrderBy),
		"order":        query.Get(domain.ParamOrder),
		"outcome":      outcome,
		"toolbar":      toolbar,
	})
}
