// Package sortstate decides, for each list-view request, whether to record a
// new sort, replay the remembered one, reset it, or leave the request alone.
package sortstate

import (
	"context"

	"github.com/rs/zerolog/log"

	"sortmemo/internal/domain"
	sorterr "sortmemo/internal/errors"
)

// PreferenceStore is the subset of store.Store the reconciler needs.
type PreferenceStore interface {
	Get(ctx context.Context, userID, contentType string) (domain.SortPreference, bool, error)
	Set(ctx context.Context, pref domain.SortPreference) error
	Delete(ctx context.Context, userID, contentType string) error
}

type TokenValidator interface {
	Validate(token, userID, contentType string) error
}

type Reconciler struct {
	store    PreferenceStore
	tokens   TokenValidator
	listPath string
}

func NewReconciler(store PreferenceStore, tokens TokenValidator, listPath string) *Reconciler {
	return &Reconciler{store: store, tokens: tokens, listPath: listPath}
}

// Reconcile classifies the request and applies the matching outcome. Reset is
// checked before record so a request carrying both markers is treated as a
// reset attempt. A non-empty Decision.Redirect means the caller must redirect
// and stop handling the request.
func (r *Reconciler) Reconcile(ctx context.Context, req domain.RequestContext) (domain.Decision, error) {
	if req.UserID == "" {
		return domain.Decision{}, sorterr.New(sorterr.CodeRequestInvalid, "user identity required")
	}
	contentType := ResolveContentType(req.ListingType, req.PostType)

	var (
		decision domain.Decision
		err      error
	)
	switch {
	case req.IsReset():
		decision, err = r.reset(ctx, req, contentType)
	case req.HasOrderBy:
		decision, err = r.record(ctx, req, contentType)
	case !req.HasAction && !req.HasReferer:
		decision = r.replay(ctx, req, contentType)
	default:
		decision = pass(contentType)
	}
	if err != nil {
		return domain.Decision{}, err
	}

	log.Debug().
		Str("user_id", req.UserID).
		Str("content_type", contentType).
		Str("outcome", string(decision.Outcome)).
		Str("redirect", decision.Redirect).
		Msg("sort reconciled")
	return decision, nil
}

func (r *Reconciler) reset(ctx context.Context, req domain.RequestContext, contentType string) (domain.Decision, error) {
	if err := r.tokens.Validate(req.ResetToken, req.UserID, contentType); err != nil {
		return domain.Decision{}, sorterr.Wrap(err, sorterr.CodeResetUnauthorized, "Security check failed",
			sorterr.FieldUserID(req.UserID), sorterr.FieldContentType(contentType))
	}
	if err := r.store.Delete(ctx, req.UserID, contentType); err != nil {
		return domain.Decision{}, err
	}
	return domain.Decision{
		Outcome:     domain.OutcomeReset,
		ContentType: contentType,
		Redirect:    BuildListURL(r.listPath, contentType, "", ""),
	}, nil
}

func (r *Reconciler) record(ctx context.Context, req domain.RequestContext, contentType string) (domain.Decision, error) {
	orderBy := Sanitize(req.OrderBy)
	if orderBy == "" {
		return pass(contentType), nil
	}
	order := Sanitize(req.Order)
	if order == "" {
		order = domain.DefaultOrder
	}
	pref := domain.SortPreference{
		UserID:      req.UserID,
		ContentType: contentType,
		OrderBy:     orderBy,
		Order:       order,
	}
	if err := r.store.Set(ctx, pref); err != nil {
		return domain.Decision{}, err
	}
	return domain.Decision{
		Outcome:     domain.OutcomeRecord,
		ContentType: contentType,
		Preference:  &pref,
	}, nil
}

func (r *Reconciler) replay(ctx context.Context, req domain.RequestContext, contentType string) domain.Decision {
	pref, ok, err := r.store.Get(ctx, req.UserID, contentType)
	if err != nil {
		log.Warn().Err(err).
			Str("user_id", req.UserID).
			Str("content_type", contentType).
			Msg("sort preference unavailable, skipping replay")
		return pass(contentType)
	}
	if !ok || pref.OrderBy == "" {
		return pass(contentType)
	}
	return domain.Decision{
		Outcome:     domain.OutcomeReplay,
		ContentType: contentType,
		Redirect:    BuildListURL(r.listPath, contentType, pref.OrderBy, pref.Order),
		Preference:  &pref,
	}
}

func pass(contentType string) domain.Decision {
	return domain.Decision{Outcome: domain.OutcomePass, ContentType: contentType}
}
