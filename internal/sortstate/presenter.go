package sortstate

import (
	"bytes"
	"context"
	"html/template"
	"net/url"

	"sortmemo/internal/domain"
)

const resetLabel = "Reset Sort Order"

var resetLinkTemplate = template.Must(template.New("reset").Parse(
	`<a href="{{.Href}}" class="button">{{.Label}}</a>`,
))

type PreferenceReader interface {
	Get(ctx context.Context, userID, contentType string) (domain.SortPreference, bool, error)
}

type TokenIssuer interface {
	Issue(userID, contentType string) (string, error)
}

// ResetLink is the toolbar control offered when a preference is saved.
type ResetLink struct {
	Href  string `json:"href"`
	Label string `json:"label"`
}

// HTML renders the link as an escaped anchor fragment.
func (l ResetLink) HTML() template.HTML {
	var buf bytes.Buffer
	if err := resetLinkTemplate.Execute(&buf, l); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}

type Presenter struct {
	store    PreferenceReader
	tokens   TokenIssuer
	listPath string
}

func NewPresenter(store PreferenceReader, tokens TokenIssuer, listPath string) *Presenter {
	return &Presenter{store: store, tokens: tokens, listPath: listPath}
}

// ResetAffordance returns a signed reset link when the user has a saved sort
// for contentType, and nil otherwise.
func (p *Presenter) ResetAffordance(ctx context.Context, userID, contentType string) (*ResetLink, error) {
	pref, ok, err := p.store.Get(ctx, userID, contentType)
	if err != nil {
		return nil, err
	}
	if !ok || pref.OrderBy == "" {
		return nil, nil
	}
	token, err := p.tokens.Issue(userID, contentType)
	if err != nil {
		return nil, err
	}
	href := appendQuery(p.listPath, []string{
		domain.ParamPostType + "=" + url.QueryEscape(contentType),
		domain.ParamAction + "=" + domain.ResetAction,
		domain.ParamResetNonce + "=" + url.QueryEscape(token),
	})
	return &ResetLink{Href: href, Label: resetLabel}, nil
}
