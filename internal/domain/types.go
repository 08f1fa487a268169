package domain

import "time"

const (
	DefaultContentType = "post"
	DefaultOrder       = "asc"

	ResetAction = "reset_post_sort"
)

// Query parameter names understood on the list view.
const (
	ParamOrderBy     = "orderby"
	ParamOrder       = "order"
	ParamPostType    = "post_type"
	ParamAction      = "action"
	ParamResetNonce  = "reset_nonce"
	ParamHTTPReferer = "_wp_http_referer"
)

type Outcome string

const (
	OutcomePass   Outcome = "pass"
	OutcomeRecord Outcome = "record"
	OutcomeReplay Outcome = "replay"
	OutcomeReset  Outcome = "reset"
)

type EventType string

const (
	EventSortRecorded EventType = "sort.recorded"
	EventSortReset    EventType = "sort.reset"
)

// SortPreference is one user's remembered sort for one content type.
type SortPreference struct {
	UserID      string    `json:"user_id"`
	ContentType string    `json:"content_type"`
	OrderBy     string    `json:"orderby"`
	Order       string    `json:"order"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RequestContext carries the list-view parameters relevant to sort
// reconciliation. It is built once per request and not mutated afterwards.
type RequestContext struct {
	UserID string
	// ListingType is the host framework's current listing type, if known.
	ListingType string

	PostType    string
	HasPostType bool
	OrderBy     string
	HasOrderBy  bool
	Order       string
	HasOrder    bool
	Action      string
	HasAction   bool
	ResetToken  string
	HasReferer  bool
}

// IsReset reports whether the request carries the reserved reset action.
func (r RequestContext) IsReset() bool {
	return r.HasAction && r.Action == ResetAction
}

type Decision struct {
	Outcome     Outcome         `json:"outcome"`
	ContentType string          `json:"content_type"`
	Redirect    string          `json:"redirect,omitempty"`
	Preference  *SortPreference `json:"preference,omitempty"`
}

// Terminates reports whether the request should stop after the redirect.
func (d Decision) Terminates() bool {
	return d.Redirect != ""
}

type Event struct {
	ID          string                 `json:"event_id"`
	UserID      string                 `json:"user_id"`
	Type        EventType              `json:"event_type"`
	ContentType string                 `json:"content_type"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
}
