package sortstate

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"sortmemo/internal/domain"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>?`)
	octetPattern = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Sanitize reduces a query value to a single line of plain text. Tags,
// percent-encoded octets and control characters are removed, runs of
// whitespace collapse to one space and the result is trimmed. The value is
// otherwise kept verbatim.
func Sanitize(raw string) string {
	s := strings.ToValidUTF8(raw, "")
	s = tagPattern.ReplaceAllString(s, "")
	s = octetPattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// NewRequestContext captures the list-view parameters of one request.
func NewRequestContext(userID, listingType string, query url.Values) domain.RequestContext {
	req := domain.RequestContext{
		UserID:      userID,
		ListingType: listingType,
	}
	req.PostType, req.HasPostType = lookup(query, domain.ParamPostType)
	req.OrderBy, req.HasOrderBy = lookup(query, domain.ParamOrderBy)
	req.Order, req.HasOrder = lookup(query, domain.ParamOrder)
	req.Action, req.HasAction = lookup(query, domain.ParamAction)
	req.ResetToken, _ = lookup(query, domain.ParamResetNonce)
	_, req.HasReferer = lookup(query, domain.ParamHTTPReferer)
	return req
}

func lookup(query url.Values, key string) (string, bool) {
	values, ok := query[key]
	if !ok {
		return "", false
	}
	if len(values) == 0 {
		return "", true
	}
	return values[0], true
}

// ResolveContentType picks the listing type for a request: the host
// framework's signal first, then the post_type parameter, then the default.
func ResolveContentType(listingType, postTypeParam string) string {
	if t := Sanitize(listingType); t != "" {
		return t
	}
	if t := Sanitize(postTypeParam); t != "" {
		return t
	}
	return domain.DefaultContentType
}

// BuildListURL returns the list view URL for a content type and sort. It
// depends on nothing but its arguments; post_type is left out for the
// default content type and empty sort values are omitted.
func BuildListURL(base, contentType, orderBy, order string) string {
	params := make([]string, 0, 3)
	if contentType != "" && contentType != domain.DefaultContentType {
		params = append(params, domain.ParamPostType+"="+url.QueryEscape(contentType))
	}
	if orderBy != "" {
		params = append(params, domain.ParamOrderBy+"="+url.QueryEscape(orderBy))
	}
	if order != "" {
		params = append(params, domain.ParamOrder+"="+url.QueryEscape(order))
	}
	return appendQuery(base, params)
}

func appendQuery(base string, params []string) string {
	if len(params) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + strings.Join(params, "&")
}
