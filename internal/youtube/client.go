// Package youtube searches instructional videos through the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/models"
)

// Searcher returns up to max ranked videos for a query.
// Failures are always *SearchError.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]models.VideoResult, error)
}

// Kind classifies a search failure.
type Kind int

const (
	// KindService is an API-level error carrying a machine-readable reason.
	KindService Kind = iota
	// KindQuota is a service error whose reason signals quota exhaustion.
	KindQuota
	// KindTransport is a network-level fault reaching the API.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindService:
		return "service"
	case KindQuota:
		return "quota"
	case KindTransport:
		return "transport"
	}
	return "unknown"
}

// CodeTransport is the diagnostic code recorded for transport failures.
const CodeTransport = "EXCEPTION"

var quotaReasons = map[string]struct{}{
	"quotaExceeded":      {},
	"dailyLimitExceeded": {},
}

// SearchError is the decoded failure of one search call.
type SearchError struct {
	Kind    Kind
	Code    string
	Reason  string
	Message string
	Err     error
}

func (e *SearchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube %s error %s (%s): %s", e.Kind, e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("youtube %s error %s: %s", e.Kind, e.Code, e.Message)
}

func (e *SearchError) Unwrap() error { return e.Err }

// Is matches apperr.ErrQuotaExhausted for quota failures.
func (e *SearchError) Is(target error) bool {
	return target == apperr.ErrQuotaExhausted && e.Kind == KindQuota
}

// Client implements Searcher on top of the generated YouTube service.
type Client struct {
	svc *yt.Service
}

// NewClient creates a Client. Extra options are appended after the API key,
// which lets tests point the client at a fake endpoint.
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, apperr.ErrSearchUnavailable
	}
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := yt.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("youtube: new service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Search runs a relevance-ranked video search.
func (c *Client) Search(ctx context.Context, query string, max int) ([]models.VideoResult, error) {
	if max <= 0 {
		max = 1
	}
	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		Order("relevance").
		MaxResults(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, decodeError(err)
	}

	out := make([]models.VideoResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		out = append(out, models.VideoResult{
			ID:           item.Id.VideoId,
			Title:        html.UnescapeString(item.Snippet.Title),
			Thumbnail:    thumbnailURL(item.Snippet.Thumbnails),
			ChannelTitle: html.UnescapeString(item.Snippet.ChannelTitle),
		})
	}
	return out, nil
}

// decodeError turns any client error into a *SearchError.
func decodeError(err error) *SearchError {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &SearchError{Kind: KindTransport, Code: CodeTransport, Message: err.Error(), Err: err}
	}
	se := &SearchError{
		Kind:    KindService,
		Code:    strconv.Itoa(gerr.Code),
		Message: gerr.Message,
		Err:     err,
	}
	if len(gerr.Errors) > 0 {
		se.Reason = gerr.Errors[0].Reason
		if se.Message == "" {
			se.Message = gerr.Errors[0].Message
		}
	}
	if se.Message == "" {
		se.Message = http.StatusText(gerr.Code)
	}
	if _, ok := quotaReasons[se.Reason]; ok {
		se.Kind = KindQuota
	}
	return se
}

func thumbnailURL(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
