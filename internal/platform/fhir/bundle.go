package fhir

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
	Request  *BundleRequest  `json:"request,omitempty"`
	Response *BundleResponse `json:"response,omitempty"`
}

type BundleSearch struct {
	Mode  string   `json:"mode,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

type BundleRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

type BundleResponse struct {
	Status       string      `json:"status"`
	Location     string      `json:"location,omitempty"`
	LastModified *time.Time  `json:"lastModified,omitempty"`
	Outcome      interface{} `json:"outcome,omitempty"`
}

// SearchBundleParams holds the link information for a searchset Bundle.
// ServerBaseURL is the absolute server root (scheme://host); BaseURL is the
// type-level path such as "/fhir/Patient".
type SearchBundleParams struct {
	ServerBaseURL string
	BaseURL       string
	QueryStr      string
	Count         int
	Offset        int
	Total         int
}

// ServerBaseURLFromRequest derives the absolute server root from the incoming
// request, honoring X-Forwarded-Proto set by reverse proxies.
func ServerBaseURLFromRequest(c echo.Context) string {
	req := c.Request()
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := req.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s", scheme, req.Host)
}

// NewSearchBundle creates a searchset Bundle from a list of resources with a
// bare self link. Use NewSearchBundleWithLinks for paginated results.
func NewSearchBundle(resources []interface{}, total int, baseURL string) *Bundle {
	now := time.Now().UTC()
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
		Timestamp:    &now,
		Link: []BundleLink{
			{Relation: "self", URL: baseURL},
		},
		Entry: searchEntries(resources),
	}
}

// NewSearchBundleWithLinks creates a searchset Bundle with self/next/previous
// pagination links.
func NewSearchBundleWithLinks(resources []interface{}, params SearchBundleParams) *Bundle {
	now := time.Now().UTC()
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &params.Total,
		Timestamp:    &now,
		Link:         buildPaginationLinks(params),
		Entry:        searchEntries(resources),
	}
}

func searchEntries(resources []interface{}) []BundleEntry {
	entries := make([]BundleEntry, len(resources))
	for i, r := range resources {
		raw, _ := json.Marshal(r)
		entries[i] = BundleEntry{
			FullURL:  extractFullURL(r),
			Resource: raw,
			Search: &BundleSearch{
				Mode: "match",
			},
		}
	}
	return entries
}

// extractFullURL builds a relative fullUrl from a resource's resourceType and id.
func extractFullURL(r interface{}) string {
	m, ok := toMap(r)
	if !ok {
		return ""
	}
	rt, _ := m["resourceType"].(string)
	id, _ := m["id"].(string)
	if rt != "" && id != "" {
		return fmt.Sprintf("%s/%s", rt, id)
	}
	return ""
}

// toMap converts an arbitrary value to map[string]interface{} if possible.
func toMap(v interface{}) (map[string]interface{}, bool) {
	switch val := v.(type) {
	case map[string]interface{}:
		return val, true
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		var m map[string]interface{}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, false
		}
		return m, true
	}
}

// buildPaginationLinks creates self, next, and previous links. Links are
// absolute when ServerBaseURL is set.
func buildPaginationLinks(params SearchBundleParams) []BundleLink {
	base := params.ServerBaseURL + params.BaseURL

	pageURL := func(offset int) string {
		qs := stripPagingParams(params.QueryStr)
		if qs != "" {
			qs += "&"
		}
		return fmt.Sprintf("%s?%s_count=%d&_offset=%d", base, qs, params.Count, offset)
	}

	links := []BundleLink{
		{Relation: "self", URL: pageURL(params.Offset)},
	}

	if params.Offset+params.Count < params.Total {
		links = append(links, BundleLink{Relation: "next", URL: pageURL(params.Offset + params.Count)})
	}

	if params.Offset > 0 {
		prev := params.Offset - params.Count
		if prev < 0 {
			prev = 0
		}
		links = append(links, BundleLink{Relation: "previous", URL: pageURL(prev)})
	}

	return links
}

// stripPagingParams removes _count and _offset from a raw query string so the
// page links do not accumulate duplicates.
func stripPagingParams(qs string) string {
	if qs == "" {
		return ""
	}
	var kept []string
	for _, part := range strings.Split(qs, "&") {
		if part == "" || strings.HasPrefix(part, "_count=") || strings.HasPrefix(part, "_offset=") {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "&")
}
