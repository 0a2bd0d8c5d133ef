package engine

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters that never change the identity of a
// resource: analytics, session and cache-buster noise stripped before
// deduplication.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true,
	"gclid": true, "fbclid": true, "_ga": true, "_gid": true,
	"ref": true, "referer": true, "referrer": true, "source": true,
	"sessionid": true, "session_id": true, "sid": true,
	"phpsessid": true, "jsessionid": true,
	"_": true, "timestamp": true, "ts": true, "nocache": true,
}

// NormalizeURL reduces a raw URL to the canonical dedup key: lowercased
// scheme/host/path, default ports and fragments removed, tracking
// parameters stripped, remaining parameters sorted, trailing slash
// normalized away.
func NormalizeURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}

	path := strings.ToLower(parsed.EscapedPath())
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "/" {
		path = ""
	}

	query := canonicalQuery(parsed.Query())

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}
	return b.String(), nil
}

// canonicalQuery drops tracking parameters and renders the survivors in
// sorted order so parameter order cannot split a dedup key.
func canonicalQuery(values url.Values) string {
	for param := range values {
		if trackingParams[strings.ToLower(param)] {
			delete(values, param)
		}
	}
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}
