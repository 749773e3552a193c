package shopify

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

// collectPages follows rel="next" links from first until the platform has
// no more pages or the page ceiling is hit. The platform serves pages in
// ascending id order, so callers sort and truncate the whole set.
func collectPages[E any, T any](ctx context.Context, c *Client, first request, items func(*E) []T) ([]T, error) {
	var out []T
	r := first
	for page := 1; ; page++ {
		var envelope E
		header, err := c.do(ctx, r, &envelope)
		if err != nil {
			return nil, err
		}
		out = append(out, items(&envelope)...)
		next := nextPageURL(header)
		if next == "" {
			return out, nil
		}
		if page >= c.maxPages {
			c.logger.Warn("shopify page ceiling reached",
				slog.String("op", first.op),
				slog.Int("pages", page),
				slog.Int("records", len(out)))
			return out, nil
		}
		r = request{op: first.op, method: http.MethodGet, path: next}
	}
}

// nextPageURL extracts the rel="next" target from a Link header such as
// `<https://x/a?page_info=1>; rel="previous", <https://x/a?page_info=2>; rel="next"`.
func nextPageURL(header http.Header) string {
	for _, value := range header.Values("Link") {
		for _, part := range strings.Split(value, ",") {
			segments := strings.Split(part, ";")
			target := strings.TrimSpace(segments[0])
			if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
				continue
			}
			for _, param := range segments[1:] {
				key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
				if ok && strings.EqualFold(key, "rel") && strings.Trim(val, `"`) == "next" {
					return target[1 : len(target)-1]
				}
			}
		}
	}
	return ""
}

// newestFirst sorts by creation time descending, ties broken by id descending.
func newestFirst[T any](items []T, key func(T) (time.Time, int64)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})
}
