package clockify

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const PageSize = 1000

var workspaceUsersPath = regexp.MustCompile(`^/workspaces/[^/?]+/users(\?|$)`)

func pageURL(endpoint string, page int) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	u := fmt.Sprintf("%s%spage=%d&page-size=%d", endpoint, sep, page, PageSize)
	if workspaceUsersPath.MatchString(endpoint) {
		u += "&memberships=WORKSPACE&include-roles=true"
	}
	return u
}

// FetchAll reads every page of a collection endpoint in order. It stops on a
// non-200 page, an empty page or a short page. Items collected before a
// failing page are returned together with a *PageError.
func FetchAll[T any](ctx context.Context, s Sender, endpoint string) ([]T, error) {
	ctx, span := tracer.Start(ctx, "clockify.FetchAll")
	defer span.End()

	var items []T
	for page := 1; ; page++ {
		resp, err := s.Send(ctx, http.MethodGet, pageURL(endpoint, page), nil)
		if err != nil {
			return items, &PageError{Endpoint: endpoint, Page: page, Err: err}
		}
		if resp.StatusCode != http.StatusOK {
			return items, &PageError{Endpoint: endpoint, Page: page, StatusCode: resp.StatusCode}
		}
		var batch []T
		if err := resp.Decode(&batch); err != nil {
			return items, &PageError{Endpoint: endpoint, Page: page, StatusCode: resp.StatusCode, Err: err}
		}
		items = append(items, batch...)
		if len(batch) < PageSize {
			return items, nil
		}
	}
}
