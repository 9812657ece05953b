package query

import (
	"context"
	"net/url"
	"strings"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

type UserQueries struct{ c *Client }

// minSearchLength gates user and message search.
const minSearchLength = 2

// Search looks users up by name or email once q has two characters.
func (q *UserQueries) Search(ctx context.Context, query string) (Result[[]models.User], error) {
	query = strings.TrimSpace(query)
	if len(query) < minSearchLength {
		return idle[[]models.User]()
	}
	return read[[]models.User](ctx, q.c, UserSearchKey(query), "/users/search?q="+url.QueryEscape(query))
}
