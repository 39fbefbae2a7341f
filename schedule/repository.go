package schedule

import (
	"context"
	"net/url"

	"github.com/campusbox/jwxt"
)

// Repository fetches schedule grids through an engine-bound fetcher with
// automatic re-login on session expiry.
type Repository struct {
	*jwxt.BaseRepository
	url string
}

// NewRepository binds a schedule repository to an engine and the grid
// page URL.
func NewRepository(e *jwxt.Engine, scheduleURL string) *Repository {
	return &Repository{
		BaseRepository: jwxt.NewBaseRepository(e),
		url:            scheduleURL,
	}
}

// FetchWeekTable retrieves and parses the schedule grid. Params select
// the term, for example the academic year and semester fields the portal
// expects.
func (r *Repository) FetchWeekTable(ctx context.Context, params url.Values) ([]Course, error) {
	page, err := r.FetchWithReauth(ctx, func(ctx context.Context) (string, error) {
		return r.Engine().Fetcher().FetchPage(ctx, r.url, params)
	})
	if err != nil {
		return nil, err
	}
	return Parse(page)
}
