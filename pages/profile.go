package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/campusbox/jwxt"
)

// Profile holds the student profile page as label/value pairs. The page
// is a free-form key/value table whose labels vary by faculty, so a map
// beats a fixed struct here.
type Profile map[string]string

// ProfileRepository fetches and parses the student profile page.
type ProfileRepository struct {
	*jwxt.BaseRepository
	url string
}

func NewProfileRepository(e *jwxt.Engine, pageURL string) *ProfileRepository {
	return &ProfileRepository{
		BaseRepository: jwxt.NewBaseRepository(e),
		url:            pageURL,
	}
}

func (r *ProfileRepository) Fetch(ctx context.Context) (Profile, error) {
	page, err := r.FetchWithReauth(ctx, func(ctx context.Context) (string, error) {
		return r.Engine().Fetcher().FetchPage(ctx, r.url, nil)
	})
	if err != nil {
		return nil, err
	}
	return parseProfile(page)
}

// parseProfile walks the table cells pairwise: a label cell ending in a
// colon (half or full width) keys the cell that follows it.
func parseProfile(page string) (Profile, error) {
	doc, err := parseDoc(page)
	if err != nil {
		return nil, err
	}
	table, err := mainTable(doc)
	if err != nil {
		return nil, err
	}

	profile := Profile{}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		fields := rowFields(row)
		for i := 0; i+1 < len(fields); i += 2 {
			label := strings.TrimRight(fields[i], ":：")
			if label == "" {
				continue
			}
			profile[label] = fields[i+1]
		}
	})

	if len(profile) == 0 {
		return nil, fmt.Errorf("%w: no profile fields found", jwxt.ErrParse)
	}
	return profile, nil
}
