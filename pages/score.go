package pages

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/campusbox/jwxt"
)

// Score is one row of the grade report.
type Score struct {
	Term   string
	Course string
	Credit string
	Grade  string
}

// ScoreRepository fetches and parses the grade report page.
type ScoreRepository struct {
	*jwxt.BaseRepository
	url string
}

func NewScoreRepository(e *jwxt.Engine, pageURL string) *ScoreRepository {
	return &ScoreRepository{
		BaseRepository: jwxt.NewBaseRepository(e),
		url:            pageURL,
	}
}

// Fetch retrieves the grade report. Params narrow the query, typically a
// term selector.
func (r *ScoreRepository) Fetch(ctx context.Context, params url.Values) ([]Score, error) {
	page, err := r.FetchWithReauth(ctx, func(ctx context.Context) (string, error) {
		return r.Engine().Fetcher().FetchPage(ctx, r.url, params)
	})
	if err != nil {
		return nil, err
	}
	return parseScores(page)
}

func parseScores(page string) ([]Score, error) {
	doc, err := parseDoc(page)
	if err != nil {
		return nil, err
	}
	table, err := mainTable(doc)
	if err != nil {
		return nil, err
	}

	var scores []Score
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		fields := rowFields(row)
		if len(fields) < 4 {
			return
		}
		scores = append(scores, Score{
			Term:   field(fields, 0),
			Course: field(fields, 1),
			Credit: field(fields, 2),
			Grade:  field(fields, 3),
		})
	})
	return scores, nil
}
