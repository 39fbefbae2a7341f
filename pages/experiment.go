package pages

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/campusbox/jwxt"
)

// Experiment is one row of the lab session list.
type Experiment struct {
	Course   string
	Project  string
	Time     string
	Location string
}

// ExperimentRepository fetches and parses the lab session list.
type ExperimentRepository struct {
	*jwxt.BaseRepository
	url string
}

func NewExperimentRepository(e *jwxt.Engine, pageURL string) *ExperimentRepository {
	return &ExperimentRepository{
		BaseRepository: jwxt.NewBaseRepository(e),
		url:            pageURL,
	}
}

func (r *ExperimentRepository) Fetch(ctx context.Context, params url.Values) ([]Experiment, error) {
	page, err := r.FetchWithReauth(ctx, func(ctx context.Context) (string, error) {
		return r.Engine().Fetcher().FetchPage(ctx, r.url, params)
	})
	if err != nil {
		return nil, err
	}
	return parseExperiments(page)
}

func parseExperiments(page string) ([]Experiment, error) {
	doc, err := parseDoc(page)
	if err != nil {
		return nil, err
	}
	table, err := mainTable(doc)
	if err != nil {
		return nil, err
	}

	var experiments []Experiment
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		fields := rowFields(row)
		if len(fields) < 4 {
			return
		}
		experiments = append(experiments, Experiment{
			Course:   field(fields, 0),
			Project:  field(fields, 1),
			Time:     field(fields, 2),
			Location: field(fields, 3),
		})
	})
	return experiments, nil
}
