package pages

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/campusbox/jwxt"
)

// Elective is one row of the elective course list.
type Elective struct {
	Code    string
	Name    string
	Teacher string
	Status  string
}

// ElectiveRepository fetches and parses the elective course list.
type ElectiveRepository struct {
	*jwxt.BaseRepository
	url string
}

func NewElectiveRepository(e *jwxt.Engine, pageURL string) *ElectiveRepository {
	return &ElectiveRepository{
		BaseRepository: jwxt.NewBaseRepository(e),
		url:            pageURL,
	}
}

func (r *ElectiveRepository) Fetch(ctx context.Context, params url.Values) ([]Elective, error) {
	page, err := r.FetchWithReauth(ctx, func(ctx context.Context) (string, error) {
		return r.Engine().Fetcher().FetchPage(ctx, r.url, params)
	})
	if err != nil {
		return nil, err
	}
	return parseElectives(page)
}

func parseElectives(page string) ([]Elective, error) {
	doc, err := parseDoc(page)
	if err != nil {
		return nil, err
	}
	table, err := mainTable(doc)
	if err != nil {
		return nil, err
	}

	var electives []Elective
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		fields := rowFields(row)
		if len(fields) < 4 {
			return
		}
		electives = append(electives, Elective{
			Code:    field(fields, 0),
			Name:    field(fields, 1),
			Teacher: field(fields, 2),
			Status:  field(fields, 3),
		})
	})
	return electives, nil
}
