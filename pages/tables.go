package pages

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/campusbox/jwxt"
)

// parseDoc wraps goquery document construction with the package's error
// taxonomy.
func parseDoc(page string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jwxt.ErrParse, err)
	}
	return doc, nil
}

// mainTable picks the table with the most rows. Portal pages wrap their
// data table in layout tables; the data table always has the most rows.
func mainTable(doc *goquery.Document) (*goquery.Selection, error) {
	var best *goquery.Selection
	bestRows := 0
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		if rows := t.Find("tr").Length(); rows > bestRows {
			best = t
			bestRows = rows
		}
	})
	if bestRows < 2 {
		return nil, fmt.Errorf("%w: no data table found", jwxt.ErrParse)
	}
	return best, nil
}

// rowFields returns the trimmed text of every td in a row, nil for
// header rows.
func rowFields(row *goquery.Selection) []string {
	cells := row.Find("td")
	if cells.Length() == 0 {
		return nil
	}
	fields := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		fields = append(fields, strings.TrimSpace(cell.Text()))
	})
	return fields
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
