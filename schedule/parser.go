// Package schedule fetches and parses the portal's weekly schedule grid.
//
// The grid is an HTML table with one row per class period and one column
// per weekday. A cell holds zero or more course blocks as <br>-separated
// lines; each block ends at its weeks+sections line, with nothing
// guaranteed to separate one block from the next.
package schedule

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/campusbox/jwxt"
)

// unknownField fills Course fields the cell did not state.
const unknownField = "N/A"

// Course is one parsed schedule entry. Day is the weekday column, 1 for
// Monday; Slot is the period row, 1 for the first period.
type Course struct {
	Name     string
	Teacher  string
	Location string
	Weeks    string
	Sections string
	Day      int
	Slot     int
}

// timeRe matches the block's closing line: an optional leading fragment,
// a week range like "1-16周" or "1-16(单)周", then a section list like
// "1,2节". Full-width commas appear in some terms' output.
var timeRe = regexp.MustCompile(`^(.*?)\s*([0-9,，\-]+(?:\([单双]\))?周)\s*([0-9,，\-]+节)$`)

// Parse extracts every course block from the schedule grid page. A page
// without a recognizable grid table is a parse error; a grid whose cells
// are all empty is a valid empty schedule.
func Parse(page string) ([]Course, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jwxt.ErrParse, err)
	}

	table := gridTable(doc)
	if table == nil {
		return nil, fmt.Errorf("%w: no schedule table found", jwxt.ErrParse)
	}

	var courses []Course
	slot := 0
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			// Header row.
			return
		}
		slot++

		cells.Each(func(col int, cell *goquery.Selection) {
			if col == 0 {
				// Period label column.
				return
			}
			for _, block := range splitBlocks(cellText(cell)) {
				course, ok := parseBlock(block)
				if !ok {
					continue
				}
				course.Day = col
				course.Slot = slot
				courses = append(courses, course)
			}
		})
	})

	return courses, nil
}

// gridTable picks the table with the most rows. The schedule page carries
// layout tables around the grid; the grid dwarfs them.
func gridTable(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestRows := 0
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		if rows := t.Find("tr").Length(); rows > bestRows {
			best = t
			bestRows = rows
		}
	})
	if bestRows < 2 {
		return nil
	}
	return best
}

// cellText renders a cell to plain text with <br> becoming newlines and
// every other tag dropped.
func cellText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		renderText(n, &b)
	}
	return b.String()
}

func renderText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	if n.Type == html.ElementNode && n.Data == "br" {
		b.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(c, b)
	}
}

// splitBlocks walks a cell's lines with a cursor and closes each block at
// the first line carrying the weeks+sections tail. Blocks are not
// reliably separated by blank lines, so a line that reads like a fresh
// course name also closes the block in front of it when no tail has been
// seen yet.
func splitBlocks(text string) [][]string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	var blocks [][]string
	for i := 0; i < len(lines); {
		end := len(lines)
		for j := i; j < len(lines); j++ {
			if timeRe.MatchString(lines[j]) {
				end = j + 1
				break
			}
			if j > i && looksLikeCourseName(lines[j]) {
				end = j
				break
			}
		}
		blocks = append(blocks, lines[i:end])
		i = end
	}
	return blocks
}

// digitRunRe finds paired digits like "1,2", "3-4" or "12" that mark
// week or section data rather than a course title.
var digitRunRe = regexp.MustCompile(`[0-9][,，\-]?[0-9]`)

// looksLikeCourseName reports whether a line reads as the start of the
// next block: short, no teacher/location separator, no week or section
// keyword, no paired digits.
func looksLikeCourseName(line string) bool {
	return !strings.Contains(line, "@") &&
		!strings.ContainsAny(line, "周节") &&
		!digitRunRe.MatchString(line) &&
		utf8.RuneCountInString(line) <= 24
}

// parseBlock interprets one course block. The closing line carries the
// week range and section list; whatever preceded them on that line joins
// the earlier lines as descriptive text. The first descriptive line is
// the course name and the remainder splits on the last "@" into teacher
// and location. Missing pieces stay "N/A" rather than failing the grid.
func parseBlock(lines []string) (Course, bool) {
	if len(lines) == 0 {
		return Course{}, false
	}

	m := timeRe.FindStringSubmatch(lines[len(lines)-1])
	if m == nil {
		// Closed by a name boundary; nothing schedulable in it.
		return Course{}, false
	}

	course := Course{
		Name:     unknownField,
		Teacher:  unknownField,
		Location: unknownField,
		Weeks:    m[2],
		Sections: m[3],
	}

	desc := append([]string{}, lines[:len(lines)-1]...)
	if rem := strings.TrimSpace(m[1]); rem != "" {
		desc = append(desc, rem)
	}
	if len(desc) == 0 {
		return course, true
	}

	if !strings.Contains(desc[0], "@") {
		course.Name = desc[0]
		desc = desc[1:]
	}

	rest := strings.TrimSpace(strings.Join(desc, " "))
	if rest == "" {
		return course, true
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		if teacher := strings.TrimSpace(rest[:at]); teacher != "" {
			course.Teacher = teacher
		}
		if loc := strings.TrimSpace(rest[at+1:]); loc != "" {
			course.Location = loc
		}
	} else {
		course.Teacher = rest
	}

	return course, true
}
