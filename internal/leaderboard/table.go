package leaderboard

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cell is one <td>/<th> with its logical column. Columns are 1-based and
// account for colspan on earlier cells in the same row.
type cell struct {
	sel  *goquery.Selection
	text string
	col  int
	span int
}

// linkText prefers the text of the first <a> in the cell.
func (c cell) linkText() string {
	if a := c.sel.Find("a").First(); a.Length() > 0 {
		return strings.TrimSpace(a.Text())
	}
	return c.text
}

func (c cell) linkTitle() string {
	title, _ := c.sel.Find("a").First().Attr("title")
	return title
}

// innerText prefers an <a> and then a <span> inside the cell.
func (c cell) innerText() string {
	if a := c.sel.Find("a").First(); a.Length() > 0 {
		return strings.TrimSpace(a.Text())
	}
	if s := c.sel.Find("span").First(); s.Length() > 0 {
		return strings.TrimSpace(s.Text())
	}
	return c.text
}

type row []cell

func newRow(tr *goquery.Selection) row {
	cells := tr.ChildrenFiltered("td, th")
	r := make(row, 0, cells.Length())
	col := 1
	cells.Each(func(_ int, s *goquery.Selection) {
		span := 1
		if v, ok := s.Attr("colspan"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 1 {
				span = n
			}
		}
		r = append(r, cell{
			sel:  s,
			text: strings.TrimSpace(s.Text()),
			col:  col,
			span: span,
		})
		col += span
	})
	return r
}

// at returns the cell at a physical (0-based) index.
func (r row) at(i int) (cell, bool) {
	if i < 0 || i >= len(r) {
		return cell{}, false
	}
	return r[i], true
}

// covering returns the cell whose span includes logical column col.
func (r row) covering(col int) (cell, bool) {
	for _, c := range r {
		if col >= c.col && col < c.col+c.span {
			return c, true
		}
	}
	return cell{}, false
}

func (r row) last() (cell, bool) {
	return r.at(len(r) - 1)
}

// header maps captions to the logical column they start at.
type header struct {
	captions []string
	columns  map[string]int
}

func newHeader(r row) header {
	h := header{columns: make(map[string]int, len(r))}
	for _, c := range r {
		h.captions = append(h.captions, c.text)
		if _, dup := h.columns[c.text]; !dup && c.text != "" {
			h.columns[c.text] = c.col
		}
	}
	return h
}

// lookup resolves a captioned column through the header and falls back
// to a fixed physical index when the caption is absent.
func (h header) lookup(r row, caption string, index int) (cell, bool) {
	if col, ok := h.columns[caption]; ok {
		return r.covering(col)
	}
	return r.at(index)
}
