package universe

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/valuescan/internal/contracts"
)

var digitsPattern = regexp.MustCompile(`\d+`)

// ExtractStrategy pulls security ids out of a parsed listings page.
// Strategies are tried in order; the first non-empty result wins.
type ExtractStrategy interface {
	Name() string
	Extract(doc *goquery.Document) ([]contracts.SecurityID, error)
}

// ParseDocument parses a raw HTML page
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// TableAnchorColumn reads the anchor text of one column of the first matching table.
// slickcharts: table.table, 3번째 컬럼이 심볼 링크
type TableAnchorColumn struct {
	TableSelector string
	Column        int
}

func (s TableAnchorColumn) Name() string {
	return fmt.Sprintf("anchor_column(%s,%d)", s.TableSelector, s.Column)
}

func (s TableAnchorColumn) Extract(doc *goquery.Document) ([]contracts.SecurityID, error) {
	table := doc.Find(s.TableSelector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("table %q not found", s.TableSelector)
	}

	var ids []contracts.SecurityID
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= s.Column {
			return
		}
		text := strings.TrimSpace(cells.Eq(s.Column).Find("a").First().Text())
		if id := contracts.NormalizeID(text); id != "" {
			ids = append(ids, id)
		}
	})

	return ids, nil
}

// HeaderColumn locates a column by header name in any table on the page.
// Numeric codes can be zero-padded and suffixed (e.g. "5" → "0005.HK").
type HeaderColumn struct {
	Headers []string // matched case-insensitively against th text
	Suffix  string
	Pad     int  // zero-pad width for numeric codes, 0 = none
	Numeric bool // keep only the first digit run of each cell
}

func (s HeaderColumn) Name() string {
	return fmt.Sprintf("header_column(%s)", strings.Join(s.Headers, "|"))
}

func (s HeaderColumn) Extract(doc *goquery.Document) ([]contracts.SecurityID, error) {
	var ids []contracts.SecurityID
	found := false

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		col := s.columnIndex(table)
		if col < 0 {
			return true
		}
		found = true

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() <= col {
				return
			}
			if id := s.normalize(cells.Eq(col).Text()); id != "" {
				ids = append(ids, id)
			}
		})

		// 첫 번째로 결과가 나온 테이블만 사용
		return len(ids) == 0
	})

	if !found {
		return nil, fmt.Errorf("no table with header %v", s.Headers)
	}
	return ids, nil
}

func (s HeaderColumn) columnIndex(table *goquery.Selection) int {
	idx := -1
	table.Find("tr").First().Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(th.Text()))
		for _, h := range s.Headers {
			if strings.Contains(text, strings.ToLower(h)) {
				idx = i
				return false
			}
		}
		return true
	})
	return idx
}

func (s HeaderColumn) normalize(raw string) contracts.SecurityID {
	text := strings.TrimSpace(raw)
	if s.Numeric {
		text = digitsPattern.FindString(text)
		if text == "" {
			return ""
		}
		if s.Pad > 0 {
			n, err := strconv.Atoi(text)
			if err != nil {
				return ""
			}
			text = fmt.Sprintf("%0*d", s.Pad, n)
		}
	}
	if text == "" {
		return ""
	}
	return contracts.NormalizeID(text + s.Suffix)
}

// AnchorClass collects anchors matching a selector whose text is all digits.
// Nikkei component page: <a class="ticker">7203</a>
type AnchorClass struct {
	Selector string
	Suffix   string
}

func (s AnchorClass) Name() string {
	return fmt.Sprintf("anchor(%s)", s.Selector)
}

func (s AnchorClass) Extract(doc *goquery.Document) ([]contracts.SecurityID, error) {
	var ids []contracts.SecurityID
	doc.Find(s.Selector).Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		if text == "" || digitsPattern.FindString(text) != text {
			return
		}
		ids = append(ids, contracts.NormalizeID(text+s.Suffix))
	})
	return ids, nil
}

// HKCode normalises a Hang Seng code to the 4-digit form ("00388.HK" → "0388.HK")
func HKCode(raw string) contracts.SecurityID {
	return HeaderColumn{Suffix: ".HK", Pad: 4, Numeric: true}.normalize(raw)
}
