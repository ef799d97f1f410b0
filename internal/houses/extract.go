package houses

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tibialabs/tibia-houses/internal/tibia"
)

// ExtractResidences walks a loaded houses page and assembles every
// listing row into a House. Row-level problems are collected in the
// result; only a missing container, a maintenance page, or a page that
// describes a different resource abort the whole extraction.
func ExtractResidences(page *tibia.Page, world, town string, kind HouseType, now time.Time) (*ExtractionResult, error) {
	mc, err := page.MainContent()
	if err != nil {
		return nil, err
	}

	// Tibia answers 200 for unknown towns and worlds; the header text
	// is the only reliable discriminator.
	header := page.HeaderText()
	want := fmt.Sprintf(" in %s on %s", town, world)
	if !strings.Contains(header, want) {
		return nil, &tibia.NotFoundError{
			Resource: fmt.Sprintf("%ss in %s on %s", kind, town, world),
		}
	}

	table, cols, err := findListingTable(mc)
	if err != nil {
		return nil, err
	}

	var results []rowResult
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		if isNoResultsRow(row) {
			return
		}
		results = append(results, extractRow(i, row, cols, world, town, kind, now))
	})

	return fold(results), nil
}

// columnIndex maps the labelled columns of the listing table to their
// positions. Lookup is by header label, not by a hardcoded order, so an
// inserted or reordered column upstream cannot silently shift meaning.
type columnIndex struct {
	name, size, rent, status int
}

func (c columnIndex) max() int {
	m := c.name
	for _, v := range []int{c.size, c.rent, c.status} {
		if v > m {
			m = v
		}
	}
	return m
}

const listingAnchor = `.TableContainer table.TableContent with Name/Size/Rent/Status header`

func findListingTable(mc *goquery.Selection) (*goquery.Selection, columnIndex, error) {
	var (
		found *goquery.Selection
		cols  columnIndex
	)
	mc.Find(".TableContainer table.TableContent").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		c, ok := headerColumns(table)
		if !ok {
			return true
		}
		found, cols = table, c
		return false
	})
	if found == nil {
		return nil, columnIndex{}, &tibia.ContainerNotFoundError{Anchor: listingAnchor}
	}
	return found, cols, nil
}

func headerColumns(table *goquery.Selection) (columnIndex, bool) {
	cols := columnIndex{name: -1, size: -1, rent: -1, status: -1}
	table.Find("tr").First().Find("td,th").Each(func(i int, cell *goquery.Selection) {
		switch label := strings.ToLower(tibia.CleanText(cell.Text())); {
		case strings.Contains(label, "name"):
			cols.name = i
		case strings.Contains(label, "size"):
			cols.size = i
		case strings.Contains(label, "rent"):
			cols.rent = i
		case strings.Contains(label, "status"):
			cols.status = i
		}
	})
	ok := cols.name >= 0 && cols.size >= 0 && cols.rent >= 0 && cols.status >= 0
	return cols, ok
}

var noResultsRe = regexp.MustCompile(`(?i)^no (houses?|guildhalls?) found`)

// A town with nothing listed renders a single merged cell instead of
// listing rows. That page is well-formed and simply empty.
func isNoResultsRow(row *goquery.Selection) bool {
	cells := row.Find("td")
	return cells.Length() == 1 && noResultsRe.MatchString(tibia.CleanText(cells.Text()))
}

func extractRow(rowIdx int, row *goquery.Selection, cols columnIndex, world, town string, kind HouseType, now time.Time) rowResult {
	fail := func(field, reason string) rowResult {
		return rowResult{Row: rowIdx, Failure: &RowFailure{Row: rowIdx, Field: field, Reason: reason}}
	}

	cells := row.Find("td")
	if cells.Length() <= cols.max() {
		return fail("", fmt.Sprintf("row has %d cells, expected at least %d", cells.Length(), cols.max()+1))
	}

	idAttr, ok := row.Find(`input[name="houseid"]`).First().Attr("value")
	if !ok {
		return fail("id", "houseid input not found in row")
	}
	id, err := ParseAmount(idAttr)
	if err != nil || id == 0 {
		return fail("id", fmt.Sprintf("invalid houseid %q", idAttr))
	}

	name := tibia.CleanText(cells.Eq(cols.name).Text())
	if name == "" {
		return fail("name", "empty name")
	}

	size, err := ParseSize(cells.Eq(cols.size).Text())
	if err != nil {
		return fail("size", err.Error())
	}

	rent, err := ParseRent(cells.Eq(cols.rent).Text())
	if err != nil {
		return fail("rent", err.Error())
	}

	status, err := ParseStatus(cells.Eq(cols.status).Text(), now)
	if err != nil {
		return fail("status", err.Error())
	}

	return rowResult{Row: rowIdx, House: &House{
		ID:     id,
		World:  world,
		Town:   town,
		Type:   kind,
		Name:   name,
		Size:   size,
		Rent:   rent,
		Status: status,
	}}
}
