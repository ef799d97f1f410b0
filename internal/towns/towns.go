// Package towns extracts the town list from the houses landing page.
// The list doubles as the fan-out set for residence requests that do
// not name a town.
package towns

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/tibialabs/tibia-houses/internal/tibia"
)

const selectorAnchor = `#houses table.TableContent td[valign="top"] label`

// Extract pulls the town names out of the landing page's town picker.
// The picker is the last content table inside the #houses block, one
// label per town.
func Extract(page *tibia.Page) ([]string, error) {
	mc, err := page.MainContent()
	if err != nil {
		return nil, err
	}

	table := mc.Find("#houses table.TableContent").Last()
	if table.Length() == 0 {
		return nil, &tibia.ContainerNotFoundError{Anchor: selectorAnchor}
	}

	cell := table.Find(`tr > td[valign="top"]`).First()
	if cell.Length() == 0 {
		return nil, &tibia.ContainerNotFoundError{Anchor: selectorAnchor}
	}

	var names []string
	cell.Find("label").Each(func(_ int, label *goquery.Selection) {
		if name := tibia.CleanText(label.Text()); name != "" {
			names = append(names, name)
		}
	})
	if len(names) == 0 {
		return nil, &tibia.ContainerNotFoundError{Anchor: selectorAnchor}
	}
	return names, nil
}
