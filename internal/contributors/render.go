// Package contributors maintains the contributors.json document and the
// generated contributors table in the repository README.
package contributors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/danielolaszy/boardbot/pkg/models"
)

// Sentinel markers delimiting the generated region of the README.
const (
	startMarker = "<!-- CONTRIBUTORS START -->"
	endMarker   = "<!-- CONTRIBUTORS END -->"
)

const cellsPerRow = 7

var markedRegion = regexp.MustCompile("(?s)" + regexp.QuoteMeta(startMarker) + ".*" + regexp.QuoteMeta(endMarker))

// RenderTable replaces the marked region of target with an HTML table of
// the given contributors, seven cells per row. A target without markers is
// returned unchanged.
func RenderTable(contributors []models.Contributor, target string) string {
	var table strings.Builder
	for row := 0; row*cellsPerRow < len(contributors); row++ {
		table.WriteString("<tr>\n")
		for col := 0; col < cellsPerRow && row*cellsPerRow+col < len(contributors); col++ {
			table.WriteString(renderCell(contributors[row*cellsPerRow+col]))
		}
		table.WriteString("</tr>\n")
	}

	replacement := startMarker + "\n<table>\n<tbody>" + table.String() + "</tbody>\n</table>\n" + endMarker
	return markedRegion.ReplaceAllString(target, replacement)
}

// renderCell renders one contributor cell with avatar, profile link and the
// list of unique contribution types.
func renderCell(contributor models.Contributor) string {
	name := contributor.Name
	if name == "" {
		name = contributor.Login
	}
	link := "http://github.com/" + contributor.Login

	var types []string
	seen := map[string]bool{}
	for _, contribution := range contributor.Contributions {
		if !seen[contribution.ContributionType] {
			seen[contribution.ContributionType] = true
			types = append(types, contribution.ContributionType)
		}
	}

	return fmt.Sprintf("<td valign=\"top\" width=\"%d%%\"><img src=\"%s\" /><br /><a href=\"%s\">%s</a><br />%s</td>\n",
		100/cellsPerRow, contributor.Avatar, link, name, strings.Join(types, ", "))
}
