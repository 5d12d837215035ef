package contributors

import (
	"strings"
	"testing"

	"github.com/danielolaszy/boardbot/pkg/models"
)

func contributor(login string, types ...string) models.Contributor {
	c := models.Contributor{
		Login:  login,
		Avatar: "https://avatars.githubusercontent.com/" + login,
	}
	for _, t := range types {
		c.Contributions = append(c.Contributions, models.Contribution{ContributionType: t})
	}
	return c
}

func TestRenderTable(t *testing.T) {
	readme := "# Project\n\n" + startMarker + "\nold table\n" + endMarker + "\n\nfooter"

	result := RenderTable([]models.Contributor{
		contributor("alice", "code", "doc"),
		contributor("bob", "code"),
	}, readme)

	if strings.Contains(result, "old table") {
		t.Error("old region content should be replaced")
	}
	if !strings.HasPrefix(result, "# Project") || !strings.HasSuffix(result, "footer") {
		t.Error("content outside the markers must be preserved")
	}
	if !strings.Contains(result, "<a href=\"http://github.com/alice\">alice</a>") {
		t.Error("expected a profile link for alice")
	}
	if !strings.Contains(result, "code, doc") {
		t.Error("expected alice's contribution types")
	}
}

func TestRenderTableDeduplicatesTypes(t *testing.T) {
	result := RenderTable([]models.Contributor{
		contributor("alice", "code", "code", "doc"),
	}, startMarker+endMarker)

	if strings.Contains(result, "code, code") {
		t.Errorf("duplicate contribution types should collapse: %s", result)
	}
}

func TestRenderTableRowWrapping(t *testing.T) {
	var contributors []models.Contributor
	for _, login := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		contributors = append(contributors, contributor(login, "code"))
	}

	result := RenderTable(contributors, startMarker+endMarker)

	if got := strings.Count(result, "<tr>"); got != 2 {
		t.Errorf("expected 8 contributors to span 2 rows, got %d", got)
	}
}

func TestRenderTableWithoutMarkers(t *testing.T) {
	readme := "# Project without markers"

	if got := RenderTable([]models.Contributor{contributor("alice", "code")}, readme); got != readme {
		t.Errorf("target without markers must be unchanged, got %q", got)
	}
}

func TestRenderTablePrefersDisplayName(t *testing.T) {
	c := contributor("alice", "code")
	c.Name = "Alice Example"

	result := RenderTable([]models.Contributor{c}, startMarker+endMarker)

	if !strings.Contains(result, ">Alice Example</a>") {
		t.Error("expected the display name in the profile link")
	}
}
