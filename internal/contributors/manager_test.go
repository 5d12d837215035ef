package contributors

import (
	"testing"

	"github.com/danielolaszy/boardbot/pkg/models"
)

func TestShouldSync(t *testing.T) {
	manager := &Manager{file: "contributors.json", branch: "main"}

	testCases := []struct {
		name    string
		ref     string
		changed []string
		want    bool
	}{
		{
			name:    "contributors file changed on the base branch",
			ref:     "refs/heads/main",
			changed: []string{"README.md", "contributors.json"},
			want:    true,
		},
		{
			name:    "other files changed on the base branch",
			ref:     "refs/heads/main",
			changed: []string{"README.md"},
			want:    false,
		},
		{
			name:    "contributors file changed on another branch",
			ref:     "refs/heads/new-contributors",
			changed: []string{"contributors.json"},
			want:    false,
		},
		{
			name: "empty push",
			ref:  "refs/heads/main",
			want: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := manager.ShouldSync(tc.ref, tc.changed); got != tc.want {
				t.Errorf("ShouldSync(%q, %v) = %v, want %v", tc.ref, tc.changed, got, tc.want)
			}
		})
	}
}

func TestUpsert(t *testing.T) {
	file := &models.ContributorsFile{
		Contributors: []models.Contributor{
			{Login: "alice", Name: "Alice", Contributions: []models.Contribution{{ContributionType: "code"}}},
		},
	}

	// Existing contributor gains a contribution and a refreshed profile.
	upsert(file, models.Contributor{Login: "alice", Name: "Alice Example", Avatar: "https://a.test/alice"},
		models.Contribution{ContributionType: "doc"})

	if len(file.Contributors) != 1 {
		t.Fatalf("expected 1 contributor, got %d", len(file.Contributors))
	}
	alice := file.Contributors[0]
	if alice.Name != "Alice Example" || alice.Avatar != "https://a.test/alice" {
		t.Errorf("profile should be refreshed, got %+v", alice)
	}
	if len(alice.Contributions) != 2 {
		t.Errorf("expected 2 contributions, got %d", len(alice.Contributions))
	}

	// Unknown contributor is appended.
	upsert(file, models.Contributor{Login: "bob"}, models.Contribution{ContributionType: "code"})
	if len(file.Contributors) != 2 || file.Contributors[1].Login != "bob" {
		t.Errorf("expected bob appended, got %+v", file.Contributors)
	}
}
