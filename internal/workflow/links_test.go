package workflow

import "testing"

func TestLinksToIssue(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "fixes with number",
			body: "fixes #42",
			want: true,
		},
		{
			name: "closes in a sentence",
			body: "This closes the gap described in #17.",
			want: true,
		},
		{
			name: "resolve without number still matches",
			body: "should resolve the flaky retry",
			want: true,
		},
		{
			name: "resolved matches through the resolve keyword",
			body: "resolved the flaky retry",
			want: true,
		},
		{
			name: "keyword inside a longer word",
			body: "fixedpoint arithmetic cleanup",
			want: true,
		},
		{
			name: "no keyword",
			body: "refactors the retry loop",
			want: false,
		},
		{
			name: "empty body",
			body: "",
			want: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LinksToIssue(tc.body); got != tc.want {
				t.Errorf("LinksToIssue(%q) = %v, want %v", tc.body, got, tc.want)
			}
		})
	}
}

func TestIssueNumberFromBody(t *testing.T) {
	testCases := []struct {
		name      string
		body      string
		want      int
		wantFound bool
	}{
		{
			name:      "simple reference",
			body:      "fixes #42",
			want:      42,
			wantFound: true,
		},
		{
			name:      "digits stop at first non-digit",
			body:      "closes #123, and more",
			want:      123,
			wantFound: true,
		},
		{
			name:      "only the first hash is read",
			body:      "fixes #7 and touches #9",
			want:      7,
			wantFound: true,
		},
		{
			name:      "hash with no digits",
			body:      "see #ref for details",
			wantFound: false,
		},
		{
			name:      "trailing hash",
			body:      "see #",
			wantFound: false,
		},
		{
			name:      "no hash at all",
			body:      "fixes the retry loop",
			wantFound: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, found := IssueNumberFromBody(tc.body)
			if found != tc.wantFound {
				t.Fatalf("IssueNumberFromBody(%q) found = %v, want %v", tc.body, found, tc.wantFound)
			}
			if found && got != tc.want {
				t.Errorf("IssueNumberFromBody(%q) = %d, want %d", tc.body, got, tc.want)
			}
		})
	}
}
