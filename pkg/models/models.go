// Package models defines data structures shared across the application.
package models

// Status is one of the four canonical lifecycle states an issue moves
// through on the project board.
type Status string

const (
	// StatusNew means the issue is on the board and available to pick up.
	StatusNew Status = "New"

	// StatusInProgress means a contributor is assigned and working.
	StatusInProgress Status = "InProgress"

	// StatusInReview means a pull request is linked and under review.
	StatusInReview Status = "InReview"

	// StatusDone means the linked pull request was merged.
	StatusDone Status = "Done"
)

// Statuses lists every canonical status in lifecycle order.
var Statuses = []Status{StatusNew, StatusInProgress, StatusInReview, StatusDone}

// Valid reports whether s is one of the four canonical statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// DefaultStatusNames maps canonical statuses to the display names of the
// board's single-select "Status" options. The board owns the display names;
// these defaults can be overridden in configuration.
var DefaultStatusNames = map[Status]string{
	StatusNew:        "🆕 New",
	StatusInProgress: "🏗 In progress",
	StatusInReview:   "👀 In review",
	StatusDone:       "✅ Done",
}

// Issue represents a GitHub issue with the fields the bot acts on.
type Issue struct {
	// Number is the issue number in GitHub (e.g., 42)
	Number int

	// Title is the issue's title, which may carry a tracker identifier
	// prefix like "JS-1234: fix thing"
	Title string

	// Repository is the repository name the issue lives in
	Repository string

	// State is "open" or "closed"
	State string

	// Assignee is the login of the current assignee, if any
	Assignee string
}

// LinkedPullRequest identifies a pull request linked to a board item by
// GitHub's own project-linking mechanism.
type LinkedPullRequest struct {
	Number     int
	Repository string
}

// ProjectItem is one board entry wrapping a single issue.
type ProjectItem struct {
	// ID is the opaque project item id, scoped to one project
	ID string

	// IssueNumber is the wrapped issue's number
	IssueNumber int

	// Title is the wrapped issue's title
	Title string

	// Repository is the wrapped issue's repository name
	Repository string

	// Status is the display name of the item's Status option, as stored
	// on the board (not the canonical name)
	Status string

	// LinkedPullRequests is the read-only "Linked pull requests" field,
	// maintained by GitHub itself
	LinkedPullRequests []LinkedPullRequest
}

// Issue returns the issue identity wrapped by this item.
func (p ProjectItem) Issue() Issue {
	return Issue{
		Number:     p.IssueNumber,
		Title:      p.Title,
		Repository: p.Repository,
	}
}

// PullRequest carries the pull request state the core cares about.
type PullRequest struct {
	Number     int
	Repository string
	URL        string
	Closed     bool
	Merged     bool
}

// Field is a project field with its single-select options, if any.
type Field struct {
	ID      string
	Name    string
	Options []FieldOption
}

// FieldOption is one option of a single-select project field.
type FieldOption struct {
	ID   string
	Name string
}

// Contribution is a single recognized contribution.
type Contribution struct {
	ContributionType string `json:"contributionType"`
	Context          string `json:"context"`
	AdditionalInfo   string `json:"additionalInfo"`
	CreatedAt        string `json:"createdAt"`
}

// Contributor is one entry in contributors.json.
type Contributor struct {
	Login         string         `json:"login"`
	Name          string         `json:"name"`
	Avatar        string         `json:"avatar"`
	Contributions []Contribution `json:"contributions"`
}

// ContributorsFile is the full contributors.json document.
type ContributorsFile struct {
	Contributors []Contributor `json:"contributors"`
	Types        []string      `json:"types"`
}
