// Package github provides functionality for interacting with the GitHub API,
// covering both the REST surface (issues, labels, assignees, comments,
// repository contents) and the Projects v2 GraphQL surface.
package github

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v41/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/danielolaszy/boardbot/internal/config"
	"github.com/danielolaszy/boardbot/internal/logging"
	"github.com/danielolaszy/boardbot/pkg/models"
)

// ErrNotFound reports that a requested entity (project, item, label, file)
// does not exist. Callers often treat it as benign and fall back to creation.
var ErrNotFound = errors.New("not found")

// ErrAlreadyLinked reports that an issue is already present on the board.
var ErrAlreadyLinked = errors.New("issue already linked to project")

// InvalidOptionError reports a status option name outside the canonical set.
type InvalidOptionError struct {
	Option string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid status field option: %q", e.Option)
}

// Client encapsulates the GitHub API clients scoped to one organization.
type Client struct {
	rest    *github.Client
	graphql *githubv4.Client
	org     string

	// statusOptions is the set of board Status display names considered
	// canonical; anything else is a data-integrity fault.
	statusOptions map[string]bool
}

// NewClient creates a new GitHub API client from the given configuration.
// It authenticates with a static token, tests the connection, and returns
// the configured client or an error if initialization fails.
func NewClient(cfg *config.Config) (*Client, error) {
	token := cfg.GitHub.Token
	if token == "" {
		return nil, fmt.Errorf("github token not found in configuration")
	}

	logging.Info("github configuration",
		"organization", cfg.Bot.Organization,
		"token", logging.MaskSensitive(token))

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	statusOptions := make(map[string]bool, len(models.Statuses))
	for _, name := range cfg.StatusNames() {
		statusOptions[name] = true
	}

	client := &Client{
		rest:          github.NewClient(tc),
		graphql:       githubv4.NewClient(tc),
		org:           cfg.Bot.Organization,
		statusOptions: statusOptions,
	}

	// Test the token
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, _, err := client.rest.Users.Get(ctx, "")
	if err != nil {
		logging.Error("failed to test github token", "error", err)
		return nil, fmt.Errorf("error testing github token: %w", err)
	}

	logging.Info("github authentication successful", "username", user.GetLogin())

	return client, nil
}

// GetIssue retrieves a single issue and converts it to our internal model.
func (c *Client) GetIssue(ctx context.Context, repo string, issueNumber int) (models.Issue, error) {
	issue, _, err := c.rest.Issues.Get(ctx, c.org, repo, issueNumber)
	if err != nil {
		return models.Issue{}, fmt.Errorf("failed to get issue %s#%d: %w", repo, issueNumber, err)
	}

	result := models.Issue{
		Number:     issue.GetNumber(),
		Title:      issue.GetTitle(),
		Repository: repo,
		State:      issue.GetState(),
	}
	if issue.Assignee != nil {
		result.Assignee = issue.Assignee.GetLogin()
	}
	return result, nil
}

// AddLabel adds a label to a GitHub issue. If the label doesn't exist in the
// repository, GitHub will create it automatically.
func (c *Client) AddLabel(ctx context.Context, repo string, issueNumber int, label string) error {
	logging.Debug("adding label", "label", label, "repository", repo, "issue_number", issueNumber)

	_, _, err := c.rest.Issues.AddLabelsToIssue(ctx, c.org, repo, issueNumber, []string{label})
	if err != nil {
		return fmt.Errorf("failed to add label %q to issue %s#%d: %w", label, repo, issueNumber, err)
	}
	return nil
}

// RemoveLabel removes a label from a GitHub issue. Removing a label that is
// already absent is an error from the API; callers treat it as best-effort.
func (c *Client) RemoveLabel(ctx context.Context, repo string, issueNumber int, label string) error {
	logging.Debug("removing label", "label", label, "repository", repo, "issue_number", issueNumber)

	_, err := c.rest.Issues.RemoveLabelForIssue(ctx, c.org, repo, issueNumber, label)
	if err != nil {
		return fmt.Errorf("failed to remove label %q from issue %s#%d: %w", label, repo, issueNumber, err)
	}
	return nil
}

// AddAssignee assigns a user to a GitHub issue.
func (c *Client) AddAssignee(ctx context.Context, repo string, issueNumber int, assignee string) error {
	logging.Debug("adding assignee", "assignee", assignee, "repository", repo, "issue_number", issueNumber)

	_, _, err := c.rest.Issues.AddAssignees(ctx, c.org, repo, issueNumber, []string{assignee})
	if err != nil {
		return fmt.Errorf("failed to assign %q to issue %s#%d: %w", assignee, repo, issueNumber, err)
	}
	return nil
}

// RemoveAssignee removes a user from a GitHub issue's assignees.
func (c *Client) RemoveAssignee(ctx context.Context, repo string, issueNumber int, assignee string) error {
	logging.Debug("removing assignee", "assignee", assignee, "repository", repo, "issue_number", issueNumber)

	_, _, err := c.rest.Issues.RemoveAssignees(ctx, c.org, repo, issueNumber, []string{assignee})
	if err != nil {
		return fmt.Errorf("failed to unassign %q from issue %s#%d: %w", assignee, repo, issueNumber, err)
	}
	return nil
}

// CreateComment posts a comment on a GitHub issue.
func (c *Client) CreateComment(ctx context.Context, repo string, issueNumber int, body string) error {
	_, _, err := c.rest.Issues.CreateComment(ctx, c.org, repo, issueNumber, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to comment on issue %s#%d: %w", repo, issueNumber, err)
	}
	return nil
}

// GetPullRequest fetches the closed/merged state of a pull request.
func (c *Client) GetPullRequest(ctx context.Context, repo string, prNumber int) (models.PullRequest, error) {
	pr, _, err := c.rest.PullRequests.Get(ctx, c.org, repo, prNumber)
	if err != nil {
		return models.PullRequest{}, fmt.Errorf("failed to get pull request %s#%d: %w", repo, prNumber, err)
	}

	return models.PullRequest{
		Number:     pr.GetNumber(),
		Repository: repo,
		URL:        pr.GetHTMLURL(),
		Closed:     pr.GetState() == "closed",
		Merged:     pr.GetMerged(),
	}, nil
}

// GetUser fetches a user's public profile for the contributors file.
func (c *Client) GetUser(ctx context.Context, login string) (models.Contributor, error) {
	user, resp, err := c.rest.Users.Get(ctx, login)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return models.Contributor{}, fmt.Errorf("user %q: %w", login, ErrNotFound)
		}
		return models.Contributor{}, fmt.Errorf("failed to get user %q: %w", login, err)
	}

	return models.Contributor{
		Login:  user.GetLogin(),
		Name:   user.GetName(),
		Avatar: user.GetAvatarURL(),
	}, nil
}

// GetFile fetches a file's decoded content and blob SHA from a branch.
// Returns ErrNotFound when the file does not exist on that ref.
func (c *Client) GetFile(ctx context.Context, repo, path, ref string) (content, sha string, err error) {
	file, _, resp, err := c.rest.Repositories.GetContents(ctx, c.org, repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return "", "", fmt.Errorf("%s@%s: %w", path, ref, ErrNotFound)
		}
		return "", "", fmt.Errorf("failed to get %s@%s: %w", path, ref, err)
	}
	if file == nil {
		return "", "", fmt.Errorf("%s@%s is not a file", path, ref)
	}

	content, err = file.GetContent()
	if err != nil {
		return "", "", fmt.Errorf("failed to decode %s@%s: %w", path, ref, err)
	}
	return content, file.GetSHA(), nil
}

// PutFile creates or updates a file on a branch. An empty sha creates the
// file; a non-empty sha updates the existing blob.
func (c *Client) PutFile(ctx context.Context, repo, path, branch, message, content, sha string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(branch),
	}
	if sha != "" {
		opts.SHA = github.String(sha)
	}

	_, _, err := c.rest.Repositories.UpdateFile(ctx, c.org, repo, path, opts)
	if err != nil {
		return fmt.Errorf("failed to write %s on %s: %w", path, branch, err)
	}
	return nil
}

// EnsureBranch creates branch from the head of base if it does not exist.
func (c *Client) EnsureBranch(ctx context.Context, repo, branch, base string) error {
	_, _, err := c.rest.Repositories.GetBranch(ctx, c.org, repo, branch, true)
	if err == nil {
		return nil
	}

	baseBranch, _, err := c.rest.Repositories.GetBranch(ctx, c.org, repo, base, true)
	if err != nil {
		return fmt.Errorf("failed to get base branch %q: %w", base, err)
	}

	_, _, err = c.rest.Git.CreateRef(ctx, c.org, repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: baseBranch.Commit.SHA},
	})
	if err != nil {
		return fmt.Errorf("failed to create branch %q: %w", branch, err)
	}
	return nil
}

// CreatePullRequest opens a pull request from head into base.
func (c *Client) CreatePullRequest(ctx context.Context, repo, title, head, base, body string) error {
	_, _, err := c.rest.PullRequests.Create(ctx, c.org, repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to create pull request %q: %w", head, err)
	}
	return nil
}
