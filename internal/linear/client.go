// Package linear provides one-way synchronization between board state and
// the Linear issue tracker. A GitHub issue is mapped to its Linear
// counterpart by a team-prefixed identifier at the start of the issue title
// (e.g. "JS-1234: fix thing").
package linear

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/shurcooL/graphql"

	"github.com/danielolaszy/boardbot/internal/config"
	"github.com/danielolaszy/boardbot/internal/logging"
	"github.com/danielolaszy/boardbot/pkg/models"
)

const apiEndpoint = "https://api.linear.app/graphql"

// ErrNoTrackerLink reports that an issue title carries no tracker
// identifier. Issues without a Linear counterpart are legitimate; callers
// treat this as "not tracker-linked", not a hard failure.
var ErrNoTrackerLink = errors.New("no tracker identifier in issue title")

// UnsupportedTeamError reports a team prefix missing from the state table.
type UnsupportedTeamError struct {
	Team string
}

func (e *UnsupportedTeamError) Error() string {
	return fmt.Sprintf("team %q has no configured tracker state ids", e.Team)
}

// UnsupportedPriorityError reports a Linear priority with no board mapping.
type UnsupportedPriorityError struct {
	Priority string
}

func (e *UnsupportedPriorityError) Error() string {
	return fmt.Sprintf("priority %q has no configured board option", e.Priority)
}

// stateKeys maps canonical statuses to the tracker state table keys.
var stateKeys = map[models.Status]string{
	models.StatusNew:        "readyForDev",
	models.StatusInProgress: "inProgress",
	models.StatusInReview:   "inReview",
	models.StatusDone:       "done",
}

// Board is the subset of project data access the tracker sync writes
// through when mirroring Priority and Size onto the board.
type Board interface {
	FindFieldOptionID(ctx context.Context, projectID, fieldName, optionName string) (string, error)
	SetField(ctx context.Context, projectID, itemID, fieldName, optionID string) error
}

// Client handles interactions with the Linear API.
type Client struct {
	client     *graphql.Client
	board      Board
	states     map[string]map[string]string
	priorities map[string]string
	sizes      map[string]string
	identifier *regexp.Regexp
}

// apiKeyTransport adds the Linear API key to every request. Linear expects
// the bare key in the Authorization header, not a Bearer token.
type apiKeyTransport struct {
	key string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", t.key)
	return http.DefaultTransport.RoundTrip(req)
}

// NewClient creates a new Linear API client from the given configuration.
func NewClient(cfg *config.Config, board Board) (*Client, error) {
	if err := config.ValidateLinearConfig(cfg); err != nil {
		return nil, err
	}

	logging.Info("linear configuration",
		"teams", cfg.Linear.Teams,
		"api_key", logging.MaskSensitive(cfg.Linear.APIKey))

	httpClient := &http.Client{Transport: &apiKeyTransport{key: cfg.Linear.APIKey}}

	return &Client{
		client:     graphql.NewClient(apiEndpoint, httpClient),
		board:      board,
		states:     cfg.Linear.States,
		priorities: cfg.Linear.Priorities,
		sizes:      cfg.Linear.Sizes,
		identifier: identifierPattern(cfg.Linear.Teams),
	}, nil
}

// identifierPattern builds the title prefix pattern for the configured
// teams, anchored at the start of the title.
func identifierPattern(teams []string) *regexp.Regexp {
	quoted := make([]string, len(teams))
	for i, team := range teams {
		quoted[i] = regexp.QuoteMeta(team)
	}
	return regexp.MustCompile(`^(` + strings.Join(quoted, "|") + `)(-|\s)(\d{1,5})`)
}

// ExtractIdentifier extracts the tracker identifier and team prefix from an
// issue title. Returns ErrNoTrackerLink when the title has no identifier.
func (c *Client) ExtractIdentifier(title string) (id, team string, err error) {
	match := c.identifier.FindStringSubmatch(title)
	if match == nil {
		return "", "", fmt.Errorf("title %q: %w", title, ErrNoTrackerLink)
	}
	return match[0], match[1], nil
}

// PushStatus moves the tracker issue linked to a GitHub issue into the
// workflow state corresponding to the canonical status.
func (c *Client) PushStatus(ctx context.Context, issue models.Issue, status models.Status) error {
	id, team, err := c.ExtractIdentifier(issue.Title)
	if err != nil {
		return err
	}

	key, ok := stateKeys[status]
	if !ok {
		return fmt.Errorf("status %q has no tracker state key", status)
	}
	stateID, ok := c.states[key][team]
	if !ok {
		return &UnsupportedTeamError{Team: team}
	}

	linearID, err := c.issueID(ctx, id)
	if err != nil {
		return err
	}

	var m struct {
		IssueUpdate struct {
			Success graphql.Boolean
		} `graphql:"issueUpdate(id: $id, input: $input)"`
	}
	vars := map[string]interface{}{
		"id":    graphql.String(linearID),
		"input": IssueUpdateInput{StateID: graphql.String(stateID)},
	}
	if err := c.client.Mutate(ctx, &m, vars); err != nil {
		return fmt.Errorf("failed to update tracker issue %s state: %w", id, err)
	}

	logging.Debug("tracker status pushed", "tracker_id", id, "status", status)
	return nil
}

// PushField mirrors a tracker field onto the board item. Supported fields
// are "Priority" (unmapped value is a configuration error) and "Size" (an
// absent estimate is a legitimate no-op).
func (c *Client) PushField(ctx context.Context, projectID string, issue models.Issue, itemID, fieldName string) error {
	id, _, err := c.ExtractIdentifier(issue.Title)
	if err != nil {
		return err
	}

	fields, err := c.issueFields(ctx, id)
	if err != nil {
		return err
	}

	var optionName string
	switch fieldName {
	case "Priority":
		optionName, err = c.priorityOption(fields.PriorityLabel)
		if err != nil {
			return err
		}
	case "Size":
		if fields.Estimate == nil {
			logging.Debug("tracker issue has no estimate", "tracker_id", id)
			return nil
		}
		optionName, err = c.sizeOption(*fields.Estimate)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("field %q cannot be synced from the tracker", fieldName)
	}

	optionID, err := c.board.FindFieldOptionID(ctx, projectID, fieldName, optionName)
	if err != nil {
		return err
	}
	return c.board.SetField(ctx, projectID, itemID, fieldName, optionID)
}

// priorityOption maps a Linear priority label to a board option name.
func (c *Client) priorityOption(label string) (string, error) {
	option, ok := c.priorities[label]
	if !ok {
		return "", &UnsupportedPriorityError{Priority: label}
	}
	return option, nil
}

// sizeOption maps a Linear estimate to a board option name.
func (c *Client) sizeOption(estimate float64) (string, error) {
	key := strconv.FormatFloat(estimate, 'f', -1, 64)
	option, ok := c.sizes[key]
	if !ok {
		return "", fmt.Errorf("estimate %s has no configured board option", key)
	}
	return option, nil
}

// PostComment posts a comment on the tracker issue linked to a GitHub
// issue. Best-effort: the error surfaces to the caller but is never retried.
func (c *Client) PostComment(ctx context.Context, issue models.Issue, body string) error {
	id, _, err := c.ExtractIdentifier(issue.Title)
	if err != nil {
		return err
	}

	linearID, err := c.issueID(ctx, id)
	if err != nil {
		return err
	}

	var m struct {
		CommentCreate struct {
			Success graphql.Boolean
		} `graphql:"commentCreate(input: $input)"`
	}
	vars := map[string]interface{}{
		"input": CommentCreateInput{IssueID: graphql.String(linearID), Body: graphql.String(body)},
	}
	if err := c.client.Mutate(ctx, &m, vars); err != nil {
		return fmt.Errorf("failed to comment on tracker issue %s: %w", id, err)
	}
	return nil
}

// issueFieldData is the subset of tracker issue fields the bot mirrors.
type issueFieldData struct {
	ID            string
	PriorityLabel string
	Estimate      *float64
}

// issueID resolves the tracker issue's internal id from its identifier.
func (c *Client) issueID(ctx context.Context, identifier string) (string, error) {
	fields, err := c.issueFields(ctx, identifier)
	if err != nil {
		return "", err
	}
	return fields.ID, nil
}

// issueFields fetches the tracker issue by its team-prefixed identifier.
// The issue must already exist; this bot never creates tracker issues.
func (c *Client) issueFields(ctx context.Context, identifier string) (issueFieldData, error) {
	var q struct {
		Issue struct {
			ID            graphql.String
			PriorityLabel graphql.String
			Estimate      *graphql.Float
		} `graphql:"issue(id: $id)"`
	}

	vars := map[string]interface{}{
		"id": graphql.String(identifier),
	}
	if err := c.client.Query(ctx, &q, vars); err != nil {
		return issueFieldData{}, fmt.Errorf("failed to fetch tracker issue %s: %w", identifier, err)
	}

	data := issueFieldData{
		ID:            string(q.Issue.ID),
		PriorityLabel: string(q.Issue.PriorityLabel),
	}
	if q.Issue.Estimate != nil {
		estimate := float64(*q.Issue.Estimate)
		data.Estimate = &estimate
	}
	return data, nil
}

// IssueUpdateInput mirrors Linear's IssueUpdateInput mutation input.
type IssueUpdateInput struct {
	StateID graphql.String `json:"stateId"`
}

// CommentCreateInput mirrors Linear's CommentCreateInput mutation input.
type CommentCreateInput struct {
	IssueID graphql.String `json:"issueId"`
	Body    graphql.String `json:"body"`
}
