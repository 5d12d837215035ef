package github

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/danielolaszy/boardbot/internal/logging"
	"github.com/danielolaszy/boardbot/pkg/models"
)

// Page sizes for board reads. Boards larger than one page are a known
// scaling limit; pagination beyond it is not handled.
const (
	itemPageSize  = 100
	fieldPageSize = 20
)

// Board field names owned by GitHub.
const (
	StatusFieldName   = "Status"
	linkedPRFieldName = "Linked pull requests"
)

// ResolveProject returns the opaque project id for a project number within
// the client's organization.
func (c *Client) ResolveProject(ctx context.Context, projectNumber int) (string, error) {
	var q struct {
		Organization struct {
			ProjectV2 struct {
				ID string
			} `graphql:"projectV2(number: $number)"`
		} `graphql:"organization(login: $org)"`
	}

	vars := map[string]interface{}{
		"org":    githubv4.String(c.org),
		"number": githubv4.Int(projectNumber),
	}
	if err := c.graphql.Query(ctx, &q, vars); err != nil {
		return "", fmt.Errorf("failed to resolve project %d in %q: %w", projectNumber, c.org, err)
	}
	if q.Organization.ProjectV2.ID == "" {
		return "", fmt.Errorf("project %d in %q: %w", projectNumber, c.org, ErrNotFound)
	}
	return q.Organization.ProjectV2.ID, nil
}

// FindField returns a project field with its single-select options.
func (c *Client) FindField(ctx context.Context, projectID, fieldName string) (models.Field, error) {
	var q struct {
		Node struct {
			ProjectV2 struct {
				Fields struct {
					Nodes []struct {
						Common struct {
							ID   string
							Name string
						} `graphql:"... on ProjectV2Field"`
						SingleSelect struct {
							ID      string
							Name    string
							Options []struct {
								ID   string
								Name string
							}
						} `graphql:"... on ProjectV2SingleSelectField"`
					}
				} `graphql:"fields(first: $fieldPage)"`
			} `graphql:"... on ProjectV2"`
		} `graphql:"node(id: $projectId)"`
	}

	vars := map[string]interface{}{
		"projectId": githubv4.ID(projectID),
		"fieldPage": githubv4.Int(fieldPageSize),
	}
	if err := c.graphql.Query(ctx, &q, vars); err != nil {
		return models.Field{}, fmt.Errorf("failed to list project fields: %w", err)
	}

	for _, node := range q.Node.ProjectV2.Fields.Nodes {
		if node.SingleSelect.Name == fieldName {
			field := models.Field{ID: node.SingleSelect.ID, Name: node.SingleSelect.Name}
			for _, opt := range node.SingleSelect.Options {
				field.Options = append(field.Options, models.FieldOption{ID: opt.ID, Name: opt.Name})
			}
			return field, nil
		}
		if node.Common.Name == fieldName {
			return models.Field{ID: node.Common.ID, Name: node.Common.Name}, nil
		}
	}
	return models.Field{}, fmt.Errorf("project field %q: %w", fieldName, ErrNotFound)
}

// FindFieldOptionID returns the option id of a single-select field's option
// by display name.
func (c *Client) FindFieldOptionID(ctx context.Context, projectID, fieldName, optionName string) (string, error) {
	field, err := c.FindField(ctx, projectID, fieldName)
	if err != nil {
		return "", err
	}
	for _, opt := range field.Options {
		if opt.Name == optionName {
			return opt.ID, nil
		}
	}
	return "", fmt.Errorf("option %q of field %q: %w", optionName, fieldName, ErrNotFound)
}

// FindStatusOptionID returns the option id of a Status option. The option
// name must be one of the four canonical display names configured for the
// board; anything else is an InvalidOptionError before any API call is made.
func (c *Client) FindStatusOptionID(ctx context.Context, projectID, optionName string) (string, error) {
	if !c.statusOptions[optionName] {
		return "", &InvalidOptionError{Option: optionName}
	}
	return c.FindFieldOptionID(ctx, projectID, StatusFieldName, optionName)
}

// ListItems fetches a single page of board items with their issue content,
// status and linked pull requests.
func (c *Client) ListItems(ctx context.Context, projectID string) ([]models.ProjectItem, error) {
	var q struct {
		Node struct {
			ProjectV2 struct {
				Items struct {
					Nodes []struct {
						ID          string
						FieldValues struct {
							Nodes []struct {
								SingleSelect struct {
									Name  string
									Field struct {
										Common struct {
											Name string
										} `graphql:"... on ProjectV2FieldCommon"`
									}
								} `graphql:"... on ProjectV2ItemFieldSingleSelectValue"`
								PullRequests struct {
									PullRequests struct {
										Nodes []struct {
											Number     int
											Repository struct {
												Name string
											}
										}
									} `graphql:"pullRequests(first: $fieldPage)"`
									Field struct {
										Common struct {
											Name string
										} `graphql:"... on ProjectV2FieldCommon"`
									}
								} `graphql:"... on ProjectV2ItemFieldPullRequestValue"`
							}
						} `graphql:"fieldValues(first: $fieldPage)"`
						Content struct {
							Issue struct {
								Number     int
								Title      string
								Repository struct {
									Name string
								}
							} `graphql:"... on Issue"`
						}
					}
				} `graphql:"items(first: $itemPage)"`
			} `graphql:"... on ProjectV2"`
		} `graphql:"node(id: $projectId)"`
	}

	vars := map[string]interface{}{
		"projectId": githubv4.ID(projectID),
		"itemPage":  githubv4.Int(itemPageSize),
		"fieldPage": githubv4.Int(fieldPageSize),
	}
	if err := c.graphql.Query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("failed to list project items: %w", err)
	}

	var items []models.ProjectItem
	for _, node := range q.Node.ProjectV2.Items.Nodes {
		// Items wrapping drafts or pull requests have no issue content.
		if node.Content.Issue.Number == 0 {
			continue
		}

		item := models.ProjectItem{
			ID:          node.ID,
			IssueNumber: node.Content.Issue.Number,
			Title:       node.Content.Issue.Title,
			Repository:  node.Content.Issue.Repository.Name,
		}
		for _, value := range node.FieldValues.Nodes {
			if value.SingleSelect.Field.Common.Name == StatusFieldName {
				item.Status = value.SingleSelect.Name
			}
			if value.PullRequests.Field.Common.Name == linkedPRFieldName {
				for _, pr := range value.PullRequests.PullRequests.Nodes {
					item.LinkedPullRequests = append(item.LinkedPullRequests, models.LinkedPullRequest{
						Number:     pr.Number,
						Repository: pr.Repository.Name,
					})
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// ItemByIssueNumber scans the board for the item wrapping the given issue.
// An issue that is not yet on the board returns found=false, not an error.
func (c *Client) ItemByIssueNumber(ctx context.Context, projectID string, issueNumber int) (models.ProjectItem, bool, error) {
	items, err := c.ListItems(ctx, projectID)
	if err != nil {
		return models.ProjectItem{}, false, err
	}
	for _, item := range items {
		if item.IssueNumber == issueNumber {
			return item, true, nil
		}
	}
	return models.ProjectItem{}, false, nil
}

// LinkedIssueItems returns the board items whose "Linked pull requests"
// field references the given pull request.
func (c *Client) LinkedIssueItems(ctx context.Context, projectID, prRepo string, prNumber int) ([]models.ProjectItem, error) {
	items, err := c.ListItems(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var linked []models.ProjectItem
	for _, item := range items {
		for _, pr := range item.LinkedPullRequests {
			if pr.Number == prNumber && pr.Repository == prRepo {
				linked = append(linked, item)
				break
			}
		}
	}
	return linked, nil
}

// SetField sets a single-select field of an item to the given option.
// Setting the option an item already has is a no-op on the board, so the
// call is idempotent from the caller's perspective.
func (c *Client) SetField(ctx context.Context, projectID, itemID, fieldName, optionID string) error {
	field, err := c.FindField(ctx, projectID, fieldName)
	if err != nil {
		return err
	}

	var m struct {
		UpdateProjectV2ItemFieldValue struct {
			ProjectV2Item struct {
				ID string
			} `graphql:"projectV2Item"`
		} `graphql:"updateProjectV2ItemFieldValue(input: $input)"`
	}
	input := githubv4.UpdateProjectV2ItemFieldValueInput{
		ProjectID: githubv4.ID(projectID),
		ItemID:    githubv4.ID(itemID),
		FieldID:   githubv4.ID(field.ID),
		Value: githubv4.ProjectV2FieldValue{
			SingleSelectOptionID: githubv4.NewString(githubv4.String(optionID)),
		},
	}
	if err := c.graphql.Mutate(ctx, &m, input, nil); err != nil {
		return fmt.Errorf("failed to set field %q on item %s: %w", fieldName, itemID, err)
	}

	logging.Debug("project field updated", "field", fieldName, "item_id", itemID, "option_id", optionID)
	return nil
}

// AddIssueToProject links an issue to the project and returns the new item
// id. Returns ErrAlreadyLinked when the issue is already on the board. The
// check and the mutation are separate remote calls, so a race between two
// invocations can still double-link.
func (c *Client) AddIssueToProject(ctx context.Context, projectID, repo string, issueNumber int) (string, error) {
	if _, found, err := c.ItemByIssueNumber(ctx, projectID, issueNumber); err != nil {
		return "", err
	} else if found {
		return "", fmt.Errorf("issue %s#%d: %w", repo, issueNumber, ErrAlreadyLinked)
	}

	contentID, err := c.issueNodeID(ctx, repo, issueNumber)
	if err != nil {
		return "", err
	}

	var m struct {
		AddProjectV2ItemByID struct {
			Item struct {
				ID string
			}
		} `graphql:"addProjectV2ItemById(input: $input)"`
	}
	input := githubv4.AddProjectV2ItemByIdInput{
		ProjectID: githubv4.ID(projectID),
		ContentID: githubv4.ID(contentID),
	}
	if err := c.graphql.Mutate(ctx, &m, input, nil); err != nil {
		return "", fmt.Errorf("failed to add issue %s#%d to project: %w", repo, issueNumber, err)
	}
	return m.AddProjectV2ItemByID.Item.ID, nil
}

// issueNodeID resolves the GraphQL node id of an issue.
func (c *Client) issueNodeID(ctx context.Context, repo string, issueNumber int) (string, error) {
	var q struct {
		Repository struct {
			Issue struct {
				ID string
			} `graphql:"issue(number: $number)"`
		} `graphql:"repository(owner: $org, name: $repo)"`
	}

	vars := map[string]interface{}{
		"org":    githubv4.String(c.org),
		"repo":   githubv4.String(repo),
		"number": githubv4.Int(issueNumber),
	}
	if err := c.graphql.Query(ctx, &q, vars); err != nil {
		return "", fmt.Errorf("failed to resolve issue %s#%d: %w", repo, issueNumber, err)
	}
	if q.Repository.Issue.ID == "" {
		return "", fmt.Errorf("issue %s#%d: %w", repo, issueNumber, ErrNotFound)
	}
	return q.Repository.Issue.ID, nil
}
