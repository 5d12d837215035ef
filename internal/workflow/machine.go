// Package workflow implements the status state machine that drives an issue
// through the board lifecycle New → InProgress → InReview → Done. Both the
// webhook handlers and the reconciliation sweep apply transitions through
// this package, so applying the same transition twice is either a no-op
// (idempotent field write) or rejected with a typed error.
package workflow

import (
	"context"
	"fmt"

	"github.com/danielolaszy/boardbot/internal/config"
	"github.com/danielolaszy/boardbot/internal/logging"
	"github.com/danielolaszy/boardbot/pkg/models"
)

// Labels managed by the bot on the target repository.
const (
	LabelInProgress = "in-progress"
	LabelStale      = "stale"
	LabelInactive   = "inactive"
	LabelLinear     = "linear"
)

const statusFieldName = "Status"

// Board is the project data access capability the state machine mutates
// through. All calls are remote, independently failing, and untransacted.
type Board interface {
	ListItems(ctx context.Context, projectID string) ([]models.ProjectItem, error)
	ItemByIssueNumber(ctx context.Context, projectID string, issueNumber int) (models.ProjectItem, bool, error)
	LinkedIssueItems(ctx context.Context, projectID, prRepo string, prNumber int) ([]models.ProjectItem, error)
	FindStatusOptionID(ctx context.Context, projectID, optionName string) (string, error)
	SetField(ctx context.Context, projectID, itemID, fieldName, optionID string) error
	AddIssueToProject(ctx context.Context, projectID, repo string, issueNumber int) (string, error)
	AddLabel(ctx context.Context, repo string, issueNumber int, label string) error
	RemoveLabel(ctx context.Context, repo string, issueNumber int, label string) error
	AddAssignee(ctx context.Context, repo string, issueNumber int, assignee string) error
	RemoveAssignee(ctx context.Context, repo string, issueNumber int, assignee string) error
	CreateComment(ctx context.Context, repo string, issueNumber int, body string) error
	GetPullRequest(ctx context.Context, repo string, prNumber int) (models.PullRequest, error)
}

// Tracker is the external tracker sync capability.
type Tracker interface {
	PushStatus(ctx context.Context, issue models.Issue, status models.Status) error
	PushField(ctx context.Context, projectID string, issue models.Issue, itemID, fieldName string) error
	PostComment(ctx context.Context, issue models.Issue, body string) error
}

// Machine applies status transitions against one project board.
type Machine struct {
	board     Board
	tracker   Tracker
	projectID string
	names     map[models.Status]string
	botLogin  string
}

// NewMachine creates a state machine bound to a resolved project.
func NewMachine(board Board, tracker Tracker, projectID string, cfg *config.Config) *Machine {
	return &Machine{
		board:     board,
		tracker:   tracker,
		projectID: projectID,
		names:     cfg.StatusNames(),
		botLogin:  cfg.Bot.BotLogin,
	}
}

// ProjectID returns the board the machine operates on.
func (m *Machine) ProjectID() string {
	return m.projectID
}

// Display returns the board display name of a canonical status.
func (m *Machine) Display(status models.Status) string {
	return m.names[status]
}

// Canonical maps a board display name back to its canonical status.
func (m *Machine) Canonical(display string) (models.Status, bool) {
	for status, name := range m.names {
		if name == display {
			return status, true
		}
	}
	return "", false
}

// MoveStatus sets an item's Status field to the given canonical status.
// This is the critical write of every transition; its error aborts the
// surrounding handler.
func (m *Machine) MoveStatus(ctx context.Context, itemID string, to models.Status) error {
	optionID, err := m.board.FindStatusOptionID(ctx, m.projectID, m.Display(to))
	if err != nil {
		return err
	}
	return m.board.SetField(ctx, m.projectID, itemID, statusFieldName, optionID)
}

// bestEffort logs a failed secondary side effect without aborting the
// transition that already committed its status change.
func bestEffort(op string, err error) {
	if err != nil {
		logging.Warn("best-effort side effect failed", "op", op, "error", err)
	}
}

// requireItem fetches the board item for an issue, or ErrNotOnBoard.
func (m *Machine) requireItem(ctx context.Context, issueNumber int) (models.ProjectItem, error) {
	item, found, err := m.board.ItemByIssueNumber(ctx, m.projectID, issueNumber)
	if err != nil {
		return models.ProjectItem{}, err
	}
	if !found {
		return models.ProjectItem{}, fmt.Errorf("issue #%d: %w", issueNumber, ErrNotOnBoard)
	}
	return item, nil
}

// Assign moves a New issue to InProgress and records the assignee.
func (m *Machine) Assign(ctx context.Context, issue models.Issue, assignee string) error {
	item, err := m.requireItem(ctx, issue.Number)
	if err != nil {
		return err
	}
	if status, ok := m.Canonical(item.Status); !ok || status != models.StatusNew {
		return &InvalidStateTransitionError{Current: item.Status, Target: models.StatusInProgress}
	}

	if err := m.MoveStatus(ctx, item.ID, models.StatusInProgress); err != nil {
		return err
	}
	bestEffort("tracker status", m.tracker.PushStatus(ctx, issue, models.StatusInProgress))
	bestEffort("add label", m.board.AddLabel(ctx, issue.Repository, issue.Number, LabelInProgress))
	bestEffort("add assignee", m.board.AddAssignee(ctx, issue.Repository, issue.Number, assignee))

	logging.Info("issue assigned", "issue_number", issue.Number, "assignee", assignee)
	return nil
}

// Unassign moves an InProgress issue back to New and clears the assignee.
// The requester is removed unless a legacy fixed bot identity is configured.
func (m *Machine) Unassign(ctx context.Context, issue models.Issue, requester string) error {
	item, err := m.requireItem(ctx, issue.Number)
	if err != nil {
		return err
	}
	if status, ok := m.Canonical(item.Status); !ok || status != models.StatusInProgress {
		return &InvalidStateTransitionError{Current: item.Status, Target: models.StatusNew}
	}

	if err := m.MoveStatus(ctx, item.ID, models.StatusNew); err != nil {
		return err
	}
	bestEffort("tracker status", m.tracker.PushStatus(ctx, issue, models.StatusNew))
	bestEffort("remove label", m.board.RemoveLabel(ctx, issue.Repository, issue.Number, LabelInProgress))

	assignee := requester
	if m.botLogin != "" {
		assignee = m.botLogin
	}
	bestEffort("remove assignee", m.board.RemoveAssignee(ctx, issue.Repository, issue.Number, assignee))

	logging.Info("issue unassigned", "issue_number", issue.Number)
	return nil
}

// HandleLabeled reacts to a label being added to an issue. Labels the bot
// does not manage are ignored.
func (m *Machine) HandleLabeled(ctx context.Context, issue models.Issue, label string) error {
	switch label {
	case LabelStale:
		return m.handleStale(ctx, issue)
	case LabelInactive:
		return m.handleInactive(ctx, issue)
	case LabelLinear:
		return m.handleLinear(ctx, issue)
	default:
		return nil
	}
}

// handleStale asks the current assignee to confirm they are still working.
func (m *Machine) handleStale(ctx context.Context, issue models.Issue) error {
	item, err := m.requireItem(ctx, issue.Number)
	if err != nil {
		return err
	}
	if status, _ := m.Canonical(item.Status); status != models.StatusInProgress {
		return fmt.Errorf("label %q added, but issue #%d is in %q, not %q",
			LabelStale, issue.Number, item.Status, m.Display(models.StatusInProgress))
	}

	body := "@" + issue.Assignee + ", please confirm that you're still working on this by commenting this issue."
	return m.board.CreateComment(ctx, issue.Repository, issue.Number, body)
}

// handleInactive releases an InProgress issue back to New due to inactivity.
func (m *Machine) handleInactive(ctx context.Context, issue models.Issue) error {
	item, err := m.requireItem(ctx, issue.Number)
	if err != nil {
		return err
	}
	if status, _ := m.Canonical(item.Status); status != models.StatusInProgress {
		return fmt.Errorf("label %q added, but issue #%d is in %q, not %q",
			LabelInactive, issue.Number, item.Status, m.Display(models.StatusInProgress))
	}

	body := "@" + issue.Assignee + ", the issue is now available for other contributors due to inactivity."
	bestEffort("stale comment", m.board.CreateComment(ctx, issue.Repository, issue.Number, body))

	if err := m.MoveStatus(ctx, item.ID, models.StatusNew); err != nil {
		return err
	}
	bestEffort("tracker status", m.tracker.PushStatus(ctx, issue, models.StatusNew))
	if issue.Assignee != "" {
		bestEffort("remove assignee", m.board.RemoveAssignee(ctx, issue.Repository, issue.Number, issue.Assignee))
	}
	for _, label := range []string{LabelInactive, LabelStale, LabelInProgress} {
		bestEffort("remove label", m.board.RemoveLabel(ctx, issue.Repository, issue.Number, label))
	}

	logging.Info("issue released due to inactivity", "issue_number", issue.Number)
	return nil
}

// handleLinear adds a tracker-imported issue to the board as New and mirrors
// the tracker's Priority and Size fields onto the new item.
func (m *Machine) handleLinear(ctx context.Context, issue models.Issue) error {
	itemID, err := m.board.AddIssueToProject(ctx, m.projectID, issue.Repository, issue.Number)
	if err != nil {
		return err
	}
	if err := m.MoveStatus(ctx, itemID, models.StatusNew); err != nil {
		return err
	}

	bestEffort("remove label", m.board.RemoveLabel(ctx, issue.Repository, issue.Number, LabelLinear))
	bestEffort("tracker status", m.tracker.PushStatus(ctx, issue, models.StatusNew))
	bestEffort("tracker priority", m.tracker.PushField(ctx, m.projectID, issue, itemID, "Priority"))
	bestEffort("tracker size", m.tracker.PushField(ctx, m.projectID, issue, itemID, "Size"))

	logging.Info("tracker issue added to board", "issue_number", issue.Number, "item_id", itemID)
	return nil
}

// linkedItem returns the first board item whose linked pull requests include
// the given PR.
func (m *Machine) linkedItem(ctx context.Context, prRepo string, prNumber int) (models.ProjectItem, error) {
	items, err := m.board.LinkedIssueItems(ctx, m.projectID, prRepo, prNumber)
	if err != nil {
		return models.ProjectItem{}, err
	}
	if len(items) == 0 {
		return models.ProjectItem{}, fmt.Errorf("pull request %s#%d: %w", prRepo, prNumber, ErrNotOnBoard)
	}
	return items[0], nil
}

// HandlePullRequestOpened moves the linked issue from InProgress to InReview
// when a pull request referencing it opens.
func (m *Machine) HandlePullRequestOpened(ctx context.Context, prRepo string, prNumber int, body string) error {
	if !LinksToIssue(body) {
		return ErrPullRequestNotLinked
	}

	item, err := m.linkedItem(ctx, prRepo, prNumber)
	if err != nil {
		return err
	}
	if status, _ := m.Canonical(item.Status); status != models.StatusInProgress {
		return &InvalidStateTransitionError{Current: item.Status, Target: models.StatusInReview}
	}
	return m.MoveStatus(ctx, item.ID, models.StatusInReview)
}

// HandlePullRequestEdited reacts to a pull request body edit that links,
// unlinks, or relinks an issue.
func (m *Machine) HandlePullRequestEdited(ctx context.Context, prRepo string, prNumber int, body, previousBody string) error {
	nowLinked := LinksToIssue(body)
	wasLinked := LinksToIssue(previousBody)

	switch {
	case nowLinked && !wasLinked:
		return m.HandlePullRequestOpened(ctx, prRepo, prNumber, body)

	case !nowLinked && wasLinked:
		issueNumber, ok := IssueNumberFromBody(previousBody)
		if !ok {
			return fmt.Errorf("previous body references no issue number; issue stays in %q", m.Display(models.StatusInReview))
		}
		item, err := m.requireItem(ctx, issueNumber)
		if err != nil {
			return err
		}
		if status, _ := m.Canonical(item.Status); status != models.StatusInReview {
			return &InvalidStateTransitionError{Current: item.Status, Target: models.StatusInProgress}
		}
		return m.MoveStatus(ctx, item.ID, models.StatusInProgress)

	case nowLinked && wasLinked:
		return m.handleRelink(ctx, prRepo, prNumber, previousBody)

	default:
		return ErrPullRequestNotLinked
	}
}

// handleRelink swaps statuses when an already-linked pull request is edited
// to reference a different issue.
func (m *Machine) handleRelink(ctx context.Context, prRepo string, prNumber int, previousBody string) error {
	previousNumber, ok := IssueNumberFromBody(previousBody)
	if !ok {
		return fmt.Errorf("previous body references no issue number; issue stays in %q", m.Display(models.StatusInReview))
	}

	item, err := m.linkedItem(ctx, prRepo, prNumber)
	if err != nil {
		return err
	}
	if item.IssueNumber == previousNumber {
		logging.Debug("pull request still linked to the same issue", "pr_number", prNumber)
		return nil
	}

	if status, _ := m.Canonical(item.Status); status != models.StatusInProgress {
		return &InvalidStateTransitionError{Current: item.Status, Target: models.StatusInReview}
	}
	if err := m.MoveStatus(ctx, item.ID, models.StatusInReview); err != nil {
		return err
	}

	previousItem, err := m.requireItem(ctx, previousNumber)
	if err != nil {
		return err
	}
	if status, _ := m.Canonical(previousItem.Status); status != models.StatusInReview {
		return &InvalidStateTransitionError{Current: previousItem.Status, Target: models.StatusInProgress}
	}
	return m.MoveStatus(ctx, previousItem.ID, models.StatusInProgress)
}

// HandlePullRequestClosed reacts to a linked pull request closing: merged
// moves the issue to Done (and pushes the tracker), unmerged drops it back
// to InProgress. An issue GitHub's own workflow already moved to Done is a
// no-op.
func (m *Machine) HandlePullRequestClosed(ctx context.Context, prRepo string, prNumber int, body string, merged bool) error {
	if !LinksToIssue(body) {
		return ErrPullRequestNotLinked
	}

	item, err := m.linkedItem(ctx, prRepo, prNumber)
	if err != nil {
		return err
	}
	status, _ := m.Canonical(item.Status)

	switch {
	case status == models.StatusInReview && merged:
		if err := m.MoveStatus(ctx, item.ID, models.StatusDone); err != nil {
			return err
		}
		bestEffort("tracker status", m.tracker.PushStatus(ctx, item.Issue(), models.StatusDone))
		return nil

	case status == models.StatusInReview && !merged:
		return m.MoveStatus(ctx, item.ID, models.StatusInProgress)

	case status == models.StatusDone && merged:
		logging.Debug("status already moved to done by board automation", "issue_number", item.IssueNumber)
		return nil

	default:
		target := models.StatusInProgress
		if merged {
			target = models.StatusDone
		}
		return &InvalidStateTransitionError{Current: item.Status, Target: target}
	}
}
