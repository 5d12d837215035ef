// Package sweep implements the periodic reconciliation pass. It re-derives
// each board item's status from the ground-truth state of its linked pull
// requests, correcting drift left behind by missed or failed webhook
// deliveries. The sweep applies the same transitions as the event-driven
// path, so a second run over already-correct state changes nothing.
package sweep

import (
	"context"
	"fmt"

	"github.com/danielolaszy/boardbot/internal/logging"
	"github.com/danielolaszy/boardbot/internal/workflow"
	"github.com/danielolaszy/boardbot/pkg/models"
)

// Sweeper reconciles one project board.
type Sweeper struct {
	board   workflow.Board
	tracker workflow.Tracker
	machine *workflow.Machine
}

// New creates a sweeper sharing the event-driven path's state machine.
func New(board workflow.Board, tracker workflow.Tracker, machine *workflow.Machine) *Sweeper {
	return &Sweeper{board: board, tracker: tracker, machine: machine}
}

// Run performs a single reconciliation pass over every board item. Failure
// to process one issue is logged and does not abort the rest of the pass;
// only failing to list the board at all is an error.
func (s *Sweeper) Run(ctx context.Context) error {
	items, err := s.board.ListItems(ctx, s.machine.ProjectID())
	if err != nil {
		return fmt.Errorf("failed to snapshot board: %w", err)
	}

	logging.Info("reconciliation sweep started", "items", len(items))

	for _, item := range items {
		if err := s.reconcile(ctx, item); err != nil {
			logging.Error("failed to reconcile issue",
				"issue_number", item.IssueNumber,
				"repository", item.Repository,
				"status", item.Status,
				"error", err)
		}
	}

	logging.Info("reconciliation sweep finished")
	return nil
}

// reconcile applies the sweep transition rules to a single item. The item
// snapshot is trusted only for the presence of PR links; the closed/merged
// decision re-fetches each pull request.
func (s *Sweeper) reconcile(ctx context.Context, item models.ProjectItem) error {
	status, ok := s.machine.Canonical(item.Status)
	if !ok {
		if item.Status == "" {
			// Items without a status (e.g. freshly added) are not swept.
			return nil
		}
		return fmt.Errorf("unknown status %q on issue #%d", item.Status, item.IssueNumber)
	}

	switch status {
	case models.StatusInProgress:
		return s.reconcileInProgress(ctx, item)
	case models.StatusInReview:
		return s.reconcileInReview(ctx, item)
	default:
		return nil
	}
}

// reconcileInProgress moves an InProgress issue with an open linked pull
// request forward to InReview.
func (s *Sweeper) reconcileInProgress(ctx context.Context, item models.ProjectItem) error {
	for _, linked := range item.LinkedPullRequests {
		pr, err := s.board.GetPullRequest(ctx, linked.Repository, linked.Number)
		if err != nil {
			return err
		}

		if !pr.Closed {
			if err := s.machine.MoveStatus(ctx, item.ID, models.StatusInReview); err != nil {
				return err
			}
			bestEffort("remove label", s.board.RemoveLabel(ctx, item.Repository, item.IssueNumber, workflow.LabelInProgress))
			bestEffort("tracker status", s.tracker.PushStatus(ctx, item.Issue(), models.StatusInReview))
			bestEffort("tracker comment", s.tracker.PostComment(ctx, item.Issue(), "[Bot] Issue is ready for review: "+pr.URL))
			return nil
		}
		if pr.Merged {
			return fmt.Errorf("pull request %s#%d is merged but issue #%d is still %q",
				linked.Repository, linked.Number, item.IssueNumber, item.Status)
		}
	}
	return nil
}

// reconcileInReview re-derives an InReview issue's status from its linked
// pull requests: no links drops it back to InProgress; with links, an open
// PR always dominates, a merged PR completes the issue, and only
// closed-unmerged PRs drop it back to InProgress.
func (s *Sweeper) reconcileInReview(ctx context.Context, item models.ProjectItem) error {
	if len(item.LinkedPullRequests) == 0 {
		return s.backToInProgress(ctx, item)
	}

	var openExists, mergedExists, closedExists bool
	for _, linked := range item.LinkedPullRequests {
		pr, err := s.board.GetPullRequest(ctx, linked.Repository, linked.Number)
		if err != nil {
			return err
		}
		switch {
		case !pr.Closed:
			openExists = true
		case pr.Merged:
			mergedExists = true
		default:
			closedExists = true
		}
	}

	// Done is reachable only with zero open PRs and at least one merge.
	if openExists {
		return nil
	}
	if mergedExists {
		if err := s.machine.MoveStatus(ctx, item.ID, models.StatusDone); err != nil {
			return err
		}
		bestEffort("tracker status", s.tracker.PushStatus(ctx, item.Issue(), models.StatusDone))
		return nil
	}
	if closedExists {
		return s.backToInProgress(ctx, item)
	}
	return nil
}

// backToInProgress drops an InReview issue back to InProgress and restores
// the in-progress label.
func (s *Sweeper) backToInProgress(ctx context.Context, item models.ProjectItem) error {
	if err := s.machine.MoveStatus(ctx, item.ID, models.StatusInProgress); err != nil {
		return err
	}
	bestEffort("add label", s.board.AddLabel(ctx, item.Repository, item.IssueNumber, workflow.LabelInProgress))
	bestEffort("tracker status", s.tracker.PushStatus(ctx, item.Issue(), models.StatusInProgress))
	return nil
}

// bestEffort logs a failed secondary side effect without aborting the
// reconciliation of the item.
func bestEffort(op string, err error) {
	if err != nil {
		logging.Warn("best-effort side effect failed", "op", op, "error", err)
	}
}
