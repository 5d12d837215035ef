package workflow

import (
	"errors"
	"fmt"

	"github.com/danielolaszy/boardbot/pkg/models"
)

// ErrNotOnBoard reports that an issue has no item on the project board.
var ErrNotOnBoard = errors.New("issue is not on the project board")

// ErrPullRequestNotLinked reports that a pull request body references no
// issue via the closing-keyword scan.
var ErrPullRequestNotLinked = errors.New("pull request is not linked to an issue")

// InvalidStateTransitionError reports a transition attempted from a status
// that is not a valid precondition for it. The board is left unchanged.
type InvalidStateTransitionError struct {
	// Current is the item's status display name at the time of the attempt.
	Current string

	// Target is the canonical status the transition would have moved to.
	Target models.Status
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: issue is in %q, can't move to %q", e.Current, e.Target)
}
