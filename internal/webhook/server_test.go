package webhook

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/danielolaszy/boardbot/internal/config"
	"github.com/danielolaszy/boardbot/internal/logging"
	"github.com/danielolaszy/boardbot/internal/workflow"
	"github.com/danielolaszy/boardbot/pkg/models"
)

// fakeBoard implements workflow.Board with just enough behavior for the
// dispatch tests; everything unused is a no-op.
type fakeBoard struct {
	items        map[int]models.ProjectItem
	statusWrites map[string]string
	assignees    []string
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{
		items:        make(map[int]models.ProjectItem),
		statusWrites: make(map[string]string),
	}
}

func (f *fakeBoard) ListItems(ctx context.Context, projectID string) ([]models.ProjectItem, error) {
	return nil, nil
}

func (f *fakeBoard) ItemByIssueNumber(ctx context.Context, projectID string, issueNumber int) (models.ProjectItem, bool, error) {
	item, ok := f.items[issueNumber]
	return item, ok, nil
}

func (f *fakeBoard) LinkedIssueItems(ctx context.Context, projectID, prRepo string, prNumber int) ([]models.ProjectItem, error) {
	return nil, nil
}

func (f *fakeBoard) FindStatusOptionID(ctx context.Context, projectID, optionName string) (string, error) {
	return optionName, nil
}

func (f *fakeBoard) SetField(ctx context.Context, projectID, itemID, fieldName, optionID string) error {
	f.statusWrites[itemID] = optionID
	return nil
}

func (f *fakeBoard) AddIssueToProject(ctx context.Context, projectID, repo string, issueNumber int) (string, error) {
	return "", fmt.Errorf("not wired in this test")
}

func (f *fakeBoard) AddLabel(ctx context.Context, repo string, issueNumber int, label string) error {
	return nil
}

func (f *fakeBoard) RemoveLabel(ctx context.Context, repo string, issueNumber int, label string) error {
	return nil
}

func (f *fakeBoard) AddAssignee(ctx context.Context, repo string, issueNumber int, assignee string) error {
	f.assignees = append(f.assignees, assignee)
	return nil
}

func (f *fakeBoard) RemoveAssignee(ctx context.Context, repo string, issueNumber int, assignee string) error {
	return nil
}

func (f *fakeBoard) CreateComment(ctx context.Context, repo string, issueNumber int, body string) error {
	return nil
}

func (f *fakeBoard) GetPullRequest(ctx context.Context, repo string, prNumber int) (models.PullRequest, error) {
	return models.PullRequest{}, fmt.Errorf("not wired in this test")
}

type fakeTracker struct{}

func (fakeTracker) PushStatus(ctx context.Context, issue models.Issue, status models.Status) error {
	return nil
}

func (fakeTracker) PushField(ctx context.Context, projectID string, issue models.Issue, itemID, fieldName string) error {
	return nil
}

func (fakeTracker) PostComment(ctx context.Context, issue models.Issue, body string) error {
	return nil
}

// newTestServer builds a server with an empty webhook secret, so payloads
// need no signature.
func newTestServer(board *fakeBoard) *Server {
	cfg := &config.Config{}
	cfg.Bot.Repository = "widgets"

	machine := workflow.NewMachine(board, fakeTracker{}, "project-1", cfg)
	return NewServer(cfg, machine, nil)
}

func deliver(t *testing.T, server *Server, event, payload string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhookAssignCommand(t *testing.T) {
	board := newFakeBoard()
	board.items[42] = models.ProjectItem{
		ID:          "item-42",
		IssueNumber: 42,
		Repository:  "widgets",
		Status:      models.DefaultStatusNames[models.StatusNew],
	}
	server := newTestServer(board)

	payload := `{
		"action": "created",
		"comment": {"body": "@any assign me", "user": {"login": "alice"}},
		"issue": {"number": 42, "title": "fix flaky retry", "state": "open"},
		"repository": {"name": "widgets", "full_name": "acme/widgets"}
	}`

	rec := deliver(t, server, "issue_comment", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	want := models.DefaultStatusNames[models.StatusInProgress]
	if got := board.statusWrites["item-42"]; got != want {
		t.Errorf("expected status %q, got %q", want, got)
	}
	if len(board.assignees) != 1 || board.assignees[0] != "alice" {
		t.Errorf("expected alice assigned, got %v", board.assignees)
	}
}

func TestWebhookIgnoresOtherRepositories(t *testing.T) {
	board := newFakeBoard()
	board.items[42] = models.ProjectItem{
		ID:          "item-42",
		IssueNumber: 42,
		Status:      models.DefaultStatusNames[models.StatusNew],
	}
	server := newTestServer(board)

	payload := `{
		"action": "created",
		"comment": {"body": "@any assign me", "user": {"login": "alice"}},
		"issue": {"number": 42, "state": "open"},
		"repository": {"name": "other-repo", "full_name": "acme/other-repo"}
	}`

	rec := deliver(t, server, "issue_comment", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(board.statusWrites) != 0 {
		t.Errorf("board should be unchanged, got writes %v", board.statusWrites)
	}
}

func TestWebhookHandlerFailureStillAnswers200(t *testing.T) {
	// The issue is not on the board, so the command fails; the delivery
	// must still be acknowledged to avoid redelivery storms.
	server := newTestServer(newFakeBoard())

	payload := `{
		"action": "created",
		"comment": {"body": "@any assign me", "user": {"login": "alice"}},
		"issue": {"number": 7, "state": "open"},
		"repository": {"name": "widgets", "full_name": "acme/widgets"}
	}`

	rec := deliver(t, server, "issue_comment", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestWebhookRejectsUnparseablePayload(t *testing.T) {
	server := newTestServer(newFakeBoard())

	rec := deliver(t, server, "issue_comment", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebhookRejectsWrongMethod(t *testing.T) {
	server := newTestServer(newFakeBoard())

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestWebhookPullRequestClosedMerged(t *testing.T) {
	board := newFakeBoard()
	server := newTestServer(board)

	// LinkedIssueItems returns nothing, so the handler fails with a logged
	// error; dispatch itself must still succeed.
	payload := `{
		"action": "closed",
		"pull_request": {
			"number": 7,
			"body": "fixes #42",
			"merged": true,
			"head": {"repo": {"name": "widgets"}}
		},
		"repository": {"name": "widgets"}
	}`

	rec := deliver(t, server, "pull_request", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestNewServerWarnsWithoutSecret(t *testing.T) {
	var buf bytes.Buffer
	logging.SetupLogger(&buf, logging.LevelWarn, false)
	defer logging.SetupLogger(os.Stdout, logging.LevelInfo, false)

	newTestServer(newFakeBoard())

	if !strings.Contains(buf.String(), "signature validation is disabled") {
		t.Errorf("expected a warning about disabled signature validation, got: %s", buf.String())
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(newFakeBoard())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
