// Package webhook receives GitHub webhook deliveries and dispatches them to
// the state machine and the contributors manager.
package webhook

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/go-github/v41/github"

	"github.com/danielolaszy/boardbot/internal/command"
	"github.com/danielolaszy/boardbot/internal/config"
	"github.com/danielolaszy/boardbot/internal/contributors"
	"github.com/danielolaszy/boardbot/internal/logging"
	"github.com/danielolaszy/boardbot/internal/workflow"
	"github.com/danielolaszy/boardbot/pkg/models"
)

// Server handles webhook deliveries for one target repository.
type Server struct {
	secret  []byte
	repo    string
	org     string
	machine *workflow.Machine
	contrib *contributors.Manager
}

// NewServer creates a webhook server wired to the state machine and the
// contributors manager.
func NewServer(cfg *config.Config, machine *workflow.Machine, contrib *contributors.Manager) *Server {
	if cfg.GitHub.WebhookSecret == "" {
		logging.Warn("GITHUB_WEBHOOK_SECRET is not set, webhook signature validation is disabled")
	}
	return &Server{
		secret:  []byte(cfg.GitHub.WebhookSecret),
		repo:    cfg.Bot.Repository,
		org:     cfg.Bot.Organization,
		machine: machine,
		contrib: contrib,
	}
}

// Handler returns the HTTP handler serving the webhook endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleWebhook validates, parses and dispatches one delivery. Handler
// failures are logged but answered 200 so the delivery is not redelivered;
// only malformed or unauthenticated payloads get an error status.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := github.ValidatePayload(r, s.secret)
	if err != nil {
		logging.Warn("webhook payload rejected", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		logging.Warn("webhook payload unparseable", "type", github.WebHookType(r), "error", err)
		http.Error(w, "unsupported event", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	switch e := event.(type) {
	case *github.IssueCommentEvent:
		err = s.handleIssueComment(ctx, e)
	case *github.IssuesEvent:
		err = s.handleIssues(ctx, e)
	case *github.PullRequestEvent:
		err = s.handlePullRequest(ctx, e)
	case *github.PushEvent:
		err = s.handlePush(ctx, e)
	default:
		logging.Debug("ignoring webhook event", "type", github.WebHookType(r))
	}

	if err != nil {
		logging.Error("webhook handler failed", "type", github.WebHookType(r), "error", err)
	}
	w.WriteHeader(http.StatusOK)
}

// handleIssueComment runs the comment command interpreter.
func (s *Server) handleIssueComment(ctx context.Context, e *github.IssueCommentEvent) error {
	if e.GetAction() != "created" {
		return nil
	}

	author := e.GetComment().GetUser().GetLogin()
	cmd, err := command.Parse(e.GetComment().GetBody(), author)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}

	// The contributor command is accepted from any repository; the board
	// commands only apply to the target repository.
	if cmd.Verb == command.VerbContributor {
		requestedIn := e.GetRepo().GetFullName() + "#" + strconv.Itoa(e.GetIssue().GetNumber())
		return s.contrib.AddContribution(ctx, cmd.Target, cmd.ContributionType, cmd.AdditionalInfo,
			e.GetComment().GetHTMLURL(), requestedIn)
	}

	if e.GetRepo().GetName() != s.repo {
		return nil
	}
	if e.GetIssue().GetState() != "open" {
		return nil
	}

	issue := issueFromEvent(e.GetIssue(), e.GetRepo().GetName())

	switch cmd.Verb {
	case command.VerbAssign:
		return s.machine.Assign(ctx, issue, cmd.Target)
	case command.VerbUnassign:
		return s.machine.Unassign(ctx, issue, cmd.Author)
	}
	return nil
}

// handleIssues reacts to labels being added on the target repository.
func (s *Server) handleIssues(ctx context.Context, e *github.IssuesEvent) error {
	if e.GetAction() != "labeled" || e.GetRepo().GetName() != s.repo {
		return nil
	}

	issue := issueFromEvent(e.GetIssue(), e.GetRepo().GetName())
	return s.machine.HandleLabeled(ctx, issue, e.GetLabel().GetName())
}

// handlePullRequest routes PR lifecycle events into the state machine.
func (s *Server) handlePullRequest(ctx context.Context, e *github.PullRequestEvent) error {
	if e.GetRepo().GetName() != s.repo {
		return nil
	}

	pr := e.GetPullRequest()
	prRepo := pr.GetHead().GetRepo().GetName()
	prNumber := pr.GetNumber()
	body := strings.TrimSpace(pr.GetBody())

	switch e.GetAction() {
	case "opened":
		return s.machine.HandlePullRequestOpened(ctx, prRepo, prNumber, body)
	case "edited":
		previous := strings.TrimSpace(e.GetChanges().GetBody().GetFrom())
		return s.machine.HandlePullRequestEdited(ctx, prRepo, prNumber, body, previous)
	case "closed":
		return s.machine.HandlePullRequestClosed(ctx, prRepo, prNumber, body, pr.GetMerged())
	}
	return nil
}

// handlePush re-renders the contributors table when the contributors file
// changes on the base branch of the target repository.
func (s *Server) handlePush(ctx context.Context, e *github.PushEvent) error {
	if e.GetRepo().GetName() != s.repo {
		return nil
	}

	var changed []string
	for _, commit := range e.Commits {
		changed = append(changed, commit.Added...)
		changed = append(changed, commit.Modified...)
	}
	if !s.contrib.ShouldSync(e.GetRef(), changed) {
		return nil
	}
	return s.contrib.SyncReadme(ctx)
}

// issueFromEvent converts a webhook issue payload to the internal model.
func issueFromEvent(issue *github.Issue, repo string) models.Issue {
	result := models.Issue{
		Number:     issue.GetNumber(),
		Title:      issue.GetTitle(),
		Repository: repo,
		State:      issue.GetState(),
	}
	if issue.Assignee != nil {
		result.Assignee = issue.Assignee.GetLogin()
	}
	return result
}
