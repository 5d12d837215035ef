package contributors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielolaszy/boardbot/internal/config"
	"github.com/danielolaszy/boardbot/internal/github"
	"github.com/danielolaszy/boardbot/internal/logging"
	"github.com/danielolaszy/boardbot/pkg/models"
)

// workBranch collects new contributions until they are merged to the base
// branch through a pull request.
const workBranch = "new-contributors"

// defaultTypes seeds the contribution type list when contributors.json is
// first created.
var defaultTypes = []string{
	"code", "docs", "l10n", "design", "tooling",
	"infra", "community", "security", "gallery", "other",
}

// Manager maintains the contributors file and the README table.
type Manager struct {
	gh     *github.Client
	repo   string
	file   string
	branch string
}

// NewManager creates a manager for the configured target repository.
func NewManager(gh *github.Client, cfg *config.Config) *Manager {
	return &Manager{
		gh:     gh,
		repo:   cfg.Bot.Repository,
		file:   cfg.Bot.ContributorsFile,
		branch: cfg.Bot.ContributorsBranch,
	}
}

// AddContribution records a contribution for login on the work branch and
// opens (or refreshes) the pull request that merges it to the base branch.
// requestedIn names where the command was issued (e.g. "org/repo#12");
// commentURL links back to the requesting comment.
func (m *Manager) AddContribution(ctx context.Context, login, contributionType, additionalInfo, commentURL, requestedIn string) error {
	if err := m.gh.EnsureBranch(ctx, m.repo, workBranch, m.branch); err != nil {
		return err
	}

	file, sha, err := m.loadOrCreate(ctx)
	if err != nil {
		return err
	}

	if !contains(file.Types, contributionType) {
		return fmt.Errorf("invalid contribution type %q", contributionType)
	}

	contributor, err := m.gh.GetUser(ctx, login)
	if err != nil {
		return err
	}

	upsert(file, contributor, models.Contribution{
		ContributionType: contributionType,
		Context:          commentURL,
		AdditionalInfo:   additionalInfo,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	})

	encoded, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", m.file, err)
	}

	message := fmt.Sprintf("Add @%s for %s (requested in %s)", contributor.Login, contributionType, requestedIn)
	if err := m.gh.PutFile(ctx, m.repo, m.file, workBranch, message, string(encoded), sha); err != nil {
		return err
	}

	// A pull request for the work branch is usually already open; the
	// creation error is expected then and ignored, like every rerun.
	if err := m.gh.CreatePullRequest(ctx, m.repo, "Add new contributions", workBranch, m.branch, "Recognizing new contributions."); err != nil {
		logging.Debug("contributions pull request not created", "error", err)
	}

	logging.Info("contribution recorded", "login", contributor.Login, "type", contributionType)
	return nil
}

// loadOrCreate fetches contributors.json from the work branch, creating an
// empty seeded document when the file does not exist yet.
func (m *Manager) loadOrCreate(ctx context.Context) (*models.ContributorsFile, string, error) {
	content, sha, err := m.gh.GetFile(ctx, m.repo, m.file, workBranch)
	if errors.Is(err, github.ErrNotFound) {
		seed, marshalErr := json.Marshal(models.ContributorsFile{Contributors: []models.Contributor{}, Types: defaultTypes})
		if marshalErr != nil {
			return nil, "", marshalErr
		}
		if err := m.gh.PutFile(ctx, m.repo, m.file, workBranch, "Create "+m.file, string(seed), ""); err != nil {
			return nil, "", err
		}
		content, sha, err = m.gh.GetFile(ctx, m.repo, m.file, workBranch)
	}
	if err != nil {
		return nil, "", err
	}

	var file models.ContributorsFile
	if err := json.Unmarshal([]byte(content), &file); err != nil {
		return nil, "", fmt.Errorf("failed to parse %s: %w", m.file, err)
	}
	return &file, sha, nil
}

// upsert appends the contribution, creating the contributor entry if needed
// and refreshing the display name and avatar of an existing one.
func upsert(file *models.ContributorsFile, contributor models.Contributor, contribution models.Contribution) {
	for i := range file.Contributors {
		if file.Contributors[i].Login == contributor.Login {
			file.Contributors[i].Name = contributor.Name
			file.Contributors[i].Avatar = contributor.Avatar
			file.Contributors[i].Contributions = append(file.Contributors[i].Contributions, contribution)
			return
		}
	}
	contributor.Contributions = []models.Contribution{contribution}
	file.Contributors = append(file.Contributors, contributor)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// ShouldSync reports whether a push event requires re-rendering the README
// table: a push to the base branch that touched the contributors file.
func (m *Manager) ShouldSync(ref string, changedFiles []string) bool {
	if ref != "refs/heads/"+m.branch {
		return false
	}
	return contains(changedFiles, m.file)
}

// SyncReadme re-renders the contributors table in README.md from the
// contributors file on the base branch.
func (m *Manager) SyncReadme(ctx context.Context) error {
	content, _, err := m.gh.GetFile(ctx, m.repo, m.file, m.branch)
	if err != nil {
		return err
	}

	var file models.ContributorsFile
	if err := json.Unmarshal([]byte(content), &file); err != nil {
		return fmt.Errorf("failed to parse %s: %w", m.file, err)
	}

	readme, sha, err := m.gh.GetFile(ctx, m.repo, "README.md", m.branch)
	if err != nil {
		return err
	}

	rendered := RenderTable(file.Contributors, readme)
	if rendered == readme {
		logging.Debug("contributors table unchanged")
		return nil
	}

	if err := m.gh.PutFile(ctx, m.repo, "README.md", m.branch, "Update contributors table", rendered, sha); err != nil {
		return err
	}

	logging.Info("contributors table updated", "contributors", len(file.Contributors))
	return nil
}
