package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/boardbot/pkg/models"
)

// writeConfigFile writes a temporary YAML configuration and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boardbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "test-token")
	t.Setenv("GITHUB_WEBHOOK_SECRET", "test-secret")
	t.Setenv("LINEAR_API_KEY", "lin_api_test")

	path := writeConfigFile(t, `
bot:
  organization: acme
  repository: widgets
  project_number: 3
linear:
  teams: [JS, GO]
  states:
    readyForDev:
      JS: state-a
    inProgress:
      JS: state-b
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test-token", config.GitHub.Token)
	assert.Equal(t, "test-secret", config.GitHub.WebhookSecret)
	assert.Equal(t, "lin_api_test", config.Linear.APIKey)
	assert.Equal(t, []string{"JS", "GO"}, config.Linear.Teams)
	assert.Equal(t, "state-a", config.Linear.States["readyForDev"]["JS"])

	assert.Equal(t, "acme", config.Bot.Organization)
	assert.Equal(t, "widgets", config.Bot.Repository)
	assert.Equal(t, 3, config.Bot.ProjectNumber)

	// Defaults
	assert.Equal(t, ":8080", config.Bot.ListenAddr)
	assert.Equal(t, 2*time.Minute, config.Bot.SweepInterval)
	assert.Equal(t, "contributors.json", config.Bot.ContributorsFile)
	assert.Equal(t, "main", config.Bot.ContributorsBranch)
}

func TestLoadConfigWithoutLinearSection(t *testing.T) {
	// The Linear tables are only required by the commands that push to
	// the tracker; loading must not demand them.
	t.Setenv("GITHUB_TOKEN", "test-token")
	t.Setenv("LINEAR_API_KEY", "")

	path := writeConfigFile(t, `
bot:
  organization: acme
  repository: widgets
  project_number: 3
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, config.Linear.Teams)
	assert.Error(t, ValidateLinearConfig(config))
}

func TestLoadConfigMissingToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")

	path := writeConfigFile(t, `
bot:
  organization: acme
  repository: widgets
  project_number: 3
`)

	config, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
}

func TestLoadConfigMissingBoardCoordinates(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "test-token")

	path := writeConfigFile(t, `
bot:
  organization: acme
`)

	config, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "bot.repository")
	assert.Contains(t, err.Error(), "bot.project_number")
}

func TestValidateLinearConfig(t *testing.T) {
	config := &Config{}
	config.Linear.APIKey = "lin_api_test"
	config.Linear.Teams = []string{"JS"}
	config.Linear.States = map[string]map[string]string{
		"readyForDev": {"JS": "state-a"},
	}

	assert.NoError(t, ValidateLinearConfig(config))

	config.Linear.Teams = nil
	err := ValidateLinearConfig(config)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "linear.teams")
}

func TestStatusNames(t *testing.T) {
	config := &Config{}
	config.Bot.StatusNames = map[string]string{
		"InReview": "In review",
		"bogus":    "ignored",
	}

	names := config.StatusNames()

	assert.Equal(t, "In review", names[models.StatusInReview])
	assert.Equal(t, models.DefaultStatusNames[models.StatusNew], names[models.StatusNew])
	assert.Len(t, names, len(models.DefaultStatusNames))
}
