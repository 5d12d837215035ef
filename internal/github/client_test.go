package github

import (
	"context"
	"errors"
	"testing"

	"github.com/danielolaszy/boardbot/internal/config"
	"github.com/danielolaszy/boardbot/pkg/models"
)

func TestNewClientRequiresToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.Bot.Organization = "acme"

	client, err := NewClient(cfg)
	if err == nil {
		t.Fatal("expected an error for a missing token")
	}
	if client != nil {
		t.Errorf("expected no client, got %v", client)
	}
}

func TestFindStatusOptionIDRejectsUnknownOptions(t *testing.T) {
	// Build the client directly, bypassing NewClient to avoid API calls.
	// The canonical-set check runs before any request is made.
	client := &Client{
		statusOptions: map[string]bool{
			models.DefaultStatusNames[models.StatusNew]:        true,
			models.DefaultStatusNames[models.StatusInProgress]: true,
			models.DefaultStatusNames[models.StatusInReview]:   true,
			models.DefaultStatusNames[models.StatusDone]:       true,
		},
	}

	testCases := []string{
		"Blocked",
		"In progress", // canonical name has the emoji prefix
		"",
	}

	for _, option := range testCases {
		t.Run(option, func(t *testing.T) {
			_, err := client.FindStatusOptionID(context.Background(), "project-1", option)

			var optionErr *InvalidOptionError
			if !errors.As(err, &optionErr) {
				t.Fatalf("expected InvalidOptionError, got %v", err)
			}
			if optionErr.Option != option {
				t.Errorf("expected error to name %q, got %q", option, optionErr.Option)
			}
		})
	}
}
