package main

import (
	"strings"
	"testing"

	"github.com/STRATINT/replybot/internal/config"
)

func TestCheckCredentials(t *testing.T) {
	full := config.Config{
		Twitter: config.TwitterConfig{
			APIKey:            "k",
			APISecret:         "s",
			AccessToken:       "t",
			AccessTokenSecret: "ts",
			BearerToken:       "b",
		},
		OpenAI: config.OpenAIConfig{APIKey: "sk"},
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "all present", mutate: func(*config.Config) {}},
		{name: "missing bearer", mutate: func(c *config.Config) { c.Twitter.BearerToken = "" }, wantErr: "X_BEARER_TOKEN"},
		{name: "missing openai", mutate: func(c *config.Config) { c.OpenAI.APIKey = "" }, wantErr: "OPENAI_API_KEY"},
		{name: "seed needs no openai", mutate: func(c *config.Config) { c.OpenAI.APIKey = ""; c.Bot.SeedMode = true }},
		{name: "missing write creds", mutate: func(c *config.Config) { c.Twitter.AccessToken = "" }, wantErr: "X_ACCESS_TOKEN"},
		{name: "dry run needs no write creds", mutate: func(c *config.Config) { c.Twitter.AccessToken = ""; c.Bot.DryRun = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := full
			tt.mutate(&cfg)
			err := checkCredentials(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--dry-run", "--seed"}); err != nil {
		t.Fatalf("ParseFlags returned error: %v", err)
	}
	for _, name := range []string{"dry-run", "seed"} {
		if !cmd.Flags().Changed(name) {
			t.Errorf("expected --%s to be registered and set", name)
		}
	}
}
