package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/jobtitles/internal/config"
)

func TestRunProcessReturnsExitCodeOnConfigError(t *testing.T) {
	saved := cfg
	t.Cleanup(func() { cfg = saved })

	tests := []struct {
		name   string
		modify func(c *config.Config)
	}{
		{"missing api key", func(c *config.Config) { c.AI.APIKey = "" }},
		{"invalid batch size", func(c *config.Config) {
			c.AI.APIKey = "test-key"
			c.Process.BatchSize = 0
		}},
		{"unreadable rules file", func(c *config.Config) {
			c.AI.APIKey = "test-key"
			c.AI.RulesFile = t.TempDir()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg = config.Default()
			tt.modify(cfg)
			assert.Equal(t, 1, runProcess(processCmd))
		})
	}
}
