package main

import (
	"strings"
	"testing"
	"time"

	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/kakapo-ai/kakapo/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ask", "models", "cache", "audit", "budget", "mcp"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestOpenSharedCacheRejectsMemory(t *testing.T) {
	cfg := config.Default()
	_, err := openSharedCache(cfg)
	assert.Error(t, err)

	cfg.Cache.Backend = config.CacheSQLite
	cfg.Cache.DBPath = t.TempDir() + "/cache.db"
	c, err := openSharedCache(cfg)
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}

func TestOpenAppWiresBudgetToAudit(t *testing.T) {
	cfg := config.Default()
	cfg.Budget.Enabled = true
	cfg.Budget.MaxTokens = 100
	cfg.Audit.DBPath = t.TempDir() + "/audit.db"

	a, err := openApp(cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.auditor, "budget needs the audit db")
	require.NotNil(t, a.budget)
	assert.Equal(t, config.ModeEncyclopedia, a.answers.Mode())

	deps := a.mcpDeps()
	assert.NotNil(t, deps.Budget)
	assert.NotNil(t, deps.Cache)
}

func TestOpenAppMinimal(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = config.CacheNone

	a, err := openApp(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.auditor)
	assert.Nil(t, a.auditSink())
	deps := a.mcpDeps()
	assert.Nil(t, deps.Cache)
	assert.Nil(t, deps.Audit)
	assert.Nil(t, deps.Budget)
}

func TestFormatAuditStats(t *testing.T) {
	out := formatAuditStats([]models.AuditStat{{Endpoint: "/ask", Source: "llm", Day: "2026-10-18", Count: 3, Tokens: 90}})
	assert.Contains(t, out, "/ask")
	assert.Contains(t, out, "90")
	assert.Equal(t, "No audit stats found.\n", formatAuditStats(nil))
}

func TestFormatAuditEntries(t *testing.T) {
	out := formatAuditEntries([]models.AuditEntry{{
		RequestID: "req-1", Endpoint: "/webhook", Source: "encyclopedia", StatusCode: 200,
		CreatedAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "2026-10-18 09:00:00")
}
