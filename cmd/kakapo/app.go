package main

import (
	"fmt"

	"github.com/kakapo-ai/kakapo/pkg/answer"
	"github.com/kakapo-ai/kakapo/pkg/audit"
	"github.com/kakapo-ai/kakapo/pkg/budget"
	"github.com/kakapo-ai/kakapo/pkg/cache"
	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/kakapo-ai/kakapo/pkg/encyclopedia"
	"github.com/kakapo-ai/kakapo/pkg/llm"
	"github.com/kakapo-ai/kakapo/pkg/mcp"
	"github.com/kakapo-ai/kakapo/pkg/resolver"
	"github.com/kakapo-ai/kakapo/pkg/server"
	"github.com/rs/zerolog/log"
)

// app holds the services built from one configuration.
type app struct {
	cfg      *config.Config
	llm      *llm.Client
	resolver *resolver.Resolver
	cache    cache.Cache
	lookup   *encyclopedia.Lookup
	auditor  *audit.Logger
	budget   *budget.Enforcer
	answers  *answer.Answerer
}

func openApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	a.llm = llm.New(cfg.LLM)
	a.resolver = resolver.New(cfg.LLM, a.llm)

	c, err := cache.Open(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	a.cache = c

	wiki := encyclopedia.NewClient(cfg.Encyclopedia)
	var memo encyclopedia.AnswerCache
	if c != nil {
		memo = c
	}
	a.lookup = encyclopedia.NewLookup(wiki, memo, cfg.Encyclopedia.Sentences, cfg.Encyclopedia.Spelling)

	// the budget reads its totals from the audit db, so it needs one open
	if cfg.Audit.Enabled || cfg.Budget.Enabled {
		auditCfg := cfg.Audit
		if !cfg.Audit.Enabled {
			auditCfg.Include = nil
			log.Info().Str("db", auditCfg.DBPath).Msg("budget enabled, recording token usage only")
		}
		l, err := audit.New(auditCfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.auditor = l
	}

	var limiter answer.Budget
	if cfg.Budget.Enabled {
		a.budget = budget.New(cfg.Budget, a.auditor)
		limiter = a.budget
	}
	a.answers = answer.New(cfg, a.llm, a.resolver, a.lookup, limiter)

	log.Debug().
		Str("mode", a.answers.Mode()).
		Str("cache", cfg.Cache.Backend).
		Bool("audit", a.auditor != nil).
		Bool("budget", a.budget != nil).
		Msg("services ready")
	return a, nil
}

func (a *app) auditSink() server.AuditSink {
	if a.auditor == nil {
		return nil
	}
	return a.auditor
}

func (a *app) mcpDeps() mcp.Deps {
	deps := mcp.Deps{Answers: a.answers, Lookup: a.lookup}
	if a.cache != nil {
		deps.Cache = a.cache
	}
	if a.auditor != nil {
		deps.Audit = a.auditor
	}
	if a.budget != nil {
		deps.Budget = a.budget
	}
	return deps
}

func (a *app) Close() {
	if a.auditor != nil {
		if err := a.auditor.Close(); err != nil {
			log.Warn().Err(err).Msg("close audit log")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("close cache")
		}
	}
}
