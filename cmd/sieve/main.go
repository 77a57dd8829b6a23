package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/sieve/internal/action"
	_ "github.com/xxxsen/sieve/internal/action/register"
	"github.com/xxxsen/sieve/internal/config"
	"github.com/xxxsen/sieve/internal/matcher"
	_ "github.com/xxxsen/sieve/internal/matcher/register"
	"github.com/xxxsen/sieve/internal/resolver"
	"github.com/xxxsen/sieve/internal/rule"
	"github.com/xxxsen/sieve/internal/server"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to yaml configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		// logger not initialised yet, fallback to stderr
		log.Fatalf("init config failed, err:%v", err)
	}
	logkit := logger.Init(cfg.Log.File, cfg.Log.Level, int(cfg.Log.FileCount),
		int(cfg.Log.FileSize), int(cfg.Log.KeepDays), cfg.Log.Console)
	defer logkit.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Pprof.Enable {
		startPprofServer(ctx, cfg.Pprof.Bind, logkit)
	}

	resolver.ConfigureCache(resolver.CacheOptions{
		Size:     cfg.Cache.Size,
		Lazy:     cfg.Cache.Lazy,
		Persist:  cfg.Cache.Persist,
		File:     cfg.Cache.File,
		Interval: time.Duration(cfg.Cache.Interval) * time.Second,
	})

	engine, err := buildRuleEngine(cfg)
	if err != nil {
		logkit.Fatal("build rule engine failed", zap.Error(err))
	}
	srv, err := server.New(
		server.WithBind(cfg.Bind),
		server.WithRuleEngine(engine),
		server.WithTimeout(time.Duration(cfg.Timeout)*time.Millisecond),
	)
	if err != nil {
		logkit.Fatal("initialise server failed", zap.Error(err))
	}

	logkit.Info("sieve dns server listening", zap.String("addr", cfg.Bind),
		zap.Int("rule_count", len(cfg.Rules)))
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logkit.Fatal("server error", zap.Error(err))
	}
	logkit.Info("shutdown complete")
}

func buildRuleEngine(cfg *config.Config) (rule.IDNSRuleEngine, error) {
	ms, err := buildMatcherMap(cfg.Resource.Matcher)
	if err != nil {
		return nil, fmt.Errorf("build matcher map: %w", err)
	}
	as, err := buildActionMap(cfg.Resource.Action)
	if err != nil {
		return nil, fmt.Errorf("build action map: %w", err)
	}
	rs := make([]rule.IDNSRule, 0, len(cfg.Rules))
	for idx, r := range cfg.Rules {
		remark := r.Remark
		if remark == "" {
			remark = fmt.Sprintf("rule:%d", idx)
		}
		expr := strings.TrimSpace(r.Match)
		if expr == "" {
			expr = "any"
		}
		m, err := matcher.BuildExpressionMatcher(expr, ms)
		if err != nil {
			return nil, fmt.Errorf("compile match of %s: %w", remark, err)
		}
		a, ok := as[r.Action]
		if !ok {
			return nil, fmt.Errorf("action not found, rule:%s, name:%s", remark, r.Action)
		}
		rs = append(rs, rule.NewRule(remark, m, a))
	}
	return rule.NewEngine(rs...), nil
}

func buildActionMap(ps []config.PluginConfig) (map[string]action.IDNSAction, error) {
	rs := make(map[string]action.IDNSAction, len(ps))
	for _, p := range ps {
		inst, err := action.MakeAction(p.Type, p.Name, p.Data)
		if err != nil {
			return nil, fmt.Errorf("make action failed, name:%s, type:%s, err:%w", p.Name, p.Type, err)
		}
		rs[p.Name] = inst
	}
	return rs, nil
}

func buildMatcherMap(ps []config.PluginConfig) (map[string]matcher.IDNSMatcher, error) {
	rs := make(map[string]matcher.IDNSMatcher, len(ps)+1)
	for _, p := range ps {
		inst, err := matcher.MakeMatcher(p.Type, p.Name, p.Data)
		if err != nil {
			return nil, fmt.Errorf("make matcher failed, name:%s, type:%s, err:%w", p.Name, p.Type, err)
		}
		rs[p.Name] = inst
	}
	if _, ok := rs["any"]; !ok {
		anyMatcher, err := matcher.MakeMatcher("any", "any", nil)
		if err != nil {
			return nil, err
		}
		rs["any"] = anyMatcher
	}
	return rs, nil
}
