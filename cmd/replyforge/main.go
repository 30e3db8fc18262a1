package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"replyforge/internal/analytics"
	"replyforge/internal/cmdlog"
	"replyforge/internal/config"
	"replyforge/internal/convo"
	"replyforge/internal/jobs"
	"replyforge/internal/llm"
	"replyforge/internal/metrics"
	"replyforge/internal/model"
	"replyforge/internal/pipeline"
	"replyforge/internal/profile"
	"replyforge/internal/schedule"
	"replyforge/internal/store"
	"replyforge/internal/theme"
	"replyforge/internal/xclient"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "profile":
		cmdProfile()
	case "run":
		cmdRun()
	case "loop":
		cmdLoop()
	case "convo":
		cmdConvo()
	case "monitor":
		cmdMonitor()
	case "schedule":
		cmdSchedule()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: replyforge <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./replyforge.yaml")
	fmt.Println("  profile     Build (and optionally set) the targeting profile")
	fmt.Println("  run         Execute one engagement pipeline run")
	fmt.Println("  loop        Run the pipeline on an interval")
	fmt.Println("  convo       Sweep tracked conversations once")
	fmt.Println("  monitor     Show engagement analytics")
	fmt.Println("  schedule    Show next run window")
}

func fail(err error) {
	fmt.Println("error:", err)
	os.Exit(1)
}

// setup loads config, opens the store, and registers the account plus any
// OAuth credential found in config or environment.
func setup(cfgPath string) (config.Config, *store.Store) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fail(err)
	}
	cfg.ResolveEnv()
	if cfg.Account.ID == "" {
		fail(fmt.Errorf("account.id missing in %s", cfgPath))
	}
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		fail(err)
	}
	ctx := context.Background()
	if err := db.UpsertAccount(ctx, cfg.Account.ID, cfg.Account.Username); err != nil {
		fail(err)
	}
	if cfg.Credentials.AccessToken != "" {
		err := db.SaveCredential(ctx, model.Credential{
			AccountID:      cfg.Account.ID,
			Platform:       cfg.Account.Platform,
			ConsumerKey:    cfg.Credentials.ConsumerKey,
			ConsumerSecret: cfg.Credentials.ConsumerSecret,
			AccessToken:    cfg.Credentials.AccessToken,
			AccessSecret:   cfg.Credentials.AccessSecret,
		})
		if err != nil {
			fail(err)
		}
	}
	if cfg.Metrics.Addr != "" {
		metrics.StartServer(cfg.Metrics.Addr)
	}
	return cfg, db
}

func buildDeps(cfg config.Config, db *store.Store) pipeline.Deps {
	if cfg.Credentials.BearerToken == "" {
		fmt.Println("warning: missing X_BEARER_TOKEN; API calls will fail")
	}
	if cfg.LLM.APIKey == "" {
		fmt.Println("warning: missing OPENAI_API_KEY; generation calls will fail")
	}
	return pipeline.Deps{
		Store:  db,
		Client: xclient.NewHTTPClient(cfg.Credentials.BearerToken),
		LLM:    llm.NewOpenAIClient(cfg.LLM),
		Cfg:    cfg,
	}
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./replyforge.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("init", func() error {
		cfg := config.Default()
		if err := config.Save(*path, cfg); err != nil {
			fail(err)
		}
		abs, _ := filepath.Abs(*path)
		theme.PrintBanner()
		fmt.Println("Config written to:", abs)
		fmt.Println("Fill in account.id, account.username, and your credentials, then set a strategy:")
		fmt.Println("  replyforge profile -set 'We sell X to Y teams struggling with Z'")
		return nil
	})
}

func cmdProfile() {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	cfgPath := fs.String("config", "./replyforge.yaml", "config path")
	set := fs.String("set", "", "store this strategy text before building")
	setFile := fs.String("set-file", "", "store strategy text from a file before building")
	sample := fs.String("sample", "", "add one content sample")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("profile", func() error {
		cfg, db := setup(*cfgPath)
		defer db.Close()
		ctx := context.Background()

		text := *set
		if *setFile != "" {
			b, err := os.ReadFile(*setFile)
			if err != nil {
				fail(err)
			}
			text = string(b)
		}
		if text != "" {
			if err := db.SetStrategy(ctx, cfg.Account.ID, text); err != nil {
				fail(err)
			}
			fmt.Println("Strategy stored.")
		}
		if *sample != "" {
			if err := db.AddContentSample(ctx, cfg.Account.ID, *sample); err != nil {
				fail(err)
			}
			fmt.Println("Sample stored.")
		}

		deps := buildDeps(cfg, db)
		analyzer := &profile.Analyzer{Provider: pipeline.StoreProvider(db), LLM: deps.LLM}
		prof, err := analyzer.Build(ctx, cfg.Account.ID, profile.Options{
			IncludeSamples: true,
			IncludeHistory: true,
			HistoryN:       5,
		})
		if err != nil {
			fail(err)
		}
		printProfile(prof)
		return nil
	})
}

func printProfile(p model.TargetingProfile) {
	fmt.Println("Roles:", strings.Join(p.Audience.Roles, ", "))
	fmt.Println("Industries:", strings.Join(p.Audience.Industries, ", "))
	fmt.Println("Angle:", p.ValueProp.Angle)
	fmt.Println("Tone:", p.Style.Tone)
	fmt.Println("Pain points:")
	for _, pp := range p.PainPoints {
		fmt.Printf("  - %s (%s) [%s]\n", pp.Problem, pp.Urgency, strings.Join(pp.Keywords, ", "))
	}
	fmt.Println("Search queries:")
	for _, q := range p.SearchQueries {
		fmt.Printf("  p%-2d %-12s %s\n", q.Priority, q.Intent, q.Text)
	}
}

func cmdRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./replyforge.yaml", "config path")
	dryRun := fs.Bool("dry-run", false, "force dry run regardless of config")
	query := fs.String("query", "", "replace profile queries with this one query")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("run", func() error {
		cfg, db := setup(*cfgPath)
		defer db.Close()
		deps := buildDeps(cfg, db)

		var overrides *config.AgentConfig
		if *dryRun || *query != "" {
			agent := cfg.Agent
			if *dryRun {
				agent.DryRun = true
			}
			if *query != "" {
				agent.TestQueryOverride = *query
			}
			overrides = &agent
		}

		res := pipeline.Run(context.Background(), deps, cfg.Account.ID, overrides)
		printRunResult(res)
		if !res.Success {
			os.Exit(1)
		}
		return nil
	})
}

func printRunResult(res model.RunResult) {
	fmt.Printf("Run %s  account=%s  success=%v\n", res.RunID, res.AccountID, res.Success)
	fmt.Printf("  queries=%d found=%d evaluated=%d attempted=%d successful=%d\n",
		res.QueriesExecuted, res.CandidatesFound, res.CandidatesEvaluated,
		res.RepliesAttempted, res.RepliesSuccessful)
	for _, rec := range res.Engagements {
		mode := "sent"
		if rec.DryRun {
			mode = "dry-run"
		}
		fmt.Printf("  [%s] @%s (%.1f) %s\n", mode, rec.AuthorUsername, rec.RelevanceScore, rec.ReplyContent)
	}
	for _, e := range res.Errors {
		fmt.Println("  error:", e)
	}
}

func cmdLoop() {
	fs := flag.NewFlagSet("loop", flag.ExitOnError)
	cfgPath := fs.String("config", "./replyforge.yaml", "config path")
	interval := fs.Duration("interval", 0, "run interval (default from config)")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("loop", func() error {
		cfg, db := setup(*cfgPath)
		defer db.Close()
		deps := buildDeps(cfg, db)
		iv := cfg.Schedule.Interval
		if *interval > 0 {
			iv = *interval
		}
		theme.PrintBanner()
		fmt.Printf("Looping every %s (quiet hours %v UTC). Ctrl-C to stop.\n", iv, cfg.Schedule.QuietHours)
		if err := jobs.RunLoop(context.Background(), deps, cfg.Account.ID, iv); err != nil && err != context.Canceled {
			fail(err)
		}
		return nil
	})
}

func cmdConvo() {
	fs := flag.NewFlagSet("convo", flag.ExitOnError)
	cfgPath := fs.String("config", "./replyforge.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("convo", func() error {
		cfg, db := setup(*cfgPath)
		defer db.Close()
		deps := buildDeps(cfg, db)
		syncer := &convo.Syncer{Store: db, Client: deps.Client}
		res, err := syncer.Sync(context.Background(), cfg.Account.ID)
		fmt.Printf("Checked %d threads, %d updated, %d new messages\n", res.Checked, res.Updated, res.NewMessages)
		for _, e := range res.Errors {
			fmt.Println("  error:", e)
		}
		if err != nil {
			fail(err)
		}
		return nil
	})
}

func cmdMonitor() {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	cfgPath := fs.String("config", "./replyforge.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("monitor", func() error {
		cfg, db := setup(*cfgPath)
		defer db.Close()
		recs, err := db.ListEngagements(context.Background(), cfg.Account.ID)
		if err != nil {
			fail(err)
		}
		byStatus := analytics.ByStatus(recs)
		fmt.Printf("Engagements: %d  response rate: %.0f%%\n", len(recs), 100*analytics.ResponseRate(recs))
		for _, st := range []model.EngagementStatus{
			model.StatusSent, model.StatusGotReply, model.StatusGotLike,
			model.StatusGotFollow, model.StatusConversation, model.StatusIgnored,
		} {
			if n := byStatus[st]; n > 0 {
				fmt.Printf("  %-14s %d\n", st, n)
			}
		}
		buckets := analytics.HourlyActivity(recs)
		for _, k := range analytics.SortedBucketKeys(buckets) {
			fmt.Printf("  %s -> %v\n", k.Format("2006-01-02 15:00"), buckets[k])
		}
		return nil
	})
}

func cmdSchedule() {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	cfgPath := fs.String("config", "./replyforge.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("schedule", func() error {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			fail(err)
		}
		next := schedule.NextWindow(time.Now().UTC(), cfg.Schedule.QuietHours)
		fmt.Println("Next window:", next.Format(time.RFC3339))
		return nil
	})
}
