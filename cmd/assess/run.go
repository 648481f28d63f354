package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sweetpotato0/procedure-assess/advisor"
	"github.com/sweetpotato0/procedure-assess/agent"
	"github.com/sweetpotato0/procedure-assess/assessor"
	"github.com/sweetpotato0/procedure-assess/config"
	"github.com/sweetpotato0/procedure-assess/contrib/provider"
	"github.com/sweetpotato0/procedure-assess/contrib/search/duckduckgo"
	"github.com/sweetpotato0/procedure-assess/criteria"
	"github.com/sweetpotato0/procedure-assess/middleware/standard"
	"github.com/sweetpotato0/procedure-assess/orchestrator"
	"github.com/sweetpotato0/procedure-assess/pkg/logging"
	"github.com/sweetpotato0/procedure-assess/pkg/telemetry"
	"github.com/sweetpotato0/procedure-assess/prompt"
	"github.com/sweetpotato0/procedure-assess/record"
	"github.com/sweetpotato0/procedure-assess/report"
)

// run assesses the record at path and returns the report files written.
func run(ctx context.Context, cfg *config.Config, path string) (files []string, err error) {
	logger := logging.Configure(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		Endpoint:    cfg.Telemetry.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if serr := shutdown(context.Background()); serr != nil {
			logger.Warn("telemetry shutdown failed", "error", serr)
		}
	}()

	spec, err := criteria.NewLoader(cfg.Assessment.CriteriaDir).Load(cfg.Assessment.Criteria)
	if err != nil {
		return nil, err
	}

	prompts := prompt.DefaultCatalog()
	searcher := duckduckgo.New(&duckduckgo.Config{
		Endpoint:   cfg.Search.Endpoint,
		MaxResults: cfg.Search.MaxResults,
		Timeout:    cfg.Search.Timeout,
	})

	readerClient, err := newClient(ctx, cfg, cfg.LLM.ReaderModel)
	if err != nil {
		return nil, err
	}
	defer closeClient(readerClient, logger)
	assessClient, err := newClient(ctx, cfg, cfg.LLM.Model)
	if err != nil {
		return nil, err
	}
	defer closeClient(assessClient, logger)

	reader := advisor.New(readerClient,
		advisor.WithSearcher(searcher),
		advisor.WithPrompts(prompts),
		advisor.WithMiddleware(standard.Chain(standard.Tokenizer(readerClient.Model()), cfg.LLM.MaxCalls)),
	)
	judge := advisor.New(assessClient,
		advisor.WithPrompts(prompts),
		advisor.WithMiddleware(standard.Chain(standard.Tokenizer(assessClient.Model()), cfg.LLM.MaxCalls)),
	)

	logger.Info("loading medical record", "path", path)
	rec, err := record.FromPDF(ctx, reader, path, record.WithProfileAttempts(cfg.Assessment.ProfileRetries))
	if err != nil {
		return nil, err
	}

	o := orchestrator.New(assessor.New(judge, assessor.WithConcurrency(cfg.Assessment.Concurrency)))
	outcome, err := o.Run(ctx, spec, rec)
	if err != nil {
		return nil, err
	}

	files, err = report.Write(cfg.Output.Dir, outcome.Profile.Name, outcome.Markdown, report.Options{HTML: cfg.Output.HTML})
	if err != nil {
		return nil, err
	}
	logger.Info("report written", "run_id", outcome.RunID, "decision", outcome.Decision, "files", files)
	return files, nil
}

func newClient(ctx context.Context, cfg *config.Config, model string) (agent.LLMClient, error) {
	client, err := provider.New(ctx, cfg.ProviderConfig(model))
	if err != nil {
		return nil, fmt.Errorf("create %s client for %s: %w", cfg.LLM.Provider, model, err)
	}
	return client, nil
}

func closeClient(client agent.LLMClient, logger *slog.Logger) {
	c, ok := client.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("closing client failed", "model", client.Model(), "error", err)
	}
}
