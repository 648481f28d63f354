package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sweetpotato0/procedure-assess/config"
)

type rootOptions struct {
	recordPath string
	configPath string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	v := config.New()

	cmd := &cobra.Command{
		Use:           "assess",
		Short:         "Assess a medical record against a procedure policy",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(v, opts.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}

			files, err := run(ctx, cfg, opts.recordPath)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.recordPath, "record-path", "", "path to the medical record PDF")
	flags.StringVar(&opts.configPath, "config", "", "optional config file (toml, yaml or json)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "abort the assessment after this long (0 disables)")
	flags.String("criteria", "colonoscopy", "name of the criteria spec to assess against")
	flags.String("criteria-dir", "", "directory of criteria specs overriding the built-in ones")
	flags.String("write-loc", ".", "directory the report is written to")
	flags.String("provider", "", "completion backend: openai, anthropic or gemini (inferred from --model)")
	flags.String("model", "gpt-4o", "model answering the assessment prompts")
	flags.String("reader-model", "gpt-4o-mini", "model answering questions about the record")
	flags.Int("concurrency", 1, "number of criteria sections assessed at once")
	flags.Bool("html", false, "also write an HTML rendering of the report")
	flags.Bool("trace", false, "export OpenTelemetry traces")
	_ = cmd.MarkFlagRequired("record-path")

	bindFlags(v, cmd, map[string]string{
		"criteria":     "assessment.criteria",
		"criteria-dir": "assessment.criteria_dir",
		"write-loc":    "output.dir",
		"provider":     "llm.provider",
		"model":        "llm.model",
		"reader-model": "llm.reader_model",
		"concurrency":  "assessment.concurrency",
		"html":         "output.html",
		"trace":        "telemetry.enabled",
	})

	cmd.AddCommand(newCriteriaCmd())
	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}
