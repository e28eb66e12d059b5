package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/joescharf/rebuttal/internal/check"
	"github.com/joescharf/rebuttal/internal/judge"
	"github.com/joescharf/rebuttal/internal/reconcile"
	"github.com/joescharf/rebuttal/internal/report"
)

// checkOptions is the fully resolved input of a check run.
type checkOptions struct {
	check.Options
	Judge  bool
	Format report.Format
	Judger judge.Config
}

// checkOptionsFromConfig resolves flags, env and config file into checkOptions.
// flags supplies the settings with no viper key (--timeout, --no-split).
func checkOptionsFromConfig(flags *pflag.FlagSet) (checkOptions, error) {
	match, err := reconcile.ParseMatchMode(viper.GetString("match"))
	if err != nil {
		return checkOptions{}, err
	}
	format, err := report.ParseFormat(viper.GetString("format"))
	if err != nil {
		return checkOptions{}, err
	}

	jc, err := judgeConfigFromViper()
	if err != nil {
		return checkOptions{}, err
	}
	if f := flags.Lookup("timeout"); f != nil && f.Changed {
		jc.Timeout, _ = flags.GetDuration("timeout")
	}
	if noSplit, _ := flags.GetBool("no-split"); noSplit {
		jc.SplitComments = false
	}
	if jc.Trials < 1 {
		return checkOptions{}, fmt.Errorf("--n must be at least 1 (got %d)", jc.Trials)
	}

	return checkOptions{
		Options: check.Options{
			Reviews:   viper.GetString("paths.reviews"),
			Responses: viper.GetString("paths.responses"),
			Paper:     viper.GetString("paths.paper"),
			Match:     match,
		},
		Judge:  viper.GetBool("judge.enabled"),
		Format: format,
		Judger: jc,
	}, nil
}

// checkRun reconciles, optionally judges, renders the report, and returns
// errCheckFailed when the run did not pass.
func checkRun(ctx context.Context, opts checkOptions) error {
	var j *judge.Judge
	if opts.Judge {
		m, err := newModelFunc(ctx)
		if err != nil {
			return err
		}
		j = judge.New(m, opts.Judger, logger)
		ui.VerboseLog("Judging with %s, n=%d, concurrency=%d", m.Name(), j.Config().Trials, j.Config().Concurrency)
	}

	rep, err := check.Run(ctx, opts.Options, j)
	if err != nil {
		return err
	}

	switch opts.Format {
	case report.FormatJSON:
		err = rep.WriteJSON(ui.Out)
	case report.FormatYAML:
		err = rep.WriteYAML(ui.Out)
	default:
		err = rep.WriteText(ui)
	}
	if err != nil {
		return err
	}

	if !rep.OK() {
		return errCheckFailed
	}
	return nil
}
