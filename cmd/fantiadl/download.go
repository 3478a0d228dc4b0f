package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/auth"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/batch"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/checkpoint"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/config"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/fantia"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/logger"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/ui"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/ui/tui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const sessionPrompt = "Fantia session cookie (_session_id or cookies.txt path): "

func (a *app) runDownload(cmd *cobra.Command, args []string) error {
	// Email and password login no longer works on Fantia
	if (a.email != "" || a.password != "" || a.netrc) && a.cookie == "" {
		return plainError(legacyLoginMessage)
	}
	if !a.downloadFanclubs && !a.downloadPaid && a.newPosts <= 0 && len(args) == 0 {
		return plainError(noInputMessage)
	}

	ctx := cmd.Context()

	// Load configuration
	cfg, err := config.Load(a.configFile, a.flagMap(cmd))
	if err != nil {
		return err
	}

	// Set up logger
	log, err := a.newLogger(cfg)
	if err != nil {
		return err
	}

	sessionID, err := a.resolveSession(ctx, cfg)
	if err != nil {
		return err
	}

	dl, err := fantia.New(fantia.OptionsFromConfig(cfg, sessionID), a.fs, log)
	if err != nil {
		return err
	}

	// Explicit URLs first, then the fan club list, paid clubs and the timeline
	for _, raw := range args {
		if err := dl.DownloadURL(ctx, raw); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !cfg.Download.ContinueOnError {
				return fmt.Errorf("failed to download %s: %w", raw, err)
			}
			log.WithError(err).WithField("url", raw).Warn("Download failed, continuing")
		}
	}

	if a.downloadFanclubs {
		if err := a.runBatch(ctx, cfg, dl, log); err != nil {
			return err
		}
	}

	if a.downloadPaid {
		if err := dl.DownloadPaidFanclubs(ctx); err != nil {
			return err
		}
	}

	if a.newPosts > 0 {
		if err := dl.DownloadNewPosts(ctx, a.newPosts); err != nil {
			return err
		}
	}

	return nil
}

// newLogger keeps the console quiet while the dashboard owns the terminal
func (a *app) newLogger(cfg *config.Config) (logger.Logger, error) {
	if !a.useTUI {
		if err := logger.Initialize(&cfg.Logging); err != nil {
			return nil, err
		}
		return logger.GetLogger(), nil
	}
	if cfg.Logging.File == "" {
		return logger.NewNopLogger(), nil
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	f, err := a.fs.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger.NewWithWriter(f, level), nil
}

// resolveSession picks the session from flags, config and environment first,
// then the credential store, then asks on stdin.
func (a *app) resolveSession(ctx context.Context, cfg *config.Config) (string, error) {
	arg := cfg.Fantia.SessionID

	if arg == "" && a.newCredentials != nil {
		if mgr, err := a.newCredentials(); err == nil {
			if session, err := mgr.Retrieve(auth.DefaultProfile); err == nil && session.SessionID != "" {
				arg = session.SessionID
				if session.UserAgent != "" && cfg.Fantia.UserAgent == config.DefaultUserAgent {
					cfg.Fantia.UserAgent = session.UserAgent
				}
			}
		}
	}

	if arg == "" {
		input, err := a.readSecret(ctx, sessionPrompt)
		if err != nil {
			return "", fmt.Errorf("failed to read session cookie: %w", err)
		}
		arg = input
	}

	sessionID, err := auth.ResolveSessionArg(a.fs, arg)
	if err != nil {
		return "", fmt.Errorf("failed to resolve session cookie: %w", err)
	}
	return sessionID, nil
}

func (a *app) runBatch(ctx context.Context, cfg *config.Config, dl *fantia.Downloader, log logger.Logger) error {
	store := checkpoint.NewStore(a.fs, cfg.Batch.FanlistFile, cfg.Batch.CompleteLogFile, log)

	var extra batch.Observers
	if a.notify {
		extra = append(extra, ui.NewNotifier())
	}

	if !a.useTUI {
		var display batch.Observer = batch.NopObserver{}
		if !cfg.Download.Quiet {
			ui.PrintLogo()
			display = ui.NewProgressDisplay(a.out, true)
		}
		runner := batch.NewRunner(dl, store,
			batch.WithObserver(append(batch.Observers{display}, extra...)),
			batch.WithLogger(log),
		)
		_, err := runner.Run(ctx)
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var report *batch.Report
	dashboard := tui.NewTUI(cancel)
	err := dashboard.Run(func(obs batch.Observer) error {
		runner := batch.NewRunner(dl, store,
			batch.WithObserver(append(batch.Observers{obs}, extra...)),
			batch.WithLogger(log),
		)
		var err error
		report, err = runner.Run(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return batch.ErrInterrupted
		}
		return err
	}

	if report != nil {
		ui.PrintSuccess(ui.SummaryMessage(report))
	}
	return nil
}
