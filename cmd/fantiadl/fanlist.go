package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/checkpoint"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/config"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/fantia"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/ui"
	"github.com/spf13/cobra"
)

func (a *app) newFanlistCmd() *cobra.Command {
	fanlistCmd := &cobra.Command{
		Use:   "fanlist",
		Short: "Inspect and maintain the fan club list",
		Long: `Inspect and maintain the fan club list used by -f/--download-fanclubs.

Every entry holds a fan club id, the id of the last downloaded post and
the fan club name.`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the fan club list",
		Args:  cobra.NoArgs,
		RunE:  a.runFanlistShow,
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Add followed fan clubs missing from the list",
		Long: `Add every fan club you follow that is not yet in the fan club list.

New entries start without a last post, so the next batch run downloads
their whole history.`,
		Args: cobra.NoArgs,
		RunE: a.runFanlistSync,
	}

	fanlistCmd.AddCommand(showCmd, syncCmd)
	return fanlistCmd
}

// runFanlistShow prints the fan club list as a table
func (a *app) runFanlistShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configFile, a.flagMap(cmd))
	if err != nil {
		return err
	}

	store := checkpoint.NewStore(a.fs, cfg.Batch.FanlistFile, cfg.Batch.CompleteLogFile, nil)
	rec, err := store.LoadProgress()
	if err != nil {
		return err
	}

	if len(rec.Entries) == 0 {
		ui.PrintInfo("Fan club list is empty", store.ProgressPath())
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FANCLUB\tLAST POST\tNAME")
	for _, e := range rec.Entries {
		last := e.LastPostID
		if last == "" {
			last = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.FanclubID, last, e.FanclubName)
	}
	return w.Flush()
}

// runFanlistSync appends followed fan clubs missing from the list. Existing
// entries and their cursors are left alone.
func (a *app) runFanlistSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configFile, a.flagMap(cmd))
	if err != nil {
		return err
	}

	log, err := a.newLogger(cfg)
	if err != nil {
		return err
	}

	sessionID, err := a.resolveSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	dl, err := fantia.New(fantia.OptionsFromConfig(cfg, sessionID), a.fs, log)
	if err != nil {
		return err
	}

	store := checkpoint.NewStore(a.fs, cfg.Batch.FanlistFile, cfg.Batch.CompleteLogFile, log)
	rec, err := store.LoadProgress()
	if err != nil && !errors.Is(err, checkpoint.ErrNoProgressRecord) {
		return err
	}

	ctx := cmd.Context()
	followed, err := dl.FollowedFanclubs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list followed fan clubs: %w", err)
	}

	added := 0
	for _, id := range followed {
		if rec.Contains(id) {
			continue
		}

		// A missing name is not fatal, the id alone is enough to download
		entry := checkpoint.Entry{FanclubID: id}
		if info, err := dl.FanclubInfo(ctx, id); err == nil {
			entry.FanclubName = info.FanclubName
			if entry.FanclubName == "" {
				entry.FanclubName = info.Name
			}
		} else {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).WithField("fanclub_id", id).Warn("Failed to fetch fan club name")
		}

		rec.Entries = append(rec.Entries, entry)
		added++
	}

	if added == 0 {
		ui.PrintInfo("Fan club list is up to date", store.ProgressPath())
		return nil
	}

	if err := store.SaveProgress(rec); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Added %d fan clubs to %s", added, store.ProgressPath()))
	return nil
}
