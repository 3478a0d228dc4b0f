package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/auth"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/batch"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/ui"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const (
	legacyLoginMessage = "Logging in from the command line is no longer supported. Please provide a session cookie using -c/--cookie. See the README for more information."
	noInputMessage     = "Error: No valid input provided"
	interruptedMessage = "Interrupted by user. Exiting..."

	exitInterrupted = 130
)

// plainError is printed verbatim instead of with an "Error:" prefix
type plainError string

func (e plainError) Error() string { return string(e) }

// app holds the streams and parsed flags of one invocation
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	fs     afero.Fs
	reader *bufio.Reader

	newCredentials func() (*auth.Manager, error)

	configFile  string
	logLevel    string
	cookie      string
	fanlist     string
	completeLog string

	quiet            bool
	ignoreErrors     bool
	limit            int
	outputDir        string
	serverFilenames  bool
	markIncomplete   bool
	dumpMetadata     bool
	parseLinks       bool
	downloadThumb    bool
	downloadFanclubs bool
	downloadPaid     bool
	newPosts         int
	month            string
	exclude          string
	useTUI           bool
	notify           bool

	email    string
	password string
	netrc    bool
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:             in,
		out:            out,
		errOut:         errOut,
		fs:             afero.NewOsFs(),
		newCredentials: auth.NewManager,
	}
}

// execute runs the command line and returns the process exit code
func (a *app) execute(ctx context.Context, args []string) int {
	ui.Output = a.out

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, batch.ErrInterrupted), errors.Is(err, context.Canceled):
		fmt.Fprintln(a.errOut, interruptedMessage)
		return exitInterrupted
	}

	var plain plainError
	if errors.As(err, &plain) {
		fmt.Fprintln(a.errOut, plain.Error())
	} else {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
	}
	return 1
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fantiadl [flags] [url...]",
		Short: "Download posts from Fantia fan clubs",
		Long: `fantiadl downloads posts from fantia.jp using your browser session cookie.

Modes:
  - Fan club and post URLs given as arguments
  - -f: incremental batch over the fan club list (fanList.json)
  - -p: every fan club you back on a paid plan
  - -n N: the N newest posts of your timeline

The batch mode remembers the last downloaded post of every fan club and
writes a completion log (fantia_complete.json) after each run.`,
		Example: `  # Download a single post
  fantiadl -c $SESSION https://fantia.jp/posts/123456

  # Run the fan club batch with metadata
  fantiadl -c cookies.txt -f -m

  # Only posts from August 2024, ignoring errors
  fantiadl -f -d 2024-08 -i`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          a.runDownload,
	}

	root.SetVersionTemplate(`fantiadl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default fantiadl.yaml or ~/.config/fantiadl/config.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVarP(&a.cookie, "cookie", "c", "", "_session_id cookie or cookies.txt path")
	pf.StringVar(&a.fanlist, "fanlist", "", "fan club list file (default fanList.json)")

	f := root.Flags()
	f.StringVar(&a.completeLog, "complete-log", "", "completion log file (default fantia_complete.json)")
	f.BoolVarP(&a.quiet, "quiet", "q", false, "suppress output")
	f.BoolVarP(&a.ignoreErrors, "ignore-errors", "i", false, "continue on download errors")
	f.IntVarP(&a.limit, "limit", "l", 0, "limit the number of posts to process per fan club")
	f.StringVarP(&a.outputDir, "output-directory", "o", "", "directory to download to")
	f.BoolVarP(&a.serverFilenames, "use-server-filenames", "s", false, "download using server defined filenames")
	f.BoolVarP(&a.markIncomplete, "mark-incomplete-posts", "r", false, "add .incomplete file to post directories that are incomplete")
	f.BoolVarP(&a.dumpMetadata, "dump-metadata", "m", false, "store metadata to file (including fan club icon and cover)")
	f.BoolVarP(&a.parseLinks, "parse-for-external-links", "x", false, "parse posts for external links")
	f.BoolVarP(&a.downloadThumb, "download-thumbnail", "t", false, "download post thumbnails")
	f.BoolVarP(&a.downloadFanclubs, "download-fanclubs", "f", false, "download new posts of every fan club in the fan club list")
	f.BoolVarP(&a.downloadPaid, "download-paid-fanclubs", "p", false, "download posts from all fan clubs backed on a paid plan")
	f.IntVarP(&a.newPosts, "download-new-posts", "n", 0, "download a number of new posts from your timeline")
	f.StringVarP(&a.month, "download-month", "d", "", "download posts only from a specific month, e.g. 2007-08")
	f.StringVar(&a.exclude, "exclude", "", "file containing a list of filenames to exclude from downloading")
	f.BoolVar(&a.useTUI, "tui", false, "show an interactive dashboard during the fan club batch")
	f.BoolVar(&a.notify, "notify", false, "send a desktop notification when the fan club batch finishes")

	f.StringVarP(&a.email, "email", "e", "", "")
	f.StringVar(&a.password, "password", "", "")
	f.BoolVar(&a.netrc, "netrc", false, "")
	for _, name := range []string{"email", "password", "netrc"} {
		_ = f.MarkHidden(name)
	}

	root.AddCommand(a.newAuthCmd(), a.newConfigCmd(), a.newFanlistCmd())
	return root
}

// flagMap collects the explicitly set flags for config.MergeCommandLineFlags
func (a *app) flagMap(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := cmd.Flags()

	for _, name := range []string{"cookie", "output-directory", "download-month", "exclude", "fanlist", "complete-log", "log-level"} {
		if f := set.Lookup(name); f != nil && f.Changed {
			flags[name] = f.Value.String()
		}
	}
	for _, name := range []string{"quiet", "ignore-errors", "use-server-filenames", "mark-incomplete-posts", "dump-metadata", "parse-for-external-links", "download-thumbnail"} {
		if f := set.Lookup(name); f != nil && f.Changed {
			v, _ := set.GetBool(name)
			flags[name] = v
		}
	}
	if f := set.Lookup("limit"); f != nil && f.Changed {
		flags["limit"] = a.limit
	}

	return flags
}
