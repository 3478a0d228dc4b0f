package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/auth"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (a *app) newAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored Fantia session",
		Long: `Manage the stored Fantia session cookie.

Sessions are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - FANTIADL_SESSION_ID environment variable (read only)

Never share your session cookie or config files!`,
	}

	loginCmd := &cobra.Command{
		Use:   "login [profile]",
		Short: "Store a Fantia session cookie",
		Long: `Store a Fantia session cookie in the system keychain or encrypted file.

You will be prompted for:
  - The _session_id cookie value, or a path to a cookies.txt file
  - User Agent (optional, press Enter for default)

The stored default profile is used whenever -c/--cookie is not given.`,
		Example: `  # Interactive login
  fantiadl auth login

  # Store a second profile
  fantiadl auth login alt`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runLogin,
	}

	logoutCmd := &cobra.Command{
		Use:   "logout [profile]",
		Short: "Remove a stored session",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runLogout,
	}

	statusCmd := &cobra.Command{
		Use:   "status [profile]",
		Short: "Show the stored session",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runStatus,
	}

	authCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
	return authCmd
}

func profileArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return auth.DefaultProfile
}

func (a *app) runLogin(cmd *cobra.Command, args []string) error {
	manager, err := a.newCredentials()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	profile := profileArg(args)

	auth.ShowCookieExtractionGuide(a.out)
	fmt.Fprintln(a.out)

	input, err := a.readSecret(cmd.Context(), "_session_id cookie value (or cookies.txt path): ")
	if err != nil {
		return fmt.Errorf("failed to read session cookie: %w", err)
	}
	sessionID, err := auth.ResolveSessionArg(a.fs, input)
	if err != nil {
		return fmt.Errorf("failed to resolve session cookie: %w", err)
	}

	userAgent, err := a.readLine(cmd.Context(), "User Agent (press Enter to use default): ")
	if err != nil {
		return fmt.Errorf("failed to read user agent: %w", err)
	}

	session := &auth.Session{
		Profile:      profile,
		SessionID:    sessionID,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}
	if err := manager.Store(session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Session saved for profile %s (%s)", profile, auth.MaskSecret(sessionID)))
	return nil
}

func (a *app) runLogout(cmd *cobra.Command, args []string) error {
	manager, err := a.newCredentials()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	profile := profileArg(args)

	if err := manager.Delete(profile); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	ui.PrintSuccess("Session removed: " + profile)
	return nil
}

func (a *app) runStatus(cmd *cobra.Command, args []string) error {
	manager, err := a.newCredentials()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	profile := profileArg(args)

	session, err := manager.Retrieve(profile)
	if errors.Is(err, auth.ErrCredentialsNotFound) {
		ui.PrintInfo("No stored session", "use 'fantiadl auth login' to add one")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	ui.PrintHighlight("Stored session")
	ui.PrintInfo("Profile", session.Profile)
	ui.PrintInfo("Session", auth.MaskSecret(session.SessionID))
	if session.UserAgent != "" {
		ui.PrintInfo("User Agent", session.UserAgent)
	}
	ui.PrintInfo("Last Modified", session.LastModified.Format("2006-01-02 15:04:05"))
	return nil
}

func (a *app) lineReader() *bufio.Reader {
	if a.reader == nil {
		a.reader = bufio.NewReader(a.in)
	}
	return a.reader
}

// readLine prompts and returns one trimmed line of input
func (a *app) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	return awaitInput(ctx, func() (string, error) {
		line, err := a.lineReader().ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	})
}

// readSecret prompts without echo when stdin is a terminal
func (a *app) readSecret(ctx context.Context, prompt string) (string, error) {
	f, ok := a.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return a.readLine(ctx, prompt)
	}

	fd := int(f.Fd())
	state, err := term.GetState(fd)
	if err != nil {
		return "", err
	}

	fmt.Fprint(a.out, prompt)
	secret, err := awaitInput(ctx, func() (string, error) {
		b, err := term.ReadPassword(fd)
		return string(b), err
	})
	if ctx.Err() != nil {
		// ReadPassword is still blocked with echo off
		_ = term.Restore(fd, state)
	}
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(secret), nil
}

// awaitInput runs a blocking read and gives up when ctx is cancelled. The
// abandoned read finishes on its own once input arrives or stdin closes.
func awaitInput(ctx context.Context, read func() (string, error)) (string, error) {
	type readResult struct {
		line string
		err  error
	}
	done := make(chan readResult, 1)
	go func() {
		line, err := read()
		done <- readResult{line, err}
	}()

	select {
	case r := <-done:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
