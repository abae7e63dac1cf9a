package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/meimodev/activid-web-sub001/internal/invitation"
	"github.com/meimodev/activid-web-sub001/internal/wish"
)

// WishOptions holds flags shared by the wish subcommands.
type WishOptions struct {
	*RootOptions
	To         string
	Message    string
	Attendance string
	Dedupe     bool
}

// WishOutput is the JSON shape of one wish.
type WishOutput struct {
	wish.Wish
	TimeAgo string `json:"timeAgo,omitempty"`
}

// SubmitOutput is the JSON result of wish submit.
type SubmitOutput struct {
	Outcome wish.Outcome `json:"outcome"`
	Wish    WishOutput   `json:"wish"`
}

// NewWishCommand creates the wish command group.
func NewWishCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wish",
		Short: "Submit and inspect guest wishes",
		Long: `Submit and inspect guest wishes in the configured store.

A guest may post one wish per invitation. Submitting again with the same
name (case, spacing and punctuation ignored) returns the first wish.`,
	}

	cmd.AddCommand(newWishSubmitCommand(rootOpts))
	cmd.AddCommand(newWishCheckCommand(rootOpts))
	cmd.AddCommand(newWishListCommand(rootOpts))
	return cmd
}

func newWishSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WishOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "submit <slug>",
		Short:         "Submit a wish as a guest",
		Example:       `  activid wish submit wed_123 --to "Budi Santoso" --message "Selamat!" --attendance hadir`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWishSubmit(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.To, "to", "", "guest name from the personal link")
	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "wish message")
	cmd.Flags().StringVar(&opts.Attendance, "attendance", "", "attendance (hadir|tidak)")
	return cmd
}

func newWishCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WishOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "check <slug>",
		Short:         "Show the wish a guest already posted",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWishCheck(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.To, "to", "", "guest name from the personal link")
	return cmd
}

func newWishListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WishOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "list <slug>",
		Short:         "List an invitation's wishes, most recent first",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWishList(opts, args[0], cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Dedupe, "dedupe", false, "keep only the latest wish per guest name (default: the invitation's setting)")
	return cmd
}

// wishEnv is the state every wish subcommand needs.
type wishEnv struct {
	formatter *OutputFormatter
	inv       *invitation.Invitation
	backend   *backend
	service   *wish.Service
}

// openWishEnv loads config, resolves slug and opens the store. On error the
// failure has already been reported through the formatter.
func openWishEnv(opts *RootOptions, slug string, cmd *cobra.Command) (*wishEnv, error) {
	formatter := newFormatter(opts, cmd)
	logger := newLogger(opts, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	inv, err := resolveInvitation(cfg, slug, logger)
	if errors.Is(err, invitation.ErrNotFound) {
		return nil, formatter.Fail(ExitCommandError, ErrCodeInvitation, fmt.Sprintf("invitation %q not found", slug), nil)
	}
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, loadErrorCode(err), err.Error(), nil)
	}

	b, err := openBackend(contextOf(cmd), cfg, logger)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	formatter.VerboseLog("Using %s store for invitation %s", cfg.Store.Driver, inv.ID)

	return &wishEnv{
		formatter: formatter,
		inv:       inv,
		backend:   b,
		service:   b.service(logger),
	}, nil
}

func runWishSubmit(opts *WishOptions, slug string, cmd *cobra.Command) error {
	env, err := openWishEnv(opts.RootOptions, slug, cmd)
	if err != nil {
		return err
	}
	defer env.backend.Close()

	attendance, err := wish.ParseAttendance(opts.Attendance)
	if err != nil {
		return env.formatter.Fail(ExitFailure, string(wish.ErrCodeInvalidAttendance), err.Error(), nil)
	}

	var res *wish.Result
	if env.inv.Demo {
		res, err = env.service.SubmitAnonymous(contextOf(cmd), wish.Draft{
			InvitationID: env.inv.ID,
			Name:         opts.To,
			Attendance:   attendance,
			Message:      opts.Message,
			NoAttendance: !env.inv.Sections.Wishes.Attendance,
		})
	} else {
		res, err = submitWithSession(contextOf(cmd), env, opts.To, attendance, opts.Message)
	}
	if err != nil {
		return reportWishError(env.formatter, err)
	}

	now := time.Now()
	if env.formatter.Format == "json" {
		return env.formatter.Success(SubmitOutput{Outcome: res.Outcome, Wish: toWishOutput(now, *res.Wish)})
	}

	w := env.formatter.Writer
	switch res.Outcome {
	case wish.OutcomeCreated:
		fmt.Fprintf(w, "✓ Wish saved for %s\n", displayName(res.Wish.Name))
	default:
		fmt.Fprintf(w, "• %s already posted a wish; it was kept unchanged\n", displayName(res.Wish.Name))
	}
	printWish(w, now, *res.Wish)
	return nil
}

// submitWithSession walks the wishes section the way a guest's browser does:
// look up the guest, then compose and submit only when nothing is posted.
func submitWithSession(ctx context.Context, env *wishEnv, guestName string, attendance wish.Attendance, message string) (*wish.Result, error) {
	var sessOpts []wish.SessionOption
	if !env.inv.Sections.Wishes.Attendance {
		sessOpts = append(sessOpts, wish.WithoutAttendance())
	}
	sess := wish.NewSession(env.service, env.inv.ID, guestName, func(snap wish.Snapshot) {
		env.formatter.VerboseLog("Wishes section: %s", snap.State)
	}, sessOpts...)
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		env.formatter.VerboseLog("Lookup failed, submitting anyway: %v", err)
	}

	if sess.Snapshot().State == wish.StateComposing {
		if err := sess.SetAttendance(attendance); err != nil {
			return nil, err
		}
		if err := sess.SetMessage(message); err != nil {
			return nil, err
		}
		if err := sess.Submit(ctx); err != nil {
			return nil, err
		}
	}

	snap := sess.Snapshot()
	switch snap.State {
	case wish.StatePosted:
		return &wish.Result{Outcome: snap.Notice, Wish: snap.Posted}, nil
	case wish.StateUnidentified:
		return nil, &wish.Error{
			Code:         wish.ErrCodeNotPersonalized,
			Message:      "guest name has no letters or digits",
			InvitationID: env.inv.ID,
		}
	default:
		return nil, fmt.Errorf("wishes section ended in %s: %w", snap.State, wish.ErrInvalidState)
	}
}

func runWishCheck(opts *WishOptions, slug string, cmd *cobra.Command) error {
	env, err := openWishEnv(opts.RootOptions, slug, cmd)
	if err != nil {
		return err
	}
	defer env.backend.Close()

	found, err := env.service.Find(contextOf(cmd), env.inv.ID, opts.To)
	if err != nil {
		return reportWishError(env.formatter, err)
	}

	now := time.Now()
	if env.formatter.Format == "json" {
		var out *WishOutput
		if found != nil {
			o := toWishOutput(now, *found)
			out = &o
		}
		return env.formatter.Success(map[string]interface{}{"wish": out})
	}

	if found == nil {
		fmt.Fprintf(env.formatter.Writer, "%s has not posted a wish yet\n", opts.To)
		return nil
	}
	printWish(env.formatter.Writer, now, *found)
	return nil
}

func runWishList(opts *WishOptions, slug string, cmd *cobra.Command) error {
	env, err := openWishEnv(opts.RootOptions, slug, cmd)
	if err != nil {
		return err
	}
	defer env.backend.Close()

	dedupe := env.inv.Sections.Wishes.Dedupe
	if cmd.Flags().Changed("dedupe") {
		dedupe = opts.Dedupe
	}

	feed := wish.NewFeed(env.backend.repo, nil, nil)
	wishes, err := feed.Snapshot(contextOf(cmd), env.inv.ID, dedupe)
	if err != nil {
		return env.formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	now := time.Now()
	if env.formatter.Format == "json" {
		out := make([]WishOutput, len(wishes))
		for i, w := range wishes {
			out[i] = toWishOutput(now, w)
		}
		return env.formatter.Success(map[string]interface{}{"wishes": out, "count": len(out)})
	}

	if len(wishes) == 0 {
		fmt.Fprintln(env.formatter.Writer, "No wishes yet.")
		return nil
	}
	for _, w := range wishes {
		printWish(env.formatter.Writer, now, w)
	}
	fmt.Fprintf(env.formatter.Writer, "\n%d wish(es)\n", len(wishes))
	return nil
}

// reportWishError maps service errors to exit codes: rejected input is a
// failure (1), an unreachable store a command error (2).
func reportWishError(f *OutputFormatter, err error) error {
	code := wish.CodeOf(err)
	switch {
	case code == "":
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	case wish.IsTransient(err):
		return f.Fail(ExitCommandError, string(code), err.Error(), nil)
	default:
		return f.Fail(ExitFailure, string(code), err.Error(), nil)
	}
}

func toWishOutput(now time.Time, w wish.Wish) WishOutput {
	return WishOutput{Wish: w, TimeAgo: wish.TimeAgo(now, w.CreatedAt)}
}

func displayName(name string) string {
	if name == "" {
		return "anonymous guest"
	}
	return name
}

func printWish(w io.Writer, now time.Time, ws wish.Wish) {
	line := displayName(ws.Name)
	if ws.Attendance != wish.AttendanceUnspecified {
		line += fmt.Sprintf(" (%s)", ws.Attendance)
	}
	if ago := wish.TimeAgo(now, ws.CreatedAt); ago != "" {
		line += " · " + ago
	}
	fmt.Fprintln(w, line)
	if ws.Message != "" {
		fmt.Fprintf(w, "  %s\n", ws.Message)
	}
}
