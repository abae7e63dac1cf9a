package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meimodev/activid-web-sub001/internal/invitation"
	"github.com/meimodev/activid-web-sub001/internal/photos"
)

// PhotosOptions holds flags for the photos command.
type PhotosOptions struct {
	*RootOptions
	All bool
}

// NewPhotosCommand creates the photos command.
func NewPhotosCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PhotosOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "photos <slug>",
		Short: "Show an invitation's background photos",
		Long: `Show the background photo set every guest of an invitation sees.

The set is drawn from the invitation's photo pool with the invitation slug
as seed, so it is the same on every run. --all lists the whole pool.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhotos(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "list the whole photo pool")
	return cmd
}

func runPhotos(opts *PhotosOptions, slug string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	inv, err := resolveInvitation(cfg, slug, logger)
	if errors.Is(err, invitation.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeInvitation, fmt.Sprintf("invitation %q not found", slug), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), err.Error(), nil)
	}

	lib, err := openPhotos(contextOf(cmd), cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodePhotos, err.Error(), nil)
	}

	var set []photos.Photo
	if opts.All {
		set, err = photos.All(contextOf(cmd), lib, inv)
	} else {
		set, err = photos.Background(contextOf(cmd), lib, inv)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodePhotos, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{"invitation": inv.ID, "photos": set})
	}

	for _, p := range set {
		fmt.Fprintln(formatter.Writer, p.URL)
	}
	formatter.VerboseLog("%d photo(s) for %s", len(set), inv.ID)
	return nil
}
