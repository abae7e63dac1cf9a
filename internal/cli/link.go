package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meimodev/activid-web-sub001/internal/config"
	"github.com/meimodev/activid-web-sub001/internal/invitation"
	"github.com/meimodev/activid-web-sub001/internal/share"
)

// LinkOptions holds flags for the link command.
type LinkOptions struct {
	*RootOptions
	To      string
	QR      bool
	QRFile  string
	QRSize  int
	SendTo  string
	BaseURL string
}

// LinkOutput is the JSON result of the link command.
type LinkOutput struct {
	Invitation string `json:"invitation"`
	Guest      string `json:"guest,omitempty"`
	Link       string `json:"link"`
	QRFile     string `json:"qrFile,omitempty"`
	SentTo     string `json:"sentTo,omitempty"`
}

// openSender connects the WhatsApp sender. Pairing QR codes go to qrOut.
// Replaced in tests.
var openSender = func(ctx context.Context, cfg *config.Config, logger *slog.Logger, qrOut io.Writer) (share.Sender, func(), error) {
	wa, err := share.NewWhatsApp(ctx, cfg.WhatsApp.DataDir, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := wa.Connect(ctx, qrOut); err != nil {
		wa.Close()
		return nil, nil, err
	}
	return wa, wa.Close, nil
}

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LinkOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "link <slug>",
		Short: "Build a guest's personal invitation link",
		Long: `Build the personal invitation link for a guest.

The guest name travels in the link's ?to= parameter and identifies the
guest when they leave a wish. The link can be printed as a QR code or sent
over WhatsApp from a linked device (pair it on first use by scanning the
QR code printed to stderr).

Examples:
  activid link wed_123 --to "Budi Santoso"
  activid link wed_123 --to "Budi Santoso" --qr
  activid link wed_123 --to "Budi Santoso" --qr-file budi.png --qr-size 512
  activid link wed_123 --to "Budi Santoso" --send 0812-3456-789`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "guest name")
	cmd.Flags().BoolVar(&opts.QR, "qr", false, "print the link as a terminal QR code")
	cmd.Flags().StringVar(&opts.QRFile, "qr-file", "", "write the link as a PNG QR code")
	cmd.Flags().IntVar(&opts.QRSize, "qr-size", share.DefaultQRSize, "PNG QR code size in pixels")
	cmd.Flags().StringVar(&opts.SendTo, "send", "", "send the link over WhatsApp to this phone number")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "public base URL (overrides config)")

	return cmd
}

func runLink(opts *LinkOptions, slug string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := contextOf(cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	if cmd.Flags().Changed("base-url") {
		cfg.HTTP.BaseURL = opts.BaseURL
	}
	if opts.QRSize < 128 || opts.QRSize > 1024 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, "--qr-size must be between 128 and 1024", nil)
	}

	inv, err := resolveInvitation(cfg, slug, logger)
	if errors.Is(err, invitation.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeInvitation, fmt.Sprintf("invitation %q not found", slug), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), err.Error(), nil)
	}

	out := LinkOutput{Invitation: inv.ID, Guest: opts.To}

	if opts.SendTo != "" {
		sender, closeSender, err := openSender(ctx, cfg, logger, cmd.ErrOrStderr())
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLink, err.Error(), nil)
		}
		defer closeSender()

		link, err := share.SendLink(ctx, sender, inv, cfg.HTTP.BaseURL, opts.To, opts.SendTo)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeLink, err.Error(), nil)
		}
		out.Link = link
		out.SentTo, _ = share.NormalizePhone(opts.SendTo)
	} else {
		link, err := share.Link(cfg.HTTP.BaseURL, inv.ID, opts.To)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeLink, err.Error(), nil)
		}
		out.Link = link
	}

	if opts.QRFile != "" {
		png, err := share.QRPNG(out.Link, opts.QRSize)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLink, err.Error(), nil)
		}
		if err := os.WriteFile(opts.QRFile, png, 0644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLink, fmt.Sprintf("write QR code: %v", err), nil)
		}
		out.QRFile = opts.QRFile
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	fmt.Fprintln(formatter.Writer, out.Link)
	if out.SentTo != "" {
		fmt.Fprintf(formatter.Writer, "✓ Sent to +%s\n", out.SentTo)
	}
	if out.QRFile != "" {
		fmt.Fprintf(formatter.Writer, "✓ QR code written to %s\n", out.QRFile)
	}
	if opts.QR {
		qr, err := share.QRTerminal(out.Link)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLink, err.Error(), nil)
		}
		fmt.Fprint(formatter.Writer, qr)
	}
	return nil
}
