package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
)

// ErrNotOnWhatsApp is returned when the recipient has no WhatsApp account.
var ErrNotOnWhatsApp = errors.New("number is not registered on WhatsApp")

// WhatsApp sends messages from a linked WhatsApp device. The device session
// is kept in a sqlite database under the data directory.
type WhatsApp struct {
	client *whatsmeow.Client
	logger *slog.Logger
}

// NewWhatsApp opens (or creates) the device store in dataDir.
func NewWhatsApp(ctx context.Context, dataDir string, logger *slog.Logger) (*WhatsApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(dataDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("open whatsapp store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get whatsapp device: %w", err)
	}
	return &WhatsApp{
		client: whatsmeow.NewClient(device, nil),
		logger: logger,
	}, nil
}

// Connect connects the client. An unlinked device prints pairing QR codes
// to qrOut until the pairing completes.
func (w *WhatsApp) Connect(ctx context.Context, qrOut io.Writer) error {
	if w.client.Store.ID != nil {
		if err := w.client.Connect(); err != nil {
			return fmt.Errorf("connect whatsapp: %w", err)
		}
		return nil
	}

	qrChan, err := w.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp qr channel: %w", err)
	}
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("connect whatsapp: %w", err)
	}
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			art, err := QRTerminal(evt.Code)
			if err != nil {
				fmt.Fprintf(qrOut, "QR code: %s\n", evt.Code)
				continue
			}
			fmt.Fprintln(qrOut, art)
			fmt.Fprintln(qrOut, "Scan with WhatsApp: Settings > Linked Devices > Link a Device")
		case "success":
			w.logger.Info("whatsapp device linked")
		default:
			w.logger.Debug("whatsapp login event", "event", evt.Event)
		}
	}
	if w.client.Store.ID == nil {
		return errors.New("whatsapp pairing did not complete")
	}
	return nil
}

// Send delivers text to phone, which must already be normalized.
func (w *WhatsApp) Send(ctx context.Context, phone, text string) error {
	resp, err := w.client.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		return fmt.Errorf("check whatsapp number: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("%s: %w", phone, ErrNotOnWhatsApp)
	}

	sent, err := w.client.SendMessage(ctx, resp[0].JID, &waE2E.Message{Conversation: &text})
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	w.logger.Info("whatsapp message sent", "phone", phone, "id", sent.ID)
	return nil
}

// Close disconnects the client.
func (w *WhatsApp) Close() {
	w.client.Disconnect()
}
