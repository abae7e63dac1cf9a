// Package share builds personalized invitation links and delivers them to
// guests as QR codes or WhatsApp messages.
package share

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/meimodev/activid-web-sub001/internal/guest"
	"github.com/meimodev/activid-web-sub001/internal/invitation"
)

// ErrNotPersonalized is returned when a link is requested for a name that
// does not identify a guest.
var ErrNotPersonalized = errors.New("guest name has no letters or digits")

// Link returns the personalized link for guestName. An empty guestName
// yields the generic, non-personalized link.
func Link(baseURL, slug, guestName string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u = u.JoinPath(slug)

	guestName = strings.TrimSpace(guestName)
	if guestName == "" {
		return u.String(), nil
	}
	if !guest.Personalized(guestName) {
		return "", ErrNotPersonalized
	}
	u.RawQuery = url.Values{guest.QueryParam: {guestName}}.Encode()
	return u.String(), nil
}

// Message is the invitation text sent with a personalized link.
func Message(inv *invitation.Invitation, guestName, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Kepada Yth. %s,\n\n", guestName)
	fmt.Fprintf(&b, "Tanpa mengurangi rasa hormat, kami mengundang Bapak/Ibu/Saudara/i untuk hadir di acara pernikahan kami:\n\n")
	fmt.Fprintf(&b, "*%s & %s*\n\n", inv.Couple.Bride.Name, inv.Couple.Groom.Name)
	for _, ev := range inv.Events {
		fmt.Fprintf(&b, "%s: %s, %s\n", ev.Title, ev.Start, ev.Venue)
	}
	if len(inv.Events) > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Info lengkap dan ucapan:\n%s\n\nTerima kasih.", link)
	return b.String()
}

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// SendLink builds the personalized link for guestName and sends it with the
// invitation message. It returns the link that was sent.
func SendLink(ctx context.Context, s Sender, inv *invitation.Invitation, baseURL, guestName, phone string) (string, error) {
	if !guest.Personalized(guestName) {
		return "", ErrNotPersonalized
	}
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}
	link, err := Link(baseURL, inv.ID, guestName)
	if err != nil {
		return "", err
	}
	if err := s.Send(ctx, normalized, Message(inv, strings.TrimSpace(guestName), link)); err != nil {
		return "", fmt.Errorf("send link to %s: %w", normalized, err)
	}
	return link, nil
}
