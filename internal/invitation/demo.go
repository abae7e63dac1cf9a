package invitation

import (
	"fmt"
	"slices"
	"strings"
)

// Preview slugs. They render a synthesized invitation and can never be
// used by a configured one.
const (
	DemoSlug      = "demo"
	PreviewPrefix = "preview-"
)

// DemoPoolSize is the number of photos in a demo invitation's pool.
const DemoPoolSize = 12

// PreviewTemplate reports whether slug is a preview slug and, if so, which
// template it previews. "demo" previews the first template.
func PreviewTemplate(slug string) (string, bool) {
	if slug == DemoSlug {
		return Templates[0], true
	}
	name := strings.TrimPrefix(slug, PreviewPrefix)
	if slices.Contains(Templates, name) {
		return name, true
	}
	return "", false
}

// Demo synthesizes the preview invitation for a template. Wishes posted to
// it are anonymous.
func Demo(slug, template string) *Invitation {
	pool := make([]string, DemoPoolSize)
	for i := range pool {
		pool[i] = fmt.Sprintf("https://picsum.photos/seed/activid-%s-%02d/1200/800", template, i+1)
	}

	return &Invitation{
		ID:       slug,
		Template: template,
		Title:    "The Wedding of Ayu & Budi",
		Couple: Couple{
			Bride: Person{Name: "Ayu Lestari", Nickname: "Ayu", Parents: "Putri dari Bapak Made & Ibu Komang"},
			Groom: Person{Name: "Budi Santoso", Nickname: "Budi", Parents: "Putra dari Bapak Joko & Ibu Sri"},
		},
		Events: []Event{
			{Title: "Akad Nikah", Start: "2026-12-12T09:00:00+07:00", Venue: "Masjid Agung", Address: "Jl. Merdeka No. 1"},
			{Title: "Resepsi", Start: "2026-12-12T18:00:00+07:00", Venue: "Gedung Serbaguna", Address: "Jl. Merdeka No. 10"},
		},
		Story: []Story{
			{Date: "2019", Title: "Pertama bertemu"},
			{Date: "2025", Title: "Lamaran"},
		},
		Gifts:  []Gift{},
		Photos: Photos{Pool: pool, Background: 5},
		Sections: Sections{
			Couple:  Section{Enabled: true},
			Events:  Section{Enabled: true},
			Story:   Section{Enabled: true},
			Gallery: Section{Enabled: true},
			Gifts:   Section{Enabled: false},
			Wishes: WishesSection{
				Enabled:         true,
				Placeholder:     "Tulis ucapan dan doa untuk kedua mempelai",
				ThankYou:        "Terima kasih atas ucapan dan doanya!",
				AlreadyPosted:   "Anda sudah mengirimkan ucapan sebelumnya.",
				NotPersonalized: "Buka undangan dari tautan pribadi Anda untuk mengirim ucapan.",
				Failure:         "Ucapan gagal terkirim. Silakan coba lagi.",
				Attendance:      true,
			},
		},
		Demo: true,
	}
}
