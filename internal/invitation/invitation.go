// Package invitation loads and resolves invitation configurations.
//
// Invitations are authored in CUE, one per slug under the top-level
// "invitation" field:
//
//	package invitations
//
//	invitation: wed_123: {
//		template: "jupiter"
//		couple: bride: name: "Ayu Lestari"
//		couple: groom: name: "Budi Santoso"
//		...
//	}
//
// Every entry is unified with the embedded #Invitation schema (which also
// supplies defaults), decoded into an Invitation and checked with struct
// validation tags.
package invitation

// Templates lists the visual templates an invitation can use.
var Templates = []string{"jupiter", "pluto", "venus", "mars", "saturn", "neptune"}

// Invitation is the fully-populated configuration of one invitation.
type Invitation struct {
	ID       string   `json:"id" validate:"required,slug"`
	Template string   `json:"template" validate:"required,oneof=jupiter pluto venus mars saturn neptune"`
	Title    string   `json:"title,omitempty"`
	Couple   Couple   `json:"couple"`
	Events   []Event  `json:"events" validate:"dive"`
	Story    []Story  `json:"story" validate:"dive"`
	Gifts    []Gift   `json:"gifts" validate:"dive"`
	Photos   Photos   `json:"photos"`
	Sections Sections `json:"sections"`

	// Demo marks synthesized preview invitations. Their wishes are anonymous.
	Demo bool `json:"demo"`
}

// Couple holds both partners.
type Couple struct {
	Bride Person `json:"bride"`
	Groom Person `json:"groom"`
}

// Person is one partner.
type Person struct {
	Name      string `json:"name" validate:"required,max=128"`
	Nickname  string `json:"nickname,omitempty" validate:"max=64"`
	Parents   string `json:"parents,omitempty" validate:"max=256"`
	Instagram string `json:"instagram,omitempty" validate:"max=64"`
}

// Event is one ceremony or reception.
type Event struct {
	Title   string `json:"title" validate:"required"`
	Start   string `json:"start" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Venue   string `json:"venue" validate:"required"`
	Address string `json:"address,omitempty"`
	MapsURL string `json:"mapsUrl,omitempty" validate:"omitempty,url"`
}

// Story is one entry of the couple's story timeline.
type Story struct {
	Date  string `json:"date,omitempty"`
	Title string `json:"title" validate:"required"`
	Body  string `json:"body,omitempty"`
}

// Gift is a bank account for digital envelopes.
type Gift struct {
	Bank    string `json:"bank" validate:"required"`
	Account string `json:"account" validate:"required,numeric"`
	Holder  string `json:"holder" validate:"required"`
}

// Photos configures the photo pool and the background slideshow.
//
// Pool entries are object keys when Bucket is set and absolute URLs
// otherwise. Background is the slideshow size.
type Photos struct {
	Pool       []string `json:"pool" validate:"dive,required"`
	Background int      `json:"background" validate:"gte=0,lte=50"`
	Bucket     string   `json:"bucket,omitempty"`
	Prefix     string   `json:"prefix,omitempty"`
}

// Section is the common configuration of a page section.
type Section struct {
	Enabled bool   `json:"enabled"`
	Heading string `json:"heading,omitempty"`
}

// WishesSection configures the wishes section. The strings are shown to
// guests verbatim.
type WishesSection struct {
	Enabled         bool   `json:"enabled"`
	Heading         string `json:"heading,omitempty"`
	Placeholder     string `json:"placeholder"`
	ThankYou        string `json:"thankYou"`
	AlreadyPosted   string `json:"alreadyPosted"`
	NotPersonalized string `json:"notPersonalized"`
	Failure         string `json:"failure"`
	Attendance      bool   `json:"attendance"`
	Dedupe          bool   `json:"dedupe"`
}

// Sections holds the per-section configuration.
type Sections struct {
	Couple  Section       `json:"couple"`
	Events  Section       `json:"events"`
	Story   Section       `json:"story"`
	Gallery Section       `json:"gallery"`
	Gifts   Section       `json:"gifts"`
	Wishes  WishesSection `json:"wishes"`
}
