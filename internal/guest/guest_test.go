package guest

import (
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var keyPattern = regexp.MustCompile(`^([a-z0-9]+(_[a-z0-9]+)*)?$`)

func TestNameKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Budi Santoso", "budi_santoso"},
		{"extra spaces", "  budi   santoso  ", "budi_santoso"},
		{"mixed separators", "BUDI-SANTOSO", "budi_santoso"},
		{"punctuation runs", "Budi, S.Kom & Keluarga", "budi_s_kom_keluarga"},
		{"leading and trailing punctuation", "--Ani--", "ani"},
		{"digits kept", "Tamu 12", "tamu_12"},
		{"accented letters are separators", "José", "jos"},
		{"only punctuation", "!!!", ""},
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
		{"underscores collapse", "a__b", "a_b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NameKey(tt.in))
		})
	}
}

func TestNameKey_Idempotent(t *testing.T) {
	inputs := []string{
		"Budi Santoso",
		"  Ibu Sri & Bapak Joko  ",
		"ÀÉÎõü",
		"__x__y__",
		"Keluarga Besar (Surabaya)",
		"12 34",
		"李雷",
		"😀 party 😀",
		"",
	}

	for _, in := range inputs {
		once := NameKey(in)
		if !keyPattern.MatchString(once) {
			t.Errorf("NameKey(%q) = %q contains characters outside [a-z0-9_] or stray separators", in, once)
		}
		if twice := NameKey(once); twice != once {
			t.Errorf("NameKey not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestFromQuery(t *testing.T) {
	q, _ := url.ParseQuery("to=Budi+Santoso")
	name, ok := FromQuery(q)
	assert.True(t, ok)
	assert.Equal(t, "Budi Santoso", name)

	q, _ = url.ParseQuery("to=%20%20")
	_, ok = FromQuery(q)
	assert.False(t, ok, "blank parameter is not a guest")

	_, ok = FromQuery(url.Values{})
	assert.False(t, ok, "missing parameter is not a guest")
}

func TestPersonalized(t *testing.T) {
	assert.True(t, Personalized("Budi"))
	assert.False(t, Personalized("..."))
	assert.False(t, Personalized(""))
}
