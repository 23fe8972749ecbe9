package blindkey

import "testing"

func TestParseKey(t *testing.T) {
	cases := []struct {
		in   string
		want Chord
	}{
		{"enter", tap(KeyEnter)},
		{"Return", tap(KeyEnter)},
		{"down", tap(KeyDown)},
		{"f2", tap(KeyF2)},
		{"F12", tap(KeyF12)},
		{"a", tap(KeyA)},
		{"D", Chord{Mods: ModShift, Key: KeyA + 3}},
		{"0", tap(Key0)},
	}
	for _, tc := range cases {
		got, err := ParseKey(tc.in)
		if err != nil {
			t.Errorf("ParseKey(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseKey(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "f13", "f0", "f1x", "hyper", "é"} {
		if _, err := ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q) should fail", bad)
		}
	}
}

func TestParseChord(t *testing.T) {
	c, err := ParseChord("d", []string{"alt"})
	if err != nil {
		t.Fatalf("ParseChord failed: %v", err)
	}
	if c.String() != "alt+d" {
		t.Errorf("String() = %q, want alt+d", c.String())
	}

	c, err = ParseChord("r", []string{"win"})
	if err != nil {
		t.Fatalf("ParseChord failed: %v", err)
	}
	if c.Mods != ModGUI {
		t.Errorf("win should map to the GUI modifier, got %v", c.Mods)
	}

	if _, err := ParseChord("d", []string{"meta"}); err == nil {
		t.Error("expected error for unknown modifier")
	}
}

func TestChordString(t *testing.T) {
	cases := []struct {
		c    Chord
		want string
	}{
		{tap(KeyF12), "f12"},
		{tap(KeyDown), "down"},
		{tap(KeyEnter), "enter"},
		{tap(KeyEscape), "esc"},
		{tap(Key1 + 4), "5"},
		{Chord{Mods: ModCtrl | ModAlt, Key: KeyDelete}, "ctrl+alt+delete"},
		{tap(0x64), "0x64"},
	}
	for _, tc := range cases {
		if got := tc.c.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestCharChord(t *testing.T) {
	cases := []struct {
		ch   byte
		want Chord
	}{
		{'a', tap(KeyA)},
		{'Z', Chord{Mods: ModShift, Key: KeyA + 25}},
		{'1', tap(Key1)},
		{'!', Chord{Mods: ModShift, Key: Key1}},
		{')', Chord{Mods: ModShift, Key: Key0}},
		{'-', tap(0x2D)},
		{'_', Chord{Mods: ModShift, Key: 0x2D}},
		{'?', Chord{Mods: ModShift, Key: 0x38}},
		{' ', tap(KeySpace)},
	}
	for _, tc := range cases {
		got, ok := charChord(tc.ch)
		if !ok || got != tc.want {
			t.Errorf("charChord(%q) = %v, %v; want %v", tc.ch, got, ok, tc.want)
		}
	}
	if _, ok := charChord(0x7F); ok {
		t.Error("DEL should have no chord")
	}
}
