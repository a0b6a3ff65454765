package util

import "testing"

func TestStripHTML(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Bonjour à tous  ", "Bonjour à tous"},
		{"inline tags", "<b>Menu</b> du <i>jour</i>", "Menu du jour"},
		{"entities", "Fish &amp; chips", "Fish & chips"},
		{"line breaks", "Ligne 1<br>Ligne 2", "Ligne 1\nLigne 2"},
		{"paragraphs", "<p>Un</p><p>Deux</p>", "Un\n\nDeux"},
		{"script dropped", "Salut<script>alert(1)</script> !", "Salut !"},
		{"emoji kept", "<p>🍕 Pizza 🍕</p>", "🍕 Pizza 🍕"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripHTML(tc.in); got != tc.want {
				t.Fatalf("StripHTML(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
