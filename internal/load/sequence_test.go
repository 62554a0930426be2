package load

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseStrings(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`["탈렌족은", "미개한"]`, []string{"탈렌족은", "미개한"}},
		{`['민족으로,', '흙으로']`, []string{"민족으로,", "흙으로"}},
		{"", nil},
		{`['a\\b', '줄\n바꿈']`, []string{`a\b`, "줄\n바꿈"}},
		{`["a\\b"]`, []string{`a\b`}},
		{`['it''s']`, []string{"it's"}},
	}

	for _, tc := range cases {
		got, err := ParseStrings(tc.in)
		if err != nil {
			t.Fatalf("ParseStrings(%q): unexpected error: %v", tc.in, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("ParseStrings(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestParseNumbers(t *testing.T) {
	got, err := ParseNumbers("[400, 650.5, 380]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]float64{400, 650.5, 380}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseNumbers("[400, fast]"); err == nil {
		t.Error("expected error for non-numeric element")
	}
	if _, err := ParseNumbers("400"); err == nil {
		t.Error("expected error for scalar input")
	}
}

func TestParseStrings_Rejects(t *testing.T) {
	for _, in := range []string{"탈렌족은", "[['a']]", "['a', 'b'"} {
		if _, err := ParseStrings(in); err == nil {
			t.Errorf("ParseStrings(%q): expected error", in)
		}
	}
}
