package sanitize

import "testing"

func TestLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme <b>BV</b>", "Acme BV"},
		{"  Acme \n\t Holding ", "Acme Holding"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;Acme", "alert(1)Acme"},
		{"Smith &amp; Sons", "Smith & Sons"},
	}
	for _, tc := range tests {
		if got := Line(tc.in); got != tc.want {
			t.Fatalf("Line(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLinePtrNil(t *testing.T) {
	if LinePtr(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}
