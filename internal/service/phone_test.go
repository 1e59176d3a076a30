package service

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"090-1111-2222", "09011112222"},
		{"090 1111 2222", "09011112222"},
		{"(090) 1111.2222", "09011112222"},
		{"+81 90-1111-2222", "+819011112222"},
		{"09011112222", "09011112222"},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
