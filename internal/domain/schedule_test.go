package domain

import (
	"reflect"
	"testing"
)

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Monday", "Monday", true},
		{"monday", "Monday", true},
		{"  SUNDAY ", "Sunday", true},
		{"Mon", "", false},
		{"", "", false},
		{"Lundi", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseWeekday(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseWeekday(%q)=(%q,%v), want (%q,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeScheduleDays_CanonicalizesAndDedups(t *testing.T) {
	t.Parallel()

	out, invalid := NormalizeScheduleDays([]string{"wednesday", "Monday", "WEDNESDAY", "someday"})
	if !reflect.DeepEqual(out, []string{"Wednesday", "Monday"}) {
		t.Fatalf("out=%v", out)
	}
	if !reflect.DeepEqual(invalid, []string{"someday"}) {
		t.Fatalf("invalid=%v", invalid)
	}

	out, invalid = NormalizeScheduleDays(nil)
	if len(out) != 0 || invalid != nil {
		t.Fatalf("empty input: out=%v invalid=%v", out, invalid)
	}
}

func TestValidScheduleTime(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"00:00", "08:30", "19:05", "23:59"} {
		if !ValidScheduleTime(s) {
			t.Fatalf("expected %q valid", s)
		}
	}
	for _, s := range []string{"24:00", "8:30", "08:60", "0830", "08:30:00", " 08:30", ""} {
		if ValidScheduleTime(s) {
			t.Fatalf("expected %q invalid", s)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeHumanName("  Jean   Luc  "); got != "Jean Luc" {
		t.Fatalf("got %q", got)
	}
}
