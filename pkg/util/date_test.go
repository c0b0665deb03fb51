package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDate(t *testing.T) {
	cases := map[string]string{
		"2025-03-21":           "2025-03-21",
		" 2025-03-21 ":         "2025-03-21",
		"2025-03-21T15:30:00Z": "2025-03-21",
	}
	for in, want := range cases {
		got, ok := ParseDate(in)
		if !ok {
			t.Fatalf("%q: expected ok", in)
		}
		if FormatDate(got) != want {
			t.Fatalf("%q: got %s want %s", in, FormatDate(got), want)
		}
	}
	if _, ok := ParseDate("next friday"); ok {
		t.Fatalf("expected failure")
	}
}
