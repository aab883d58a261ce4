package util

import (
	"reflect"
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

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2025-03-09")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Month() != time.March || got.Day() != 9 {
		t.Fatalf("unexpected date %v", got)
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

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a, ,b ,c")
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected split %v", got)
	}
	if ParseIntDefault("x", 7) != 7 || ParseIntDefault("3", 7) != 3 {
		t.Fatalf("ParseIntDefault mismatch")
	}
}
