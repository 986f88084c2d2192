package main

import (
	"strings"
	"testing"
)

func TestCountCellGroupsThousands(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{25500, "25,500"},
		{1234567, "1,234,567"},
	}
	for _, tc := range cases {
		if got := countCell(tc.n); got != tc.want {
			t.Errorf("countCell(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestRateCell(t *testing.T) {
	if got := rateCell(0.5); got != "0.500" {
		t.Errorf("rateCell(0.5) = %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]column{col("Title"), numCol("Views")},
		[][]string{
			{"Go in an hour", countCell(25500)},
			{"Short row"},
		})

	for _, want := range []string{"Title", "Views", "Go in an hour", "25,500", "Short row"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil) != "" {
		t.Error("empty column set should render nothing")
	}
}
