package dashboard

import (
	"strconv"
	"strings"
	"testing"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
)

// render draws a window as text: "<" prev, ">" next, "[n]" current, "x" disabled.
func render(links []PageLink) string {
	var parts []string
	for _, l := range links {
		var s string
		switch l.Kind {
		case LinkPrev:
			s = "<"
		case LinkNext:
			s = ">"
		case LinkEllipsis:
			s = "..."
		case LinkPage:
			s = strconv.Itoa(l.Page)
			if l.Current {
				s = "[" + s + "]"
			}
		}
		if l.Disabled {
			s += "x"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func TestPageWindow(t *testing.T) {
	tests := []struct {
		current, total int
		want           string
	}{
		{1, 0, ""},
		{1, 1, ""},
		{1, 3, "<x [1] 2 3 >"},
		{3, 3, "< 1 2 [3] >x"},
		{1, 10, "<x [1] 2 3 ... 10 >"},
		{4, 10, "< 1 2 3 [4] 5 6 ... 10 >"},
		{5, 10, "< 1 ... 3 4 [5] 6 7 ... 10 >"},
		{8, 10, "< 1 ... 6 7 [8] 9 10 >"},
		{10, 10, "< 1 ... 8 9 [10] >x"},
		{12, 10, "< 1 ... 10 >x"},
	}

	for _, tt := range tests {
		got := render(PageWindow(tt.current, tt.total))
		if got != tt.want {
			t.Errorf("PageWindow(%d, %d) = %q, want %q", tt.current, tt.total, got, tt.want)
		}
	}
}

func TestPageWindowLinksTarget(t *testing.T) {
	links := PageWindow(2, 3)
	if links[0].Page != 1 || links[len(links)-1].Page != 3 {
		t.Errorf("prev/next should target 1 and 3, got %d and %d", links[0].Page, links[len(links)-1].Page)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		page backend.ProjectPage
		want int
	}{
		{backend.ProjectPage{Total: 120, TotalPages: 3}, 3},
		{backend.ProjectPage{Total: 120}, 3},
		{backend.ProjectPage{Total: 50}, 1},
		{backend.ProjectPage{}, 0},
	}
	for _, tt := range tests {
		if got := totalPages(&tt.page); got != tt.want {
			t.Errorf("totalPages(%+v) = %d, want %d", tt.page, got, tt.want)
		}
	}
}
