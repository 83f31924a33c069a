package dashboard

import "github.com/SungwookYoon/searchdeposit6-web/internal/backend"

// PageSize is the fixed number of records per page.
const PageSize = 50

// windowRadius is how many page numbers are shown on each side of the current page.
const windowRadius = 2

// PageState is the currently loaded page. Records always belong to CurrentPage.
type PageState struct {
	CurrentPage int              `json:"current_page"`
	PageSize    int              `json:"page_size"`
	TotalItems  int              `json:"total_items"`
	TotalPages  int              `json:"total_pages"`
	Records     []backend.Record `json:"records"`
}

// LinkKind identifies an entry of the pagination control.
type LinkKind string

const (
	LinkPrev     LinkKind = "prev"
	LinkPage     LinkKind = "page"
	LinkEllipsis LinkKind = "ellipsis"
	LinkNext     LinkKind = "next"
)

// PageLink is one entry of the pagination control.
type PageLink struct {
	Kind     LinkKind `json:"kind"`
	Page     int      `json:"page,omitempty"`
	Current  bool     `json:"current,omitempty"`
	Disabled bool     `json:"disabled,omitempty"`
}

// PageWindow lays out the pagination control for current out of total pages:
// prev, first page and ellipsis when the window does not reach the start,
// current±2, ellipsis and last page when it does not reach the end, next.
// No control is shown for a single page.
func PageWindow(current, total int) []PageLink {
	if total <= 1 {
		return nil
	}

	start := max(1, current-windowRadius)
	end := min(total, current+windowRadius)

	links := []PageLink{{Kind: LinkPrev, Page: current - 1, Disabled: current <= 1}}

	if start > 1 {
		links = append(links, PageLink{Kind: LinkPage, Page: 1})
		if start > 2 {
			links = append(links, PageLink{Kind: LinkEllipsis})
		}
	}
	for p := start; p <= end; p++ {
		links = append(links, PageLink{Kind: LinkPage, Page: p, Current: p == current})
	}
	if end < total {
		if end < total-1 {
			links = append(links, PageLink{Kind: LinkEllipsis})
		}
		links = append(links, PageLink{Kind: LinkPage, Page: total})
	}

	return append(links, PageLink{Kind: LinkNext, Page: current + 1, Disabled: current >= total})
}

// totalPages prefers the server's page count and derives it from total otherwise.
func totalPages(p *backend.ProjectPage) int {
	if p.TotalPages > 0 || p.Total == 0 {
		return p.TotalPages
	}
	return (p.Total + PageSize - 1) / PageSize
}
