package gallery

import "strings"

// SortDir selects the creation-time sort direction of a paged read.
type SortDir string

// Sort direction constants (typed).
const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// DefaultPageSize is used when a page size is missing or malformed.
const DefaultPageSize = 20

// Matcher is the compiled form of a free-text search query: the query
// is split on whitespace and every term must occur, case-insensitive
// and in any order, somewhere in the concatenation of the searched
// fields. A blank query compiles to a match-all matcher. Malformed
// input never fails; it degrades to literal substring terms.
type Matcher struct {
	terms []string
}

// CompileMatcher tokenizes query into a Matcher.
func CompileMatcher(query string) Matcher {
	var terms []string
	for _, t := range strings.Fields(query) {
		terms = append(terms, strings.ToLower(t))
	}
	return Matcher{terms: terms}
}

// MatchAll reports whether the matcher accepts every entity.
func (m Matcher) MatchAll() bool {
	return len(m.terms) == 0
}

// Terms returns the lowercased query terms. Repository
// implementations that push matching into the store compile these to
// per-term case-insensitive patterns.
func (m Matcher) Terms() []string {
	return m.terms
}

// Match reports whether every term occurs in the concatenation of the
// given searchable fields.
func (m Matcher) Match(fields ...string) bool {
	if len(m.terms) == 0 {
		return true
	}
	haystack := strings.ToLower(strings.Join(fields, " "))
	for _, term := range m.terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// PageParams selects one page of a counted result set.
type PageParams struct {
	Page     int
	PageSize int
	Sort     SortDir
}

// Normalize clamps malformed paging inputs to the defaults instead of
// rejecting them: page 1, size 20, descending creation time.
func (p PageParams) Normalize() PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.Sort != SortAsc && p.Sort != SortDesc {
		p.Sort = SortDesc
	}
	return p
}

// Offset returns the number of documents to skip for this page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ItemQuery is a counted, paged search over items. The matcher runs
// against title + tags.
type ItemQuery struct {
	Matcher Matcher
	Page    PageParams
}

// AuthorQuery is a counted, paged search over authors. The matcher
// runs against names + lastnames + username.
type AuthorQuery struct {
	Matcher Matcher
	Page    PageParams
}

// ItemPage is one page of matching items plus the total match count.
// Pages beyond the total are empty with the count preserved.
type ItemPage struct {
	Docs  []*Item `json:"docs"`
	Total int     `json:"total"`
}

// AuthorPage is one page of matching authors plus the total match count.
type AuthorPage struct {
	Docs  []*Author `json:"docs"`
	Total int       `json:"total"`
}

// ItemSearchFields returns the searchable text of an item.
func ItemSearchFields(i *Item) []string {
	fields := make([]string, 0, len(i.Tags)+1)
	fields = append(fields, i.Title)
	fields = append(fields, i.Tags...)
	return fields
}

// AuthorSearchFields returns the searchable text of an author.
func AuthorSearchFields(a *Author) []string {
	return []string{a.Names, a.Lastnames, a.Username}
}
