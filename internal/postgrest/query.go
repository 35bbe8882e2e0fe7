package postgrest

import (
	"net/url"
	"strconv"
	"strings"
)

// query builds PostgREST query parameters. Values are added raw; url.Values
// does the percent encoding.
type query struct {
	v url.Values
}

func newQuery(columns string) *query {
	q := &query{v: url.Values{}}
	q.v.Set("select", columns)
	return q
}

func newFilter() *query {
	return &query{v: url.Values{}}
}

func (q *query) eq(column, value string) *query {
	q.v.Set(column, "eq."+value)
	return q
}

func (q *query) order(column string, desc bool) *query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.v.Set("order", column+"."+dir)
	return q
}

func (q *query) limit(n int) *query {
	if n > 0 {
		q.v.Set("limit", strconv.Itoa(n))
	}
	return q
}

// ilikeAny matches rows where any of the columns contains term,
// case-insensitively. LIKE wildcards in term match literally.
func (q *query) ilikeAny(term string, columns ...string) *query {
	pattern := quoteValue("*" + likeEscaper.Replace(term) + "*")
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col + ".ilike." + pattern
	}
	q.v.Set("or", "("+strings.Join(parts, ",")+")")
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (q *query) values() url.Values { return q.v }

// quoteValue wraps v in double quotes when it holds characters that are
// reserved inside a logical filter.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, `,.:()"\ `) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v) + 2)
	b.WriteByte('"')
	for _, r := range v {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
