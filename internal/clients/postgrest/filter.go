package postgrest

import (
	"fmt"
	"net/url"
	"strings"
)

// Filter composes the query-string operators the data API understands:
// column=eq.value, column=ilike.%term%, column=eq(any).{a,b,c}. Parameters
// stay in the order they were added.
type Filter struct {
	params []string
}

func Where() Filter {
	return Filter{}
}

func (f Filter) add(col, expr string) Filter {
	f.params = append(append([]string(nil), f.params...), url.QueryEscape(col)+"="+url.QueryEscape(expr))
	return f
}

func (f Filter) Eq(col string, v any) Filter {
	return f.add(col, fmt.Sprintf("eq.%v", v))
}

func (f Filter) Ilike(col, term string) Filter {
	return f.add(col, "ilike.%"+term+"%")
}

// In matches any of the listed values.
func (f Filter) In(col string, vals ...string) Filter {
	return f.add(col, "eq(any).{"+strings.Join(vals, ",")+"}")
}

func (f Filter) Is(col, v string) Filter {
	return f.add(col, "is."+v)
}

func (f Filter) Order(col string, descending bool) Filter {
	dir := "asc"
	if descending {
		dir = "desc"
	}
	f.params = append(append([]string(nil), f.params...), "order="+url.QueryEscape(col+"."+dir))
	return f
}

func (f Filter) Limit(n int) Filter {
	f.params = append(append([]string(nil), f.params...), fmt.Sprintf("limit=%d", n))
	return f
}

func (f Filter) Encode() string {
	return strings.Join(f.params, "&")
}

// Path appends the encoded filter to a resource name.
func (f Filter) Path(resource string) string {
	q := f.Encode()
	if q == "" {
		return resource
	}
	return resource + "?" + q
}
