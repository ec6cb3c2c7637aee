package chrono

import (
	"fmt"
	"strconv"
	"strings"
)

// Date-range fields travel as PostgreSQL daterange literals, e.g.
// ["1975-01-01","1980-12-31"). Historical dates may carry a trailing era
// marker on either bound ("0500-01-01 BC"). Formatting always normalizes to
// an inclusive-exclusive [...) literal with quoted bounds.

const (
	NotationCE  = "CE"
	NotationBCE = "BCE"
)

// Bound is one end of a daterange: an ISO date plus its era.
type Bound struct {
	Date string
	Era  string
}

type DateRange struct {
	Start Bound
	End   Bound
}

// ParseDateRange reads a PostgreSQL range literal. Bracket style and bound
// quoting are accepted in any combination; both are discarded on re-format.
func ParseDateRange(literal string) (DateRange, error) {
	s := strings.TrimSpace(literal)
	if len(s) < 2 {
		return DateRange{}, fmt.Errorf("malformed range literal %q", literal)
	}
	open, close := s[0], s[len(s)-1]
	if (open != '[' && open != '(') || (close != ']' && close != ')') {
		return DateRange{}, fmt.Errorf("malformed range literal %q", literal)
	}
	body := s[1 : len(s)-1]
	parts := splitRangeBody(body)
	if len(parts) != 2 {
		return DateRange{}, fmt.Errorf("range literal %q: want two bounds", literal)
	}
	start, err := parseBound(parts[0])
	if err != nil {
		return DateRange{}, fmt.Errorf("range literal %q: %w", literal, err)
	}
	end, err := parseBound(parts[1])
	if err != nil {
		return DateRange{}, fmt.Errorf("range literal %q: %w", literal, err)
	}
	return DateRange{Start: start, End: end}, nil
}

// splitRangeBody splits on the bound separator comma, honoring quotes.
func splitRangeBody(body string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for _, r := range body {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())
	return parts
}

func parseBound(raw string) (Bound, error) {
	v := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if v == "" {
		return Bound{}, fmt.Errorf("empty bound")
	}
	era := NotationCE
	upper := strings.ToUpper(v)
	for _, marker := range []string{" BCE", " BC"} {
		if strings.HasSuffix(upper, marker) {
			era = NotationBCE
			v = strings.TrimSpace(v[:len(v)-len(marker)])
			break
		}
	}
	if _, _, _, err := splitISODate(v); err != nil {
		return Bound{}, err
	}
	return Bound{Date: v, Era: era}, nil
}

func splitISODate(date string) (year, month, day int, err error) {
	segs := strings.SplitN(date, "-", 3)
	if len(segs) != 3 {
		return 0, 0, 0, fmt.Errorf("bad date %q", date)
	}
	year, err = strconv.Atoi(segs[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad date %q", date)
	}
	month, err = strconv.Atoi(segs[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad date %q", date)
	}
	day, err = strconv.Atoi(segs[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad date %q", date)
	}
	return year, month, day, nil
}

// Literal renders the canonical half-open form.
func (r DateRange) Literal() string {
	return fmt.Sprintf(`[%s,%s)`, r.Start.boundLiteral(), r.End.boundLiteral())
}

func (b Bound) boundLiteral() string {
	v := b.Date
	if b.Era == NotationBCE {
		v += " BC"
	}
	return `"` + v + `"`
}

// FormatDateRange builds the canonical literal from two plain ISO dates.
func FormatDateRange(start, end string) string {
	return DateRange{
		Start: Bound{Date: start, Era: NotationCE},
		End:   Bound{Date: end, Era: NotationCE},
	}.Literal()
}

// Terminus selects which bound of a range a dating question is asking about.
type Terminus string

const (
	TerminusPostQuem Terminus = "TPQ"
	TerminusAnteQuem Terminus = "TAQ"
)

// RangeDate is one bound of a stored range broken out for display.
type RangeDate struct {
	YearInt  int
	YearStr  string
	Notation string
}

// ExtractRangeDate pulls the requested bound out of a range literal. part
// currently selects only "year" granularity; anything else is rejected so a
// future month/day breakout cannot silently truncate.
func ExtractRangeDate(literal string, terminus Terminus, part string) (RangeDate, error) {
	if part != "year" {
		return RangeDate{}, fmt.Errorf("unsupported range part %q", part)
	}
	r, err := ParseDateRange(literal)
	if err != nil {
		return RangeDate{}, err
	}
	var b Bound
	switch terminus {
	case TerminusPostQuem:
		b = r.Start
	case TerminusAnteQuem:
		b = r.End
	default:
		return RangeDate{}, fmt.Errorf("unknown terminus %q", terminus)
	}
	year, _, _, err := splitISODate(b.Date)
	if err != nil {
		return RangeDate{}, err
	}
	return RangeDate{
		YearInt:  year,
		YearStr:  fmt.Sprintf("%d %s", year, b.Era),
		Notation: b.Era,
	}, nil
}
