package tabular

// DefaultMaxHeaderRows is how many leading rows are considered when looking
// for a header row.
const DefaultMaxHeaderRows = 5

// HeaderLocation is the result of header inference. Row is -1 when no header
// was found.
type HeaderLocation struct {
	Found bool
	Row   int
}

var noHeader = HeaderLocation{Found: false, Row: -1}

// IsHeaderCandidate reports whether row looks like a header given the row
// that follows it (nil if there is none). A header has more than one column,
// no empty cells, no numeric cells, and the same width as the next row.
func IsHeaderCandidate(row, next []Cell) bool {
	if len(row) <= 1 {
		return false
	}
	for _, c := range row {
		if c.IsEmpty() || c.IsNumeric() {
			return false
		}
	}
	return next != nil && len(next) == len(row)
}

// IsPureNumber reports whether s is an integer or a plain decimal: an
// optional sign, digits and at most one decimal point. Exponent notation
// is not considered a pure number.
func IsPureNumber(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}

// FindHeader scans the first maxRows rows and returns the first one that
// satisfies IsHeaderCandidate. The look-ahead row may lie outside the window.
// A non-positive maxRows uses DefaultMaxHeaderRows.
func (s *Source) FindHeader(maxRows int) (HeaderLocation, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxHeaderRows
	}

	sc, err := s.scan()
	if err != nil {
		return noHeader, err
	}
	defer sc.Close()

	cur, err := nextRow(sc)
	if err != nil {
		return noHeader, err
	}
	for i := 0; i < maxRows && cur != nil; i++ {
		next, err := nextRow(sc)
		if err != nil {
			return noHeader, err
		}
		if IsHeaderCandidate(cur, next) {
			return HeaderLocation{Found: true, Row: i}, nil
		}
		cur = next
	}
	return noHeader, nil
}

// HasHeader reports whether FindHeader locates a header row.
func (s *Source) HasHeader(maxRows int) (bool, error) {
	loc, err := s.FindHeader(maxRows)
	return loc.Found, err
}
