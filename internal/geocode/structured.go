package geocode

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// Query is a location broken into components. Any field may be empty.
type Query struct {
	Full    string
	City    string
	State   string
	Zip     string
	Country string
}

// ParseLocation splits comma-separated free text such as
// "New York, NY, 10001, USA" into components. The third part is a postal
// code when it starts with five digits or is all digits, otherwise a country.
func ParseLocation(text string) Query {
	q := Query{Full: strings.TrimSpace(text)}
	if q.Full == "" {
		return q
	}
	parts := strings.Split(q.Full, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	q.City = parts[0]
	if len(parts) >= 2 {
		q.State = parts[1]
	}
	if len(parts) >= 3 {
		if looksLikeZip(parts[2]) {
			q.Zip = parts[2]
		} else {
			q.Country = parts[2]
		}
	}
	if len(parts) >= 4 {
		q.Country = parts[3]
	}
	return q
}

func looksLikeZip(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for _, r := range s {
		if !unicode.IsDigit(r) {
			break
		}
		digits++
	}
	return digits == len(s) || digits >= 5
}

// GeocodeStructured tries the full text first, then the joined components,
// then the country alone. Upstream failures stop the chain; only misses fall
// through to the next candidate.
func (c *Client) GeocodeStructured(ctx context.Context, q Query) (Place, error) {
	var candidates []string
	if q.Full != "" {
		candidates = append(candidates, q.Full)
	}
	var parts []string
	for _, p := range []string{q.City, q.State, q.Zip, q.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		candidates = append(candidates, strings.Join(parts, ", "))
	}
	if q.Country != "" {
		candidates = append(candidates, q.Country)
	}
	if len(candidates) == 0 {
		return Place{}, ErrInvalidQuery
	}

	var err error
	tried := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		if tried[cand] {
			continue
		}
		tried[cand] = true

		var place Place
		place, err = c.Geocode(ctx, cand)
		if err == nil {
			return place, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Place{}, err
		}
	}
	return Place{}, err
}
