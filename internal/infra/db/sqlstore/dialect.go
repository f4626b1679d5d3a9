package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported drivers.
// Queries are written with ? placeholders and rebound per dialect.
type Dialect struct {
	// Name is the goose dialect name.
	Name string
	// Numbered switches ? placeholders to $1, $2, ...
	Numbered bool
}

var (
	MySQL    = Dialect{Name: "mysql"}
	Postgres = Dialect{Name: "postgres", Numbered: true}
)

// Rebind rewrites ? placeholders for numbered dialects.
func (d Dialect) Rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var sb strings.Builder
	sb.Grow(len(q) + 16)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Upsert returns the conflict clause updating cols when key already exists.
func (d Dialect) Upsert(key string, cols ...string) string {
	sets := make([]string, len(cols))
	if d.Numbered {
		for i, c := range cols {
			sets[i] = c + " = EXCLUDED." + c
		}
		return "ON CONFLICT (" + key + ") DO UPDATE SET " + strings.Join(sets, ", ")
	}
	for i, c := range cols {
		sets[i] = c + "=VALUES(" + c + ")"
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}
