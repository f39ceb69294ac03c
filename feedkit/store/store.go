// Package store defines data stores: named byte sources a dataset is
// assembled from. A store knows how to open itself as an input stream,
// transparently inflating compressed content.
package store

import (
	"strconv"
	"strings"

	"github.com/Doomsbay/FeedKit/feedkit/streams"
)

// Store is a single element of a dataset. Equality and hashing are defined by
// ID.
type Store interface {
	// OpenRead opens the store's content as an input stream. Compressed
	// stores return an already-inflating stream.
	OpenRead() (streams.Stream, error)
	// ID returns a stable unique identifier, e.g. a resolved pathname or
	// an S3 URI.
	ID() string
	String() string
}

// Predicate filters candidate store identifiers during listing.
type Predicate func(id string) bool

// wildcardMatch implements shell-glob matching where '*' and '?' also match
// path separators, mirroring fnmatch(3) without FNM_PATHNAME.
func wildcardMatch(pattern, name string) bool {
	var px, nx, starPx, starNx int
	starPx = -1
	for nx < len(name) {
		if px < len(pattern) {
			switch pattern[px] {
			case '*':
				starPx, starNx = px, nx
				px++
				continue
			case '?':
				px++
				nx++
				continue
			default:
				if pattern[px] == name[nx] {
					px++
					nx++
					continue
				}
			}
		}
		if starPx >= 0 {
			starNx++
			px, nx = starPx+1, starNx
			continue
		}
		return false
	}
	for px < len(pattern) && pattern[px] == '*' {
		px++
	}
	return px == len(pattern)
}

// natLess orders strings naturally: runs of digits compare numerically, so
// "part-2" sorts before "part-10".
func natLess(a, b string) bool {
	for a != "" && b != "" {
		ad, an := leadingInt(a)
		bd, bn := leadingInt(b)
		if ad != "" && bd != "" {
			av, aerr := strconv.ParseUint(ad, 10, 64)
			bv, berr := strconv.ParseUint(bd, 10, 64)
			if aerr == nil && berr == nil {
				if av != bv {
					return av < bv
				}
				a, b = an, bn
				continue
			}
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return a == "" && b != ""
}

func leadingInt(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

func effectiveCompression(c streams.Compression, pathname string) streams.Compression {
	if c == streams.CompressionInfer {
		return streams.InferCompression(pathname)
	}
	return c
}

func quoteID(kind, id string) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(kind)
	b.WriteString(" id='")
	b.WriteString(id)
	b.WriteString("'>")
	return b.String()
}
