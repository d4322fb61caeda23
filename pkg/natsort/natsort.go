// Package natsort orders names the way a human reads embedded numbers:
// "page_2.jpg" sorts before "page_10.jpg". Chapter ordering, page ordering
// and packaging all go through this one comparison so they can never drift
// apart.
package natsort

import "sort"

// Compare returns -1, 0 or 1 comparing a and b segment by segment.
// Contiguous digit runs compare by numeric value, everything else compares
// byte-wise. A name that is a prefix of another sorts first.
func Compare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			ia, na := scanDigits(a, i)
			ib, nb := scanDigits(b, j)
			if c := compareNumeric(a[ia:i+na], b[ib:j+nb]); c != 0 {
				return c
			}
			i += na
			j += nb
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case i < len(a):
		return 1
	case j < len(b):
		return -1
	}
	return 0
}

// Less reports whether a orders before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Sort sorts names in place in natural order.
func Sort(names []string) {
	sort.Slice(names, func(i, j int) bool {
		return Less(names[i], names[j])
	})
}

// SortBy sorts items in place by the natural order of their keys.
func SortBy[T any](items []T, key func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		return Less(key(items[i]), key(items[j]))
	})
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// scanDigits returns the start of the digit run at pos and its length.
func scanDigits(s string, pos int) (start, n int) {
	start = pos
	for pos+n < len(s) && isDigit(s[pos+n]) {
		n++
	}
	return start, n
}

// compareNumeric compares two digit runs by value. Leading zeros are
// stripped so the runs can be compared by length first, then byte-wise,
// which works for numbers of any size.
func compareNumeric(a, b string) int {
	a = trimZeros(a)
	b = trimZeros(b)
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func trimZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
