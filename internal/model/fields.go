package model

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Field is one named, canonically rendered value that takes part in a content hash.
type Field struct {
	Name  string
	Value string
}

const nullToken = "null"

// Text renders a string leaf. Quoting keeps "null" the text apart from a missing value.
func Text(s string) string { return strconv.Quote(s) }

// OptionalText renders a nullable string leaf.
func OptionalText(s *string) string {
	if s == nil {
		return nullToken
	}
	return Text(*s)
}

// Flag renders a boolean leaf.
func Flag(b bool) string { return strconv.FormatBool(b) }

// Number renders a float with the shortest exact decimal representation,
// so 100 and 100.0 hash the same. NaN and infinities render as +Inf, -Inf, NaN.
func Number(f float64) string {
	if !Finite(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return decimal.NewFromFloat(f).String()
}

// Finite reports whether f is neither NaN nor an infinity.
func Finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// OptionalNumber renders a nullable float leaf.
func OptionalNumber(f *float64) string {
	if f == nil {
		return nullToken
	}
	return Number(*f)
}

// OptionalInt renders a nullable integer leaf.
func OptionalInt(i *int64) string {
	if i == nil {
		return nullToken
	}
	return strconv.FormatInt(*i, 10)
}

// HashFields returns the hex SHA-256 digest of fields sorted by name.
// The input slice is not modified.
func HashFields(fields []Field) string {
	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	for _, f := range sorted {
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Round4 rounds half away from zero to 4 decimal places. NaN and
// infinities are returned unchanged.
func Round4(f float64) float64 {
	if !Finite(f) {
		return f
	}
	v, _ := decimal.NewFromFloat(f).Round(4).Float64()
	return v
}
