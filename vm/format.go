package vm

import (
	"math"
	"strconv"
	"strings"
)

// FormatDouble renders d the way Double.toString does: plain notation
// for magnitudes in [1e-3, 1e7), computerized scientific notation
// otherwise, always with at least one fractional digit.
func FormatDouble(d float64) string {
	return formatJava(d, 64)
}

// FormatFloat renders f the way Float.toString does.
func FormatFloat(f float32) string {
	return formatJava(float64(f), 32)
}

func formatJava(d float64, bits int) string {
	switch {
	case math.IsNaN(d):
		return "NaN"
	case math.IsInf(d, 1):
		return "Infinity"
	case math.IsInf(d, -1):
		return "-Infinity"
	case d == 0:
		if math.Signbit(d) {
			return "-0.0"
		}
		return "0.0"
	}
	abs := math.Abs(d)
	if abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(d, 'f', -1, bits)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(d, 'E', -1, bits)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(e)
}

// d2i converts the way the JVM does: NaN becomes 0 and out-of-range
// values saturate.
func d2i(d float64) int32 {
	switch {
	case math.IsNaN(d):
		return 0
	case d >= math.MaxInt32:
		return math.MaxInt32
	case d <= math.MinInt32:
		return math.MinInt32
	}
	return int32(d)
}
