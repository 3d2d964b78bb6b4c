// Package lut maps between linear travel positions (proportional to motor
// time) and the perceived opening level of a roller cover.
package lut

// Invalid is returned for inputs outside of the mapped domain.
const Invalid = -1

const (
	Closed = 0
	Open   = 100
)

// index is a linear travel position, value is the opening level at that position.
// Slats overlap near the closed end, so the first few percent of travel open nothing.
var table = [Open + 1]int{
	0, 0, 0, 0, 0, 0, 0, 1, 1, 1,
	1, 2, 2, 2, 2, 3, 3, 4, 4, 4,
	5, 5, 6, 6, 7, 8, 8, 9, 9, 10,
	11, 12, 13, 13, 14, 15, 16, 17, 17, 18,
	19, 20, 21, 22, 23, 24, 25, 26, 27, 28,
	29, 30, 32, 33, 34, 35, 36, 38, 39, 40,
	41, 43, 44, 45, 46, 48, 49, 51, 52, 53,
	55, 56, 58, 59, 60, 62, 63, 65, 66, 67,
	69, 71, 72, 73, 75, 77, 78, 80, 81, 83,
	84, 86, 87, 89, 90, 92, 94, 95, 97, 98,
	100,
}

// ToOpeningLevel returns the opening level for a linear position in [0,100].
func ToOpeningLevel(position int) int {
	if position < Closed || position > Open {
		return Invalid
	}
	return table[position]
}

// ToLinearPosition returns the smallest linear position whose opening level
// is at least level. It is a right inverse of ToOpeningLevel only: the table
// has plateaus, so ToOpeningLevel(ToLinearPosition(x)) may exceed x.
func ToLinearPosition(level int) int {
	switch {
	case level < 0:
		return Invalid
	case level == 0:
		return Closed
	case level >= Open:
		return Open
	}

	for position, l := range table {
		if l >= level {
			return position
		}
	}

	return Invalid
}
