package enums

import "slices"

func isKnown[T ~string](valid []T, value T) bool {
	return slices.Contains(valid, value)
}
