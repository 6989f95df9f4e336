package engine

// roundedPercent returns round(part/whole*100) with halves rounded up, using integer math.
// Callers guarantee whole > 0 and part >= 0.
func roundedPercent(part, whole int) int {
	return (part*200 + whole) / (2 * whole)
}
