// Package hostels holds the fixed vocabulary of valid hostel codes.
// A consultancy can only be registered against one of these codes, and
// spreadsheet imports reject rows whose Hostel_Code is not listed here.
package hostels

import "sort"

// Names maps each valid hostel code to its display name.
var Names = map[string]string{
	"B1": "Boys Hostel 1",
	"B2": "Boys Hostel 2",
	"B3": "Boys Hostel 3",
	"B4": "Boys Hostel 4",
	"B5": "Boys Hostel 5",
	"B6": "Boys Hostel 6",
	"G1": "Girls Hostel 1",
	"G2": "Girls Hostel 2",
	"G3": "Girls Hostel 3",
	"IH": "International Hostel",
}

// IsValid reports whether code belongs to the fixed vocabulary.
func IsValid(code string) bool {
	_, ok := Names[code]
	return ok
}

// Name returns the display name for a code, or "Unknown Hostel" when the
// code is not part of the vocabulary.
func Name(code string) string {
	if name, ok := Names[code]; ok {
		return name
	}
	return "Unknown Hostel"
}

// Codes returns all valid codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(Names))
	for code := range Names {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
