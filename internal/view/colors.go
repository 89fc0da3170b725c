package view

import "unicode/utf16"

// Color names one of the fixed visual buckets a category can map to.
type Color struct {
	Name   string `json:"name"`
	Bucket int    `json:"bucket"`
}

// palette order is fixed; changing it would reshuffle every user's colors.
var palette = []Color{
	{Name: "blue", Bucket: 0},
	{Name: "green", Bucket: 1},
	{Name: "purple", Bucket: 2},
	{Name: "orange", Bucket: 3},
	{Name: "pink", Bucket: 4},
	{Name: "indigo", Bucket: 5},
	{Name: "teal", Bucket: 6},
	{Name: "red", Bucket: 7},
	{Name: "yellow", Bucket: 8},
	{Name: "cyan", Bucket: 9},
	{Name: "emerald", Bucket: 10},
	{Name: "violet", Bucket: 11},
}

// Neutral is the distinguished bucket for items without a category. It sits
// outside the hashed palette.
var Neutral = Color{Name: "gray", Bucket: -1}

// ColorFor deterministically maps a category label to a palette bucket.
// The hash folds UTF-16 code units with a multiplier of 31 in 32-bit signed
// arithmetic so bucket assignment stays identical to the web client's.
// Distinct labels may share a bucket; this is a display aid, not an identity.
func ColorFor(category string) Color {
	if category == "" {
		return Neutral
	}

	var hash int32
	for _, unit := range utf16.Encode([]rune(category)) {
		hash = hash*31 + int32(unit)
	}
	// abs in 64 bits: -abs(MinInt32) would overflow back to MinInt32.
	idx := int64(hash)
	if idx < 0 {
		idx = -idx
	}
	return palette[idx%int64(len(palette))]
}
