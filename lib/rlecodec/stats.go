package rlecodec

import (
	"encoding/json"
	"fmt"
	"math"
)

const Algorithm = "rle-ascii"

// CompressionInfo keeps values unrounded; rounding happens on output.
type CompressionInfo struct {
	Algorithm      string
	OriginalSize   int
	CompressedSize int
	Ratio          float64
	SavingsPercent float64
}

// Stats compares UTF-8 byte sizes of original and compressed text.
func Stats(original, compressed string) CompressionInfo {
	ci := CompressionInfo{
		Algorithm:      Algorithm,
		OriginalSize:   len(original),
		CompressedSize: len(compressed),
		Ratio:          1.0,
	}
	if ci.CompressedSize != 0 {
		ci.Ratio = float64(ci.OriginalSize) / float64(ci.CompressedSize)
	}
	if ci.OriginalSize != 0 {
		ci.SavingsPercent = float64(ci.OriginalSize-ci.CompressedSize) /
			float64(ci.OriginalSize) * 100
	}
	return ci
}

func round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}

// RoundedRatio is ratio with 2 decimal places.
func (ci CompressionInfo) RoundedRatio() float64 {
	return round(ci.Ratio, 2)
}

// RoundedSavings is savings percentage with 1 decimal place.
func (ci CompressionInfo) RoundedSavings() float64 {
	return round(ci.SavingsPercent, 1)
}

func (ci CompressionInfo) String() string {
	return fmt.Sprintf("%s: %d -> %d bytes, ratio %.2f, saved %.1f%%",
		ci.Algorithm, ci.OriginalSize, ci.CompressedSize,
		ci.RoundedRatio(), ci.RoundedSavings())
}

type jsonCompressionInfo struct {
	Algorithm      string  `json:"algorithm"`
	OriginalSize   int     `json:"original_size"`
	CompressedSize int     `json:"compressed_size"`
	Ratio          float64 `json:"ratio"`
	SavingsPercent float64 `json:"savings_percent"`
}

func (ci CompressionInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonCompressionInfo{
		Algorithm:      ci.Algorithm,
		OriginalSize:   ci.OriginalSize,
		CompressedSize: ci.CompressedSize,
		Ratio:          ci.RoundedRatio(),
		SavingsPercent: ci.RoundedSavings(),
	})
}

func (ci *CompressionInfo) UnmarshalJSON(b []byte) error {
	var j jsonCompressionInfo
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*ci = CompressionInfo(j)
	return nil
}
