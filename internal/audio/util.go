package audio

import (
	"math"
	"slices"
)

func bytesToLES16Slice(src []byte, dst []int16) []int16 {
	s16len := len(src) / 2
	dst = slices.Grow(dst, s16len)
	for i := 0; i < s16len; i++ {
		dst = append(dst, int16(src[i*2])|(int16(src[i*2+1])<<8))
	}
	return dst
}

func leS16SliceToBytes(src []int16, dst []byte) []byte {
	s8len := len(src) * 2
	dst = slices.Grow(dst, s8len)
	for i := 0; i < len(src); i++ {
		dst = append(dst, byte(src[i]), byte(src[i]>>8))
	}
	return dst
}

// applyGainDB applies a gain (expressed in dB) to the samples, in place.
// Samples that would overflow are clipped.
func applyGainDB(samples []int16, gainDB float64) {
	if gainDB == 0 {
		return
	}
	mult := math.Pow(10, gainDB/20)
	for i := range samples {
		v := float64(samples[i]) * mult
		switch {
		case v > math.MaxInt16:
			samples[i] = math.MaxInt16
		case v < math.MinInt16:
			samples[i] = math.MinInt16
		default:
			samples[i] = int16(v)
		}
	}
}

// detectSound returns whether at least minCount samples rise above the given
// amplitude level.
func detectSound(samples []int16, level int16, minCount int) bool {
	var count int
	for _, s := range samples {
		if s > level || s < -level {
			count++
			if count >= minCount {
				return true
			}
		}
	}
	return false
}
