// Package facematch compares face embeddings using cosine distance.
package facematch

import (
	"errors"
	"math"
)

// Threshold is the cosine distance below which two embeddings are considered
// the same face. Tuned for ArcFace-family embeddings; lower is stricter.
const Threshold = 0.50

var (
	// ErrEmptyEmbedding is returned when either vector has no components.
	ErrEmptyEmbedding = errors.New("facematch: empty embedding")
	// ErrDimensionMismatch is returned when the vectors differ in length.
	ErrDimensionMismatch = errors.New("facematch: embedding dimensions do not match")
)

// Compare computes the cosine distance between a stored and a probe embedding
// and decides whether they match. Distance is symmetric and 0 for identical
// vectors. A zero-magnitude vector is treated as invalid face data and yields
// (false, 1.0) rather than a numeric error; structurally malformed input
// yields a typed error so callers can report a verification failure instead
// of a mismatch.
func Compare(stored, probe []float64) (bool, float64, error) {
	if len(stored) == 0 || len(probe) == 0 {
		return false, 0, ErrEmptyEmbedding
	}
	if len(stored) != len(probe) {
		return false, 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range stored {
		dot += stored[i] * probe[i]
		normA += stored[i] * stored[i]
		normB += probe[i] * probe[i]
	}
	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)

	if normA == 0 || normB == 0 {
		return false, 1.0, nil
	}

	distance := 1 - dot/(normA*normB)
	return distance < Threshold, distance, nil
}

// Confidence converts a cosine distance into a bounded confidence score.
// Non-finite distances collapse to zero confidence.
func Confidence(distance float64) float64 {
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return 0
	}
	confidence := 1 - distance
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// RoundScore trims a score to four decimal places for display. Raw distances
// are never exposed to callers with more precision than this.
func RoundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}
