package facedetect

import (
	"sort"

	"facelive-go/internal/models"
)

// TopFaces keeps the maxFaces highest scoring valid faces. A
// non-positive maxFaces keeps them all.
func TopFaces(faces []models.Face, maxFaces int) []models.Face {
	out := faces[:0:0]
	for _, f := range faces {
		if f.Valid() {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if maxFaces > 0 && len(out) > maxFaces {
		out = out[:maxFaces]
	}
	return out
}

// Mirror flips faces horizontally within a frame of the given width
func Mirror(faces []models.Face, width int) []models.Face {
	out := make([]models.Face, len(faces))
	for i, f := range faces {
		out[i] = f.MirrorX(float64(width))
	}
	return out
}
