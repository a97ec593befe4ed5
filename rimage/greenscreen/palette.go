package greenscreen

import "go.viam.com/greenscreen/rimage"

// MapDepthToByte maps the 0-8000mm working range of the sensor onto 256 intensity levels.
const MapDepthToByte = 8000 / 256

// bodyPalette holds the B, G, R tint of each tracked body, indexed by label.
var bodyPalette = newBodyPalette()

func newBodyPalette() [rimage.MaxBodies][3]byte {
	var palette [rimage.MaxBodies][3]byte
	for label := range palette {
		palette[label] = [3]byte{
			channel(label == 0 || label == 3 || label == 4),
			channel(label == 1 || label == 3 || label == 5),
			channel(label == 2 || label == 4 || label == 5),
		}
	}
	return palette
}

func channel(on bool) byte {
	if on {
		return 0xff
	}
	return 0
}

// BodyColor returns the B, G, R tint drawn for label. ok is false for labels that are not bodies.
func BodyColor(label uint8) (bgr [3]byte, ok bool) {
	if !rimage.IsBody(label) {
		return [3]byte{}, false
	}
	return bodyPalette[label], true
}

// Intensity is the alpha written for a visible pixel at the given depth. Depths inside
// [minReliable, MaxDepth] fade with distance; unreliable depths are fully opaque. The result is
// truncated to a byte, so depths past 255*MapDepthToByte wrap around.
func Intensity(depth, minReliable rimage.Depth) uint8 {
	scaled := 0
	// MaxDepth is the upper bound of the type, so only the lower bound needs checking.
	if depth >= minReliable {
		scaled = int(depth) / MapDepthToByte
	}
	return uint8(255 - scaled)
}
