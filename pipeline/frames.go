package pipeline

import (
	"go.viam.com/greenscreen/rimage"
)

// FrameSet is one acquisition from the sensor: a color, depth and body index frame captured
// together. Release, when set, hands the frames back to their producer and is called exactly
// once by whoever consumes the set.
type FrameSet struct {
	Color     *rimage.ColorFrame
	Depth     *rimage.DepthFrame
	BodyIndex *rimage.BodyIndexFrame
	Release   func()
}

func (fs FrameSet) release() {
	if fs.Release != nil {
		fs.Release()
	}
}
