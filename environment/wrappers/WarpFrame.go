package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// Luminance weights used to convert RGB frames to grayscale
const (
	redWeight   = 0.299
	greenWeight = 0.587
	blueWeight  = 0.114
)

// FrameShape describes the layout of a flattened frame. Frames are
// stored row major with interleaved channels, so that the value of
// channel c of pixel (row, col) is found at index
// (row*Width+col)*Channels + c.
type FrameShape struct {
	Height   int
	Width    int
	Channels int
}

// Len returns the length of a flattened frame of this shape
func (f FrameShape) Len() int {
	return f.Height * f.Width * f.Channels
}

// WarpFrame converts frames to grayscale, downsamples them to a smaller
// resolution by averaging each block of source pixels, and scales pixel
// intensities from [0, 255] to [0, 1].
type WarpFrame struct {
	env.Environment

	in     FrameShape
	height int
	width  int
}

// NewWarpFrame returns a new WarpFrame environment wrapper producing
// height x width grayscale frames from frames of shape in
func NewWarpFrame(e env.Environment, in FrameShape, height,
	width int) (*WarpFrame, error) {
	if in.Channels != 1 && in.Channels != 3 {
		return nil, fmt.Errorf("newWarpFrame: frames must have 1 or 3 "+
			"channels\n\thave(%v)", in.Channels)
	}
	if height < 1 || width < 1 || height > in.Height || width > in.Width {
		return nil, fmt.Errorf("newWarpFrame: cannot warp frame of size "+
			"%vx%v to %vx%v", in.Height, in.Width, height, width)
	}

	features := env.NumFeatures(e)
	if features != in.Len() {
		return nil, fmt.Errorf("newWarpFrame: invalid frame size "+
			"\n\twant(%v)\n\thave(%v)", in.Len(), features)
	}

	return &WarpFrame{
		Environment: e,
		in:          in,
		height:      height,
		width:       width,
	}, nil
}

// Reset resets the environment to some starting state
func (w *WarpFrame) Reset() (ts.TimeStep, error) {
	step, err := w.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, err
	}

	step.Observation = w.warp(step.Observation)
	return step, nil
}

// Step takes one environmental step given some action
func (w *WarpFrame) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	step, done, err := w.Environment.Step(action)
	if err != nil {
		return ts.TimeStep{}, true, err
	}

	step.Observation = w.warp(step.Observation)
	return step, done, nil
}

// ObservationSpec returns the observation specification of the warped
// frames
func (w *WarpFrame) ObservationSpec() env.Spec {
	return env.NewBoxObservationSpec(w.height*w.width, 0.0, 1.0)
}

// OutShape returns the shape of the frames produced by the wrapper
func (w *WarpFrame) OutShape() FrameShape {
	return FrameShape{Height: w.height, Width: w.width, Channels: 1}
}

// warp converts a single frame
func (w *WarpFrame) warp(frame *mat.VecDense) *mat.VecDense {
	src := frame.RawVector()
	out := make([]float64, w.height*w.width)

	for r := 0; r < w.height; r++ {
		rowStart, rowEnd := blockBounds(r, w.height, w.in.Height)
		for c := 0; c < w.width; c++ {
			colStart, colEnd := blockBounds(c, w.width, w.in.Width)

			sum := 0.0
			for i := rowStart; i < rowEnd; i++ {
				for j := colStart; j < colEnd; j++ {
					sum += w.gray(src, i, j)
				}
			}
			count := float64((rowEnd - rowStart) * (colEnd - colStart))
			out[r*w.width+c] = sum / count / 255.0
		}
	}

	return mat.NewVecDense(len(out), out)
}

// gray returns the grayscale intensity of source pixel (row, col)
func (w *WarpFrame) gray(src blas64.Vector, row, col int) float64 {
	ind := (row*w.in.Width + col) * w.in.Channels
	if w.in.Channels == 1 {
		return src.Data[ind*src.Inc]
	}

	red := src.Data[ind*src.Inc]
	green := src.Data[(ind+1)*src.Inc]
	blue := src.Data[(ind+2)*src.Inc]
	return redWeight*red + greenWeight*green + blueWeight*blue
}

// blockBounds returns the range of source indices [start, end) that
// is averaged into output index i when downsampling n source indices
// to m output indices
func blockBounds(i, m, n int) (int, int) {
	start := i * n / m
	end := (i + 1) * n / m
	if end <= start {
		end = start + 1
	}
	return start, end
}
