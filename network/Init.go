package network

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GlorotU returns a Glorot uniform weight initializer, as described by
// Glorot and Bengio (2010), which draws its weights from a source
// seeded with seed. Networks whose layers are initialized in the same
// order by initializers of equal seed start from identical weights.
func GlorotU(gain float64, seed uint64) G.InitWFn {
	rng := rand.New(rand.NewSource(seed))

	return func(dt tensor.Dtype, s ...int) interface{} {
		limit := glorotLimit(gain, s...)
		values := make([]float64, tensor.Shape(s).TotalSize())
		for i := range values {
			values[i] = limit * (2*rng.Float64() - 1)
		}

		switch dt {
		case tensor.Float64:
			return values
		case tensor.Float32:
			out := make([]float32, len(values))
			for i, v := range values {
				out[i] = float32(v)
			}
			return out
		default:
			panic(fmt.Sprintf("glorotU: unsupported type %v", dt))
		}
	}
}

// glorotLimit returns the bound of the symmetric interval that Glorot
// uniform weights of shape s are drawn from
func glorotLimit(gain float64, s ...int) float64 {
	var fanIn, fanOut int
	field := 1
	switch len(s) {
	case 0:
		panic("glorotU: weights must have at least one dimension")
	case 1:
		fanIn, fanOut = 1, s[0]
	default:
		fanIn, fanOut = s[0], s[1]
		for _, v := range s[2:] {
			field *= v
		}
	}

	return gain * math.Sqrt(6.0/float64((fanIn+fanOut)*field))
}
