package gridworld

import (
	"fmt"

	"github.com/buwituze/formative3-group2-dqn-agent/environment"
)

// NewSingleStart returns a Starter which always starts the agent at
// column x and row y of a gridworld with r rows and c columns
func NewSingleStart(x, y, r, c int) (environment.Starter, error) {
	if x < 0 || x >= c {
		return nil, fmt.Errorf("newSingleStart: x = %d out of bounds for "+
			"%d columns", x, c)
	} else if y < 0 || y >= r {
		return nil, fmt.Errorf("newSingleStart: y = %d out of bounds for "+
			"%d rows", y, r)
	}

	return environment.NewFixedStarter([]float64{float64(x), float64(y)}),
		nil
}

// NewRandomStart returns a Starter which starts the agent at a uniformly
// random cell of a gridworld with r rows and c columns
func NewRandomStart(r, c int, seed uint64) environment.Starter {
	return environment.NewCategoricalStarter([]int{c, r}, seed)
}
