// Package tracker implements Trackers, which track data generated by
// the agent-environment interaction in an experiment
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// Tracker keeps track of experiment data
type Tracker interface {
	Track(t ts.TimeStep)
}

// save gob encodes data to the file at filename
func save(filename string, data []float64) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not open save file: %w", err)
	}

	en := gob.NewEncoder(file)
	if err = en.Encode(data); err != nil {
		file.Close()
		return fmt.Errorf("could not encode data: %w", err)
	}
	return file.Close()
}

// LoadData loads and returns the data saved by a Tracker
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open data file: %w", err)
	}
	defer file.Close()

	var data []float64
	if err = gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("could not decode data: %w", err)
	}
	return data, nil
}
