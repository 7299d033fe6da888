// Package checkpointer implements periodic saving of agents during
// training
package checkpointer

// Saver is an object that can be saved to a file
type Saver interface {
	Save(path string) error
}

// Checkpointer checkpoints/saves objects based on the number of
// environment steps taken
type Checkpointer interface {
	Checkpoint(step int) error
}
