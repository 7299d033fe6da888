package checkpointer

import "fmt"

// nStep implements checkpointing every N steps
type nStep struct {
	interval int
	object   Saver // Object to save

	// filename returns the string filename of the file to save the object
	// in.
	//
	// If each object should be saved in a separate file with each file
	// having an incremented number as a suffix (e.g. file1.zip,
	// file2.zip, ..., fileK.zip), then simply use the static function
	// FilenameEnumerator, which will return a function that will
	// enumerate filenames. For example:
	//
	// n := NewNStep(10, object, FilenameEnumerator(0, "filename", ".zip"))
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints every n steps.
func NewNStep(n int, object Saver, filename func() string) (Checkpointer,
	error) {
	if n < 1 {
		return nil, fmt.Errorf("newNStep: interval must be positive "+
			"\n\twant(>0)\n\thave(%v)", n)
	}
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the Checkpointer's tracked object if step is a
// positive multiple of the interval
func (n *nStep) Checkpoint(step int) error {
	if step > 0 && step%n.interval == 0 {
		return n.object.Save(n.filename())
	}
	return nil
}
