package agent

import (
	"archive/zip"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ArtifactVersion is the version of the artifact format written by
// WriteArtifact
const ArtifactVersion = 1

const (
	metadataFile   = "metadata.json"
	parametersFile = "parameters.gob"
)

// ArtifactPath returns the path of the artifact of experiment id in dir
func ArtifactPath(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("dqn_model_exp%d.zip", id))
}

// Metadata describes a trained agent stored in an artifact
type Metadata struct {
	Version   int
	Policy    PolicyType
	Config    Config
	Features  int
	Actions   int
	CreatedAt time.Time
}

// Parameters are the learned weights of an agent, one flattened slice
// per weight tensor
type Parameters [][]float64

// LoadError reports that a stored agent could not be loaded
type LoadError struct {
	Path string
	Err  error
}

// Error satisfies the error interface
func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load agent %v: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError returns whether an error, or any error it wraps, is a
// *LoadError
func IsLoadError(err error) bool {
	var target *LoadError
	return errors.As(err, &target)
}

// WriteArtifact writes a zip archive holding the metadata and
// parameters of an agent to path, overwriting any existing file.
func WriteArtifact(path string, meta Metadata, params Parameters) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("writeArtifact: could not create directory: %w",
				err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writeArtifact: %w", err)
	}

	meta.Version = ArtifactVersion
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	zw := zip.NewWriter(file)
	if err := writeEntries(zw, meta, params); err != nil {
		zw.Close()
		file.Close()
		return fmt.Errorf("writeArtifact: %w", err)
	}
	if err := zw.Close(); err != nil {
		file.Close()
		return fmt.Errorf("writeArtifact: %w", err)
	}
	return file.Close()
}

func writeEntries(zw *zip.Writer, meta Metadata, params Parameters) error {
	w, err := zw.Create(metadataFile)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("could not encode metadata: %w", err)
	}

	w, err = zw.Create(parametersFile)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(w).Encode(params); err != nil {
		return fmt.Errorf("could not encode parameters: %w", err)
	}
	return nil
}

// ReadArtifact reads the metadata and parameters of an agent stored at
// path. All failures are returned as a *LoadError.
func ReadArtifact(path string) (Metadata, Parameters, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Metadata{}, nil, &LoadError{Path: path, Err: err}
	}
	defer zr.Close()

	var meta Metadata
	var params Parameters
	var foundMeta, foundParams bool
	for _, f := range zr.File {
		switch f.Name {
		case metadataFile:
			err = decodeEntry(f, func(r io.Reader) error {
				return json.NewDecoder(r).Decode(&meta)
			})
			foundMeta = true

		case parametersFile:
			err = decodeEntry(f, func(r io.Reader) error {
				return gob.NewDecoder(r).Decode(&params)
			})
			foundParams = true
		}
		if err != nil {
			return Metadata{}, nil, &LoadError{
				Path: path,
				Err:  fmt.Errorf("could not decode %v: %w", f.Name, err),
			}
		}
	}

	if !foundMeta || !foundParams {
		return Metadata{}, nil, &LoadError{
			Path: path,
			Err:  fmt.Errorf("archive must contain %v and %v", metadataFile,
				parametersFile),
		}
	}
	if meta.Version != ArtifactVersion {
		return Metadata{}, nil, &LoadError{
			Path: path,
			Err: fmt.Errorf("unsupported artifact version \n\twant(%v)"+
				"\n\thave(%v)", ArtifactVersion, meta.Version),
		}
	}

	return meta, params, nil
}

func decodeEntry(f *zip.File, decode func(io.Reader) error) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return decode(rc)
}
