// Package results implements the table of experiment results produced
// by a sweep, and its CSV representation.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/buwituze/formative3-group2-dqn-agent/hyperparams"
)

// Result columns, written after the hyperparameter columns
const (
	ColFraction   = "computed_exploration_fraction"
	ColAvgReward  = "avg_reward"
	ColStdReward  = "reward_std"
	ColMinReward  = "min_reward"
	ColMaxReward  = "max_reward"
	ColHistory    = "reward_history"
	ColMeanLength = "mean_episode_length"
	ColTimesteps  = "total_timesteps"
	ColModelPath  = "model_path"
)

var resultColumns = []string{ColFraction, ColAvgReward, ColStdReward,
	ColMinReward, ColMaxReward, ColHistory, ColMeanLength, ColTimesteps,
	ColModelPath}

// Columns returns the columns of a results file in order
func Columns() []string {
	cols := append([]string(nil), hyperparams.Columns...)
	return append(cols, resultColumns...)
}

// Row is the result of a single successful experiment
type Row struct {
	Params            hyperparams.Set
	ComputedFraction  float64
	MeanReward        float64
	StdReward         float64
	MinReward         float64
	MaxReward         float64
	Rewards           []float64
	MeanEpisodeLength float64
	TotalTimesteps    int
	ModelPath         string
}

// Record returns the CSV cells of a Row in the order of Columns()
func (r Row) Record() []string {
	record := r.Params.Record()
	return append(record,
		formatFloat(r.ComputedFraction),
		formatFloat(r.MeanReward),
		formatFloat(r.StdReward),
		formatFloat(r.MinReward),
		formatFloat(r.MaxReward),
		FormatHistory(r.Rewards),
		formatFloat(r.MeanEpisodeLength),
		strconv.Itoa(r.TotalTimesteps),
		r.ModelPath,
	)
}

// Table is the ordered collection of results of a sweep. Rows are never
// modified once appended.
type Table struct {
	// ID uniquely identifies the sweep which produced the table
	ID       string
	Rows     []Row
	Failures []error
}

// NewTable returns an empty table with a new sweep ID
func NewTable() *Table {
	return &Table{ID: uuid.NewString()}
}

// Append adds a row to the table. Experiment ids may appear only once.
func (t *Table) Append(r Row) error {
	for _, row := range t.Rows {
		if row.Params.ID == r.Params.ID {
			return fmt.Errorf("append: experiment %d already has a result",
				r.Params.ID)
		}
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// Write writes the table as CSV to w
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns()); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes the table to the CSV file at path, replacing any
// existing file
func (t *Table) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("writeCSV: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writeCSV: %w", err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("writeCSV: %w", err)
	}
	return f.Close()
}

// ReadCSV reads a table written by WriteCSV
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("readCSV: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("readCSV: %v: %w", path, err)
	}
	return t, nil
}

// Read reads a CSV table from r. The returned table has no sweep ID.
func Read(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read: missing header")
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, c := range resultColumns {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("read: missing column %q", c)
		}
	}

	t := &Table{}
	for line, record := range records[1:] {
		row, err := parseRow(header, record, index)
		if err != nil {
			return nil, fmt.Errorf("read: line %d: %w", line+2, err)
		}
		if err := t.Append(row); err != nil {
			return nil, fmt.Errorf("read: line %d: %w", line+2, err)
		}
	}
	return t, nil
}

func parseRow(header, record []string, index map[string]int) (Row, error) {
	params, err := hyperparams.FromRecord(header, record)
	if err != nil {
		return Row{}, err
	}

	row := Row{Params: params, ModelPath: record[index[ColModelPath]]}
	floats := []struct {
		col string
		dst *float64
	}{
		{ColFraction, &row.ComputedFraction},
		{ColAvgReward, &row.MeanReward},
		{ColStdReward, &row.StdReward},
		{ColMinReward, &row.MinReward},
		{ColMaxReward, &row.MaxReward},
		{ColMeanLength, &row.MeanEpisodeLength},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[index[f.col]]),
			64)
		if err != nil {
			return Row{}, fmt.Errorf("column %v: %w", f.col, err)
		}
		*f.dst = v
	}

	row.TotalTimesteps, err = strconv.Atoi(strings.TrimSpace(
		record[index[ColTimesteps]]))
	if err != nil {
		return Row{}, fmt.Errorf("column %v: %w", ColTimesteps, err)
	}

	row.Rewards, err = ParseHistory(record[index[ColHistory]])
	if err != nil {
		return Row{}, fmt.Errorf("column %v: %w", ColHistory, err)
	}
	return row, nil
}

// FormatHistory formats per-episode rewards as [r1, r2, ...]
func FormatHistory(rewards []float64) string {
	cells := make([]string, len(rewards))
	for i, r := range rewards {
		cells[i] = formatFloat(r)
	}
	return "[" + strings.Join(cells, ", ") + "]"
}

// ParseHistory parses rewards formatted by FormatHistory
func ParseHistory(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("parseHistory: %q is not a list", s)
	}
	s = strings.TrimSpace(s[1 : len(s)-1])
	if s == "" {
		return []float64{}, nil
	}

	cells := strings.Split(s, ",")
	rewards := make([]float64, len(cells))
	for i, c := range cells {
		r, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return nil, fmt.Errorf("parseHistory: %w", err)
		}
		rewards[i] = r
	}
	return rewards, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
