package hyperparams

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
)

// Canonical column names of a sweep file
const (
	ColID          = "exp_id"
	ColLR          = "learning_rate"
	ColGamma       = "gamma"
	ColBatch       = "batch_size"
	ColEpsStart    = "exploration_initial_eps"
	ColEpsEnd      = "exploration_final_eps"
	ColEpsFraction = "exploration_fraction"
	ColEpsDecay    = "eps_decay"
	ColPolicy      = "policy"
)

// Columns lists the canonical columns in the order they are written
var Columns = []string{ColID, ColLR, ColGamma, ColBatch, ColEpsStart,
	ColEpsEnd, ColEpsFraction, ColEpsDecay, ColPolicy}

// aliases maps alternative column names onto canonical column names
var aliases = map[string]string{
	"id":                ColID,
	"exp":               ColID,
	"lr":                ColLR,
	"batch":             ColBatch,
	"eps_start":         ColEpsStart,
	"eps_end":           ColEpsEnd,
	"eps_fraction":      ColEpsFraction,
	"exploration_decay": ColEpsDecay,
	"policy_name":       ColPolicy,
}

// required columns must be present in every sweep file
var required = []string{ColID, ColLR, ColGamma, ColBatch}

// canonical returns the canonical name of a column header
func canonical(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	if c, ok := aliases[h]; ok {
		return c
	}
	return h
}

// LoadCSV reads the hyperparameter sets of a sweep from the CSV file at
// path
func LoadCSV(path string) ([]Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loadCSV: %w", err)
	}
	defer f.Close()

	sets, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("loadCSV: %v: %w", path, err)
	}
	return sets, nil
}

// ParseCSV reads hyperparameter sets from a CSV stream with a header
// row. Column names are matched case insensitively and common aliases
// are accepted. Every returned Set has been validated and IDs are
// unique.
func ParseCSV(r io.Reader) ([]Set, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parseCSV: missing header")
	} else if err != nil {
		return nil, fmt.Errorf("parseCSV: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := canonical(h)
		if _, ok := index[name]; ok {
			return nil, fmt.Errorf("parseCSV: duplicate column %q", name)
		}
		index[name] = i
	}
	for _, c := range required {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("parseCSV: missing required column %q", c)
		}
	}

	var sets []Set
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("parseCSV: %w", err)
		}

		s, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("parseCSV: line %d: %w", line, err)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("parseCSV: line %d: %w", line, err)
		}
		sets = append(sets, s)
	}

	if err := CheckUnique(sets); err != nil {
		return nil, fmt.Errorf("parseCSV: %w", err)
	}
	return sets, nil
}

func parseRecord(record []string, index map[string]int) (Set, error) {
	cell := func(col string) (string, bool) {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	var s Set
	var err error

	id, _ := cell(ColID)
	if s.ID, err = parseInt(id); err != nil {
		return Set{}, fmt.Errorf("invalid %v: %w", ColID, err)
	}

	lr, _ := cell(ColLR)
	if s.LearningRate, err = strconv.ParseFloat(lr, 64); err != nil {
		return Set{}, fmt.Errorf("invalid %v: %w", ColLR, err)
	}

	gamma, _ := cell(ColGamma)
	if s.Gamma, err = strconv.ParseFloat(gamma, 64); err != nil {
		return Set{}, fmt.Errorf("invalid %v: %w", ColGamma, err)
	}

	batch, _ := cell(ColBatch)
	if s.BatchSize, err = parseInt(batch); err != nil {
		return Set{}, fmt.Errorf("invalid %v: %w", ColBatch, err)
	}

	s.EpsStart = DefaultEpsStart
	if v, ok := cell(ColEpsStart); ok && !absentTokens[strings.ToLower(v)] {
		if s.EpsStart, err = strconv.ParseFloat(v, 64); err != nil {
			return Set{}, fmt.Errorf("invalid %v: %w", ColEpsStart, err)
		}
	}

	s.EpsEnd = DefaultEpsEnd
	if v, ok := cell(ColEpsEnd); ok && !absentTokens[strings.ToLower(v)] {
		if s.EpsEnd, err = strconv.ParseFloat(v, 64); err != nil {
			return Set{}, fmt.Errorf("invalid %v: %w", ColEpsEnd, err)
		}
	}

	if v, ok := cell(ColEpsFraction); ok {
		if s.EpsFraction, err = ParseOptional(v); err != nil {
			return Set{}, fmt.Errorf("invalid %v: %w", ColEpsFraction, err)
		}
	}

	if v, ok := cell(ColEpsDecay); ok {
		if s.EpsDecay, err = ParseOptional(v); err != nil {
			return Set{}, fmt.Errorf("invalid %v: %w", ColEpsDecay, err)
		}
	}

	s.Policy = DefaultPolicy
	if v, ok := cell(ColPolicy); ok && v != "" {
		if s.Policy, err = agent.ParsePolicyType(v); err != nil {
			return Set{}, err
		}
	}

	return s, nil
}

// parseInt parses an integer which may have been written as a float,
// such as 32.0
func parseInt(s string) (int, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%v is not an integer", s)
	}
	return int(f), nil
}

// Record returns the canonical CSV cells of a Set, in the order of
// Columns
func (s Set) Record() []string {
	return []string{
		strconv.Itoa(s.ID),
		strconv.FormatFloat(s.LearningRate, 'g', -1, 64),
		strconv.FormatFloat(s.Gamma, 'g', -1, 64),
		strconv.Itoa(s.BatchSize),
		strconv.FormatFloat(s.EpsStart, 'g', -1, 64),
		strconv.FormatFloat(s.EpsEnd, 'g', -1, 64),
		s.EpsFraction.String(),
		s.EpsDecay.String(),
		string(s.Policy),
	}
}

// FromRecord parses a single record given the header of the file it was
// read from. The Set is not validated.
func FromRecord(header, record []string) (Set, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[canonical(h)] = i
	}
	for _, c := range required {
		if _, ok := index[c]; !ok {
			return Set{}, fmt.Errorf("fromRecord: missing required column %q",
				c)
		}
	}
	return parseRecord(record, index)
}
