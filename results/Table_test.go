package results

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
	"github.com/buwituze/formative3-group2-dqn-agent/hyperparams"
)

func row(id int, fraction hyperparams.Optional) Row {
	return Row{
		Params: hyperparams.Set{
			ID:           id,
			LearningRate: 1e-4,
			Gamma:        0.99,
			BatchSize:    32,
			EpsStart:     1,
			EpsEnd:       0.02,
			EpsFraction:  fraction,
			EpsDecay:     hyperparams.None(),
			Policy:       agent.CnnPolicy,
		},
		ComputedFraction:  0.1,
		MeanReward:        20,
		StdReward:         8.16496580927726,
		MinReward:         10,
		MaxReward:         30,
		Rewards:           []float64{10, 20, 30},
		MeanEpisodeLength: 1234.5,
		TotalTimesteps:    200000,
		ModelPath:         filepath.Join("models", "dqn_model_exp1.zip"),
	}
}

func TestRoundTrip(t *testing.T) {
	table := NewTable()
	for _, r := range []Row{row(1, hyperparams.None()),
		row(2, hyperparams.Some(0.25))} {
		if err := table.Append(r); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "out", "results.csv")
	if err := table.WriteCSV(path); err != nil {
		t.Fatal(err)
	}
	read, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}

	opts := cmp.Options{
		cmp.AllowUnexported(hyperparams.Optional{}),
		cmpopts.IgnoreFields(Table{}, "ID"),
	}
	if diff := cmp.Diff(table, read, opts); diff != "" {
		t.Errorf("round trip mismatch (-want +have):\n%v", diff)
	}
}

func TestWriteFormat(t *testing.T) {
	table := NewTable()
	if err := table.Append(row(1, hyperparams.None())); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := table.Write(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: want 2, have %v", len(lines))
	}

	wantHeader := "exp_id,learning_rate,gamma,batch_size," +
		"exploration_initial_eps,exploration_final_eps," +
		"exploration_fraction,eps_decay,policy," +
		"computed_exploration_fraction,avg_reward,reward_std,min_reward," +
		"max_reward,reward_history,mean_episode_length,total_timesteps," +
		"model_path"
	if lines[0] != wantHeader {
		t.Errorf("header:\n\twant(%v)\n\thave(%v)", wantHeader, lines[0])
	}
	if !strings.Contains(lines[1], ",,,CnnPolicy,") {
		t.Errorf("absent optionals should be empty cells: %v", lines[1])
	}
	if !strings.Contains(lines[1], `"[10, 20, 30]"`) {
		t.Errorf("reward history not written as a list: %v", lines[1])
	}
}

func TestAppendDuplicate(t *testing.T) {
	table := NewTable()
	if err := table.Append(row(3, hyperparams.None())); err != nil {
		t.Fatal(err)
	}
	if err := table.Append(row(3, hyperparams.None())); err == nil {
		t.Error("expected error appending a duplicate id")
	}
	if len(table.Rows) != 1 {
		t.Errorf("rows: want 1, have %v", len(table.Rows))
	}
}

func TestHistory(t *testing.T) {
	tests := map[string][]float64{
		"[]":              {},
		"[1.5]":           {1.5},
		"[10, -2, 3e+06]": {10, -2, 3e6},
	}
	for s, want := range tests {
		if got := FormatHistory(want); got != s {
			t.Errorf("format: want %v, have %v", s, got)
		}
		got, err := ParseHistory(s)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("parse %v mismatch (-want +have):\n%v", s, diff)
		}
	}

	for _, bad := range []string{"1, 2", "[a]", ""} {
		if _, err := ParseHistory(bad); err == nil {
			t.Errorf("expected error parsing %q", bad)
		}
	}
}

func TestReadMissingColumn(t *testing.T) {
	in := "exp_id,learning_rate,gamma,batch_size\n1,0.1,0.9,32\n"
	if _, err := Read(strings.NewReader(in)); err == nil {
		t.Error("expected error reading a table without result columns")
	}
}
