package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
)

func TestLoadAgentConfig(t *testing.T) {
	c, err := loadAgentConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if c.BufferSize != agent.DefaultConfig().BufferSize {
		t.Error("want default configuration without a file")
	}

	path := filepath.Join(t.TempDir(), "agent.json")
	data := `{"BufferSize": 5000, "HiddenSizes": [64, 64]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = loadAgentConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.BufferSize != 5000 || len(c.HiddenSizes) != 2 {
		t.Errorf("file not applied: %+v", c)
	}
	if c.Gamma != agent.DefaultConfig().Gamma {
		t.Error("unset fields should keep their defaults")
	}

	if _, err := loadAgentConfig(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("DQN_TEST_INT", "12")
	t.Setenv("DQN_TEST_BAD", "twelve")
	t.Setenv("DQN_TEST_DELAY", "50ms")

	if v := envInt("DQN_TEST_INT", 3); v != 12 {
		t.Errorf("want 12, have %v", v)
	}
	if v := envInt("DQN_TEST_BAD", 3); v != 3 {
		t.Errorf("want default for malformed value, have %v", v)
	}
	if v := envInt("DQN_TEST_UNSET", 3); v != 3 {
		t.Errorf("want default for unset value, have %v", v)
	}
	if v := envDuration("DQN_TEST_DELAY", time.Second); v != 50*time.Millisecond {
		t.Errorf("want 50ms, have %v", v)
	}
	if v := envString("DQN_TEST_UNSET", "x"); v != "x" {
		t.Errorf("want x, have %v", v)
	}
}

func TestRunPlayMissingModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dqn_model_exp9.zip")
	err := runPlay(playFlags{model: path, episodes: 1, noRender: true})
	if !agent.IsLoadError(err) {
		t.Errorf("want load error, have %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("cause should be preserved, have %v", err)
	}
}
