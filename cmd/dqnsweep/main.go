// Command dqnsweep trains and evaluates DQN agents on ALE/Bowling-v5
// over a sweep of hyperparameters, and plays back trained agents.
package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/buwituze/formative3-group2-dqn-agent/environment/gym"
)

func main() {
	for _, envFile := range []string{".env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	code := 0
	if err := newRootCmd().Execute(); err != nil {
		code = 1
	}
	gym.Close()
	os.Exit(code)
}

func newRootCmd() *cobra.Command {
	var level string

	rootCmd := &cobra.Command{
		Use:   "dqnsweep",
		Short: "Train, evaluate, and play back DQN agents on " +
			"ALE/Bowling-v5",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			lvl, err := log.ParseLevel(level)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&level, "log-level",
		envString("DQN_LOG_LEVEL", "info"), "logging level")

	rootCmd.AddCommand(newTrainCmd(), newPlayCmd())
	return rootCmd
}

// envString returns the value of the environment variable key, or def
// if it is unset
func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("ignoring %v: %v", key, err)
		return def
	}
	return i
}

func envUint(key string, def uint64) uint64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	u, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		log.Warnf("ignoring %v: %v", key, err)
		return def
	}
	return u
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warnf("ignoring %v: %v", key, err)
		return def
	}
	return d
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warnf("ignoring %v: %v", key, err)
		return def
	}
	return b
}
