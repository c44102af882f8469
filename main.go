package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arieldaniely/AutoPagi/cmd/fetch"
	"github.com/arieldaniely/AutoPagi/cmd/institutions"
	"github.com/arieldaniely/AutoPagi/cmd/reconcile"
	"github.com/arieldaniely/AutoPagi/cmd/root"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func init() {
	// Load environment variables silently first, then set the global log
	// level before any logging happens.
	loadEnvSilently()
	logrus.SetLevel(resolveLogLevel())

	root.Init()

	root.Cmd.AddCommand(fetch.Cmd)
	root.Cmd.AddCommand(reconcile.Cmd)
	root.Cmd.AddCommand(institutions.Cmd)
}

// loadEnvSilently loads environment variables without logging anything
func loadEnvSilently() {
	envFile := ".env"
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		envFile = filepath.Join("..", ".env")
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			return
		}
	}
	_ = godotenv.Load(envFile)
}

// resolveLogLevel reads the log level from the environment, defaulting to
// info when unset or unparseable.
func resolveLogLevel() logrus.Level {
	levelStr := os.Getenv("AUTOPAGI_LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}

	level, err := logrus.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		level = logrus.InfoLevel
	}
	return level
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
