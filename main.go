package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/stmt-forensics/cmd/analyze"
	"fjacquet/stmt-forensics/cmd/normalize"
	"fjacquet/stmt-forensics/cmd/reanalyze"
	"fjacquet/stmt-forensics/cmd/root"
	"fjacquet/stmt-forensics/cmd/rules"
	"fjacquet/stmt-forensics/cmd/serve"
	"fjacquet/stmt-forensics/cmd/validate"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func init() {
	// Load environment variables silently first (no logging yet)
	loadEnvSilently()

	// Configure the global log level before any logger is created
	configureLogLevelDirectly()

	root.Init()

	root.Cmd.AddCommand(normalize.Cmd)
	root.Cmd.AddCommand(validate.Cmd)
	root.Cmd.AddCommand(analyze.Cmd)
	root.Cmd.AddCommand(reanalyze.Cmd)
	root.Cmd.AddCommand(rules.Cmd)
	root.Cmd.AddCommand(serve.Cmd)
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

// configureLogLevelDirectly sets the global logrus level from FORENSICS_LOG_LEVEL
func configureLogLevelDirectly() {
	logLevelStr := os.Getenv("FORENSICS_LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	logLevel, err := logrus.ParseLevel(strings.ToLower(logLevelStr))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
	root.Log.SetLevel(logLevel)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
