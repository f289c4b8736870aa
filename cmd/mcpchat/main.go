// Command mcpchat is an interactive Gemini agent over the tools of an MCP
// server. It spawns the given server script, discovers its tools and answers
// queries from the terminal, dispatching tool calls as the model requests
// them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/effective-security/mcpchat/agent"
	"github.com/effective-security/mcpchat/pkg/llms/googleai"
	"github.com/effective-security/xlog"
	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: mcpchat <path_to_server_script>")
		os.Exit(1)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}
}

func run(scriptPath string) error {
	// load environment variables from .env, if present
	_ = godotenv.Load()

	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	xlog.SetGlobalLogLevel(xlog.WARNING)

	cfg, err := agent.LoadConfig(os.Getenv("MCPCHAT_CONFIG"))
	if err != nil {
		return err
	}

	ctx := context.Background()

	model, err := googleai.New(ctx,
		googleai.WithAPIKey(os.Getenv("GOOGLE_API_KEY")),
		googleai.WithDefaultModel(cfg.Model),
		googleai.WithDefaultTemperature(cfg.Temperature),
	)
	if err != nil {
		return err
	}

	a, err := agent.Connect(ctx, scriptPath, model, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	return a.ChatLoop(ctx, os.Stdin, os.Stdout)
}
