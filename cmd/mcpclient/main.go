// Package main runs a one-off MCP client: spawns the sqltools-mcp server over
// stdio, calls one tool (or reads one resource), and prints the text result.
// Run from repo root:
//
//	go run ./cmd/mcpclient <tool_name>              # no args, e.g. ping
//	go run ./cmd/mcpclient <tool_name> '<json>'    # with arguments
//	go run ./cmd/mcpclient read <uri>              # read a resource
//
// Examples:
//
//	go run ./cmd/mcpclient ping
//	go run ./cmd/mcpclient list_tables
//	go run ./cmd/mcpclient count_rows '{"table_name":"users"}'
//	go run ./cmd/mcpclient read schema://users
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <tool_name> [json_arguments] | read <uri>\n", os.Args[0])
		os.Exit(1)
	}
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repoRoot, err := findRepoRoot()
	if err != nil {
		return fmt.Errorf("find repo root: %w", err)
	}

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/server", "stdio")
	cmd.Dir = repoRoot
	cmd.Env = os.Environ() // pass through so server sees DB_* etc.
	cmd.Stderr = os.Stderr

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer func() {
		stdinPipe.Close()
		_ = cmd.Wait()
	}()

	transport := &mcp.IOTransport{
		Reader: stdoutPipe,
		Writer: stdinPipe,
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "mcpclient", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer session.Close()

	var text string
	if argv[0] == "read" {
		if len(argv) < 2 {
			return fmt.Errorf("read needs a resource URI")
		}
		text, err = readResource(ctx, session, argv[1])
	} else {
		text, err = callTool(ctx, session, argv)
	}
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func callTool(ctx context.Context, session *mcp.ClientSession, argv []string) (string, error) {
	var args any
	if len(argv) >= 2 && argv[1] != "" {
		if err := json.Unmarshal([]byte(argv[1]), &args); err != nil {
			return "", fmt.Errorf("invalid json arguments: %w", err)
		}
	}
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      argv[0],
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("call tool: %w", err)
	}
	text := ""
	if len(res.Content) > 0 {
		if tc, ok := res.Content[0].(*mcp.TextContent); ok {
			text = tc.Text
		}
	}
	if res.IsError {
		return "", fmt.Errorf("tool error: %s", text)
	}
	return text, nil
}

func readResource(ctx context.Context, session *mcp.ClientSession, uri string) (string, error) {
	res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", fmt.Errorf("read resource: %w", err)
	}
	if len(res.Contents) == 0 || res.Contents[0] == nil {
		return "", nil
	}
	return res.Contents[0].Text, nil
}

func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
