// Package main runs the sqltools-mcp server: an MCP server that exposes a
// relational database to agents through a small set of tools, over stdio
// (default) or streamable HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
	"github.com/SedlarDavid/sqltools-mcp/internal/server"
)

func main() {
	if err := newRootCmd(&rootFlags{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootFlags override config file and environment values when set.
type rootFlags struct {
	configPath  string
	driver      string
	host        string
	port        int
	name        string
	user        string
	schema      string
	readOnly    bool
	logLevel    string
	logFormat   string
	logFile     string
	metricsAddr string
	httpAddr    string
}

func newRootCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sqltools-mcp",
		Short:   "MCP server exposing SQL database tools",
		Long:    `sqltools-mcp exposes a PostgreSQL, MySQL, SQL Server or SQLite database to MCP clients: run statements, list tables, count, sample, search and describe.`,
		Version: server.ServerVersion,
		// Without a subcommand the server speaks stdio.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStdio(cmd, f)
		},
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default ~/"+config.DefaultConfigDir+"/"+config.ConfigFileName+")")
	pf.StringVar(&f.driver, "driver", "", "database driver: postgres, mysql, sqlserver or sqlite ($"+config.EnvDriver+")")
	pf.StringVar(&f.host, "host", "", "database host ($"+config.EnvHost+")")
	pf.IntVar(&f.port, "port", 0, "database port ($"+config.EnvPort+")")
	pf.StringVar(&f.name, "name", "", "database name, or file path for sqlite ($"+config.EnvName+")")
	pf.StringVar(&f.user, "user", "", "database user ($"+config.EnvUser+")")
	pf.StringVar(&f.schema, "schema", "", "application schema searched before the default one ($"+config.EnvSchema+")")
	pf.BoolVarP(&f.readOnly, "read-only", "r", false, "reject INSERT, UPDATE and DELETE ($"+config.EnvReadOnly+")")
	pf.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error ($"+config.EnvLogLevel+")")
	pf.StringVar(&f.logFormat, "log-format", "", "text or json ($"+config.EnvLogFormat+")")
	pf.StringVar(&f.logFile, "log-file", "", "also append logs to this file ($"+config.EnvLogFile+")")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")

	cmd.AddCommand(&cobra.Command{
		Use:   "stdio",
		Short: "Run over stdio transport (for local MCP clients)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStdio(cmd, f)
		},
	})

	httpCmd := &cobra.Command{
		Use:   "http",
		Short: "Run over streamable HTTP transport (for remote MCP clients)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHTTP(cmd, f)
		},
	}
	httpCmd.Flags().StringVar(&f.httpAddr, "http-addr", "", "listen address for the MCP endpoint (default :8080)")
	cmd.AddCommand(httpCmd)

	return cmd
}

// loadConfig resolves file, then env, then explicitly set flags.
func loadConfig(cmd *cobra.Command, f *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("driver", func() { cfg.Driver = config.NormalizeDriver(f.driver) })
	set("host", func() { cfg.Host = f.host })
	set("port", func() { cfg.Port = f.port })
	set("name", func() { cfg.Name = f.name })
	set("user", func() { cfg.User = f.user })
	set("schema", func() { cfg.Schema = f.schema })
	set("read-only", func() { cfg.ReadOnly = f.readOnly })
	set("log-level", func() { cfg.LogLevel = f.logLevel })
	set("log-format", func() { cfg.LogFormat = f.logFormat })
	set("log-file", func() { cfg.LogFile = f.logFile })
	set("metrics-addr", func() { cfg.MetricsAddr = f.metricsAddr })
	set("http-addr", func() { cfg.HTTPAddr = f.httpAddr })

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
