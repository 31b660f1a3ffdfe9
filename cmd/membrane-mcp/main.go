package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/ironsheep/membrane-tools-mcp/internal/analysis"
	"github.com/ironsheep/membrane-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("membrane-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--defaults", "defaults":
			// Same keys the tools accept under "config".
			out, err := json.MarshalIndent(analysis.DefaultConfig(), "", "  ")
			if err != nil {
				log.Fatalf("encode defaults: %v", err)
			}
			fmt.Println(string(out))
			return
		case "--help", "-h", "help":
			fmt.Println("membrane-tools-mcp - MCP server for membrane curvature and fluorescence analysis")
			fmt.Println()
			fmt.Println("Usage: membrane-tools-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --defaults       Print the default analysis config as JSON")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  MEMBRANE_MCP_LOG_LEVEL=debug     Log per-frame warnings and batch progress")
			fmt.Println("  MEMBRANE_MCP_MAX_REQUEST_MB=N    Largest request line in MiB (default 16);")
			fmt.Println("                                   raise it for very long stacks")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	opts := []server.Option{server.WithVersion(Version)}
	if v := os.Getenv("MEMBRANE_MCP_MAX_REQUEST_MB"); v != "" {
		mb, err := strconv.Atoi(v)
		if err != nil || mb <= 0 {
			log.Fatalf("MEMBRANE_MCP_MAX_REQUEST_MB must be a positive integer, got %q", v)
		}
		opts = append(opts, server.WithMaxRequestBytes(mb<<20))
	}
	if os.Getenv("MEMBRANE_MCP_LOG_LEVEL") == "debug" {
		log.Printf("Membrane MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		opts = append(opts, server.WithDebugLogger(log.Default()))
	}

	srv := server.New(opts...)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
