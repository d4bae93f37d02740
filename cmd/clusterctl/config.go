package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattjoyce/msgcluster/internal/config"
)

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	switch args[0] {
	case "check":
		return runConfigCheck(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", args[0])
		return 1
	}
}

func printConfigNounHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: clusterctl config <action> [flags]

Actions:
  check [--config path]   Validate configuration (file, defaults and
                          MSGCLUSTER_* environment) and print its hash
`)
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("config check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	path := resolveConfigPath(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration invalid: %v\n", err)
		return 1
	}

	fmt.Println("Configuration valid")
	fmt.Printf("cluster: %s (forgiving=%t)\n", cfg.Cluster.Name, cfg.Cluster.Forgiving)
	fmt.Printf("store:   %s\n", cfg.Store.Path)
	fmt.Printf("listen:  %s\n", cfg.API.Listen)
	if path != "" {
		hash, err := config.Hash(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to hash config: %v\n", err)
			return 1
		}
		fmt.Printf("hash:    %s\n", hash)
	}
	return 0
}
