package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/msgcluster/internal/cluster"
	"github.com/mattjoyce/msgcluster/internal/codec"
	"github.com/mattjoyce/msgcluster/internal/tui/treeview"
)

func printViewHelp() {
	fmt.Print(`Usage: clusterctl view <file>
       clusterctl view --api-url URL [--api-key KEY]

Browses a wrapped tree from a .json/.yaml file or from a running server's
GET /tree. Press r to reload.
`)
}

func runView(args []string) int {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	apiURL := fs.String("api-url", "", "Server URL to read /tree from")
	apiKey := fs.String("api-key", os.Getenv("MSGCLUSTER_API_KEY"), "API bearer token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	var (
		title string
		load  treeview.Loader
	)
	switch {
	case *apiURL != "" && fs.NArg() == 0:
		title = *apiURL
		load = treeFromAPI(*apiURL, *apiKey)
	case *apiURL == "" && fs.NArg() == 1:
		file := fs.Arg(0)
		title = file
		load = func() (cluster.Wrapped, error) { return codec.ReadFile(file) }
	default:
		printViewHelp()
		return 1
	}

	tree, err := load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load tree: %v\n", err)
		return 1
	}

	p := tea.NewProgram(treeview.New(title, tree, load), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func treeFromAPI(baseURL, apiKey string) treeview.Loader {
	client := &http.Client{Timeout: 5 * time.Second}
	return func() (cluster.Wrapped, error) {
		req, err := http.NewRequest(http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/tree", nil)
		if err != nil {
			return cluster.Wrapped{}, err
		}
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
		resp, err := client.Do(req)
		if err != nil {
			return cluster.Wrapped{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return cluster.Wrapped{}, fmt.Errorf("GET /tree: %s", resp.Status)
		}

		var w cluster.Wrapped
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		if err := dec.Decode(&w); err != nil {
			return cluster.Wrapped{}, fmt.Errorf("decode tree: %w", err)
		}
		return codec.Normalize(w), nil
	}
}
