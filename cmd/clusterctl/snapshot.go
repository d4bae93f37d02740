package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattjoyce/msgcluster/internal/cluster"
	"github.com/mattjoyce/msgcluster/internal/codec"
	"github.com/mattjoyce/msgcluster/internal/config"
	"github.com/mattjoyce/msgcluster/internal/snapshot"
	"github.com/mattjoyce/msgcluster/internal/storage"
)

func runSnapshotNoun(args []string) int {
	if len(args) < 1 {
		printSnapshotNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSnapshotNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "show":
		return runSnapshotShow(actionArgs)
	case "digest":
		return runSnapshotDigest(actionArgs)
	case "convert":
		return runSnapshotConvert(actionArgs)
	case "save":
		return runSnapshotSave(actionArgs)
	case "load":
		return runSnapshotLoad(actionArgs)
	case "list":
		return runSnapshotList(actionArgs)
	case "delete":
		return runSnapshotDelete(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown snapshot action: %s\n", action)
		return 1
	}
}

func printSnapshotNounHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: clusterctl snapshot <action> [flags]

Actions:
  show <file>                       Print the tree as an outline
  digest <file>                     Print the BLAKE3 digest
  convert <in> <out>                Re-encode; formats follow the extensions
  save [--db path] <name> <file>    Store a file under name
  load [--db path] <name> <file>    Write a stored snapshot to file
  list [--db path] [--json]         List stored snapshots
  delete [--db path] <name>         Remove a stored snapshot

Store commands read store.path from --config (or discovered config) unless
--db is given.
`)
}

func runSnapshotShow(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: clusterctl snapshot show <file>")
		return 1
	}
	w, err := codec.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read snapshot: %v\n", err)
		return 1
	}
	writeOutline(os.Stdout, w)
	return 0
}

func runSnapshotDigest(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: clusterctl snapshot digest <file>")
		return 1
	}
	w, err := codec.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read snapshot: %v\n", err)
		return 1
	}
	digest, err := codec.Digest(w)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to compute digest: %v\n", err)
		return 1
	}
	fmt.Println(digest)
	return 0
}

func runSnapshotConvert(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: clusterctl snapshot convert <in> <out>")
		return 1
	}
	w, err := codec.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read snapshot: %v\n", err)
		return 1
	}
	if err := codec.WriteFile(args[1], w); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write snapshot: %v\n", err)
		return 1
	}
	fmt.Printf("Wrote %s\n", args[1])
	return 0
}

type storeFlags struct {
	configPath *string
	dbPath     *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		configPath: fs.String("config", "", "Path to configuration file"),
		dbPath:     fs.String("db", "", "Path to the snapshot database (overrides store.path)"),
	}
}

// open resolves the database path and opens the snapshot store.
func (f storeFlags) open(ctx context.Context) (*snapshot.Store, func(), error) {
	path := *f.dbPath
	if path == "" {
		cfgPath := *f.configPath
		if cfgPath == "" {
			if discovered, err := config.Discover(); err == nil {
				cfgPath = discovered
			}
		}
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		path = cfg.Store.Path
	}

	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return snapshot.NewStore(db), func() { _ = db.Close() }, nil
}

func runSnapshotSave(args []string) int {
	fs := flag.NewFlagSet("snapshot save", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: clusterctl snapshot save [--db path] <name> <file>")
		return 1
	}
	name, file := fs.Arg(0), fs.Arg(1)

	w, err := codec.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read snapshot: %v\n", err)
		return 1
	}

	ctx := context.Background()
	store, closeStore, err := sf.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer closeStore()

	entry, err := store.Save(ctx, name, w)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save snapshot: %v\n", err)
		return 1
	}
	fmt.Printf("Saved %s (%s)\n", entry.Name, entry.Digest)
	return 0
}

func runSnapshotLoad(args []string) int {
	fs := flag.NewFlagSet("snapshot load", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: clusterctl snapshot load [--db path] <name> <file>")
		return 1
	}
	name, file := fs.Arg(0), fs.Arg(1)

	ctx := context.Background()
	store, closeStore, err := sf.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer closeStore()

	w, _, err := store.Load(ctx, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load snapshot: %v\n", err)
		return 1
	}
	if err := codec.WriteFile(file, w); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write snapshot: %v\n", err)
		return 1
	}
	fmt.Printf("Wrote %s\n", file)
	return 0
}

func runSnapshotList(args []string) int {
	fs := flag.NewFlagSet("snapshot list", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	store, closeStore, err := sf.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer closeStore()

	entries, err := store.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list snapshots: %v\n", err)
		return 1
	}

	if *jsonOut {
		if entries == nil {
			entries = []snapshot.Entry{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tROOT TYPE\tDIGEST\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Name, e.RootType, e.Digest[:min(len(e.Digest), 12)], e.UpdatedAt.Format(time.RFC3339))
	}
	_ = tw.Flush()
	return 0
}

func runSnapshotDelete(args []string) int {
	fs := flag.NewFlagSet("snapshot delete", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: clusterctl snapshot delete [--db path] <name>")
		return 1
	}

	ctx := context.Background()
	store, closeStore, err := sf.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer closeStore()

	if err := store.Delete(ctx, fs.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to delete snapshot: %v\n", err)
		return 1
	}
	fmt.Printf("Deleted %s\n", fs.Arg(0))
	return 0
}

// writeOutline prints w as an indented outline, children in id order.
func writeOutline(out io.Writer, w cluster.Wrapped) {
	var walk func(id string, w cluster.Wrapped, depth int)
	walk = func(id string, w cluster.Wrapped, depth int) {
		payload := "-"
		if w.Payload != nil {
			payload = fmt.Sprint(w.Payload)
		}
		fmt.Fprintf(out, "%s%s [type %d] %s\n", strings.Repeat("  ", depth), id, w.Type, payload)

		ids := make([]string, 0, len(w.Children))
		for childID := range w.Children {
			ids = append(ids, childID)
		}
		slices.Sort(ids)
		for _, childID := range ids {
			walk(childID, w.Children[childID], depth+1)
		}
	}
	walk("(root)", w, 0)
}
