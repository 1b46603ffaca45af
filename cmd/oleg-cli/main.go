// oleg-cli is an interactive REPL for a store opened with the oleg package.
//
// Usage:
//
//	oleg-cli [-c config.json] [--path dir] [--name store] [--append-only]
//
// Commands (in REPL):
//
//	put <key> <value> [content-type]   Insert or update a binding
//	get <key>                          Retrieve a binding
//	ctype <key>                        Show a key's content type
//	del <key>                          Delete a binding
//	len                                Count live bindings
//	save                               Write a dump file synchronously
//	bgsave                             Write a dump file in the background
//	load <file>                        Load bindings from a dump file
//	info                               Show store info
//	help                               Show this help
//	exit / quit / q                    Exit
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/oleg/internal/config"
	"github.com/calvinalkan/oleg/pkg/oleg"
)

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("oleg-cli", flag.ExitOnError)

	configPath := fs.String("c", "", "path to a JSONC config file")
	path := fs.String("path", "", "store directory (overrides config)")
	name := fs.String("name", "", "store name (overrides config)")
	appendOnly := fs.Bool("append-only", false, "enable the append-only log (overrides config)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: oleg-cli [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}

	cfg, err := config.Load(workDir, *configPath, config.Config{
		Path:       *path,
		Name:       *name,
		AppendOnly: *appendOnly,
	})
	if err != nil {
		return err
	}

	features := oleg.Feature(0)
	if cfg.AppendOnly {
		features |= oleg.FeatureAppendOnly
	}

	syncPolicy := oleg.SyncNever()
	if cfg.AOLSyncEvery > 0 {
		syncPolicy = oleg.SyncInterval(cfg.AOLSyncEvery)
	}

	dumpVersion := oleg.DumpV1
	if cfg.DumpVersion2 {
		dumpVersion = oleg.DumpV2
	}

	store, err := oleg.Open(oleg.Options{
		Path:        cfg.Path,
		Name:        cfg.Name,
		Features:    features,
		AOLSync:     syncPolicy,
		DumpVersion: dumpVersion,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	defer func() { _ = store.Close() }()

	repl := &REPL{store: store, cfg: cfg}

	return repl.Run()
}

// REPL is the interactive command loop.
type REPL struct {
	store *oleg.Store
	cfg   config.Config
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return home + "/.oleg_cli_history"
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("oleg-cli (path=%s name=%s append_only=%v)\n", r.cfg.Path, r.cfg.Name, r.cfg.AppendOnly)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("oleg> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "put":
			r.cmdPut(args)

		case "get":
			r.cmdGet(args)

		case "ctype":
			r.cmdContentType(args)

		case "del", "delete":
			r.cmdDelete(args)

		case "len", "count":
			r.cmdLen()

		case "save":
			r.cmdSave()

		case "bgsave":
			r.cmdBackgroundSave()

		case "load":
			r.cmdLoad(args)

		case "info":
			r.cmdInfo()

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"put", "get", "ctype", "del", "delete",
		"len", "count", "save", "bgsave", "load",
		"info", "help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  put <key> <value> [content-type]   Insert or update a binding")
	fmt.Println("  get <key>                          Retrieve a binding")
	fmt.Println("  ctype <key>                         Show a key's content type")
	fmt.Println("  del <key>                           Delete a binding")
	fmt.Println("  len                                 Count live bindings")
	fmt.Println("  save                                Write a dump file synchronously")
	fmt.Println("  bgsave                              Write a dump file in the background")
	fmt.Println("  load <file>                         Load bindings from a dump file")
	fmt.Println("  info                                Show store info")
	fmt.Println("  help                                Show this help")
	fmt.Println("  exit / quit / q                     Exit")
	fmt.Println()
}

func (r *REPL) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: put <key> <value> [content-type]")
		return
	}

	var ct []byte
	if len(args) >= 3 {
		ct = []byte(args[2])
	}

	err := r.store.PutCT([]byte(args[0]), []byte(args[1]), ct)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Println("OK")
}

func (r *REPL) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: get <key>")
		return
	}

	value, ok := r.store.Get([]byte(args[0]))
	if !ok {
		fmt.Println("(not found)")
		return
	}

	fmt.Printf("%s\n", value)
}

func (r *REPL) cmdContentType(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: ctype <key>")
		return
	}

	ct, err := r.store.ContentType([]byte(args[0]))
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Printf("%s\n", ct)
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: del <key>")
		return
	}

	removed, err := r.store.Delete([]byte(args[0]))
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	if !removed {
		fmt.Println("(not found)")
		return
	}

	fmt.Println("OK")
}

func (r *REPL) cmdLen() {
	fmt.Println(r.store.Len())
}

func (r *REPL) cmdSave() {
	err := r.store.Save()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Println("OK")
}

func (r *REPL) cmdBackgroundSave() {
	ch, err := r.store.BackgroundSave()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Println("saving in background...")

	if err := <-ch; err != nil {
		fmt.Printf("background save failed: %v\n", err)
		return
	}

	fmt.Println("background save complete")
}

func (r *REPL) cmdLoad(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: load <file>")
		return
	}

	err := r.store.Load(args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Println("OK")
}

func (r *REPL) cmdInfo() {
	fmt.Printf("path:        %s\n", r.cfg.Path)
	fmt.Printf("name:        %s\n", r.cfg.Name)
	fmt.Printf("append_only: %v\n", r.store.IsEnabled(oleg.FeatureAppendOnly))
	fmt.Printf("len:         %d\n", r.store.Len())
	fmt.Printf("uptime:      %s\n", r.store.Uptime())
}
