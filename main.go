// guardlint verifies that configured callback sites and exported functions
// directly invoke required authorization checks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/guardlint/guardlint/internal/config"
	"github.com/guardlint/guardlint/internal/discover"
	"github.com/guardlint/guardlint/internal/lang"
	"github.com/guardlint/guardlint/internal/model"
	"github.com/guardlint/guardlint/internal/report"
	"github.com/guardlint/guardlint/internal/rule"
)

var version = "dev"

const defaultMaxFileSize = 1_000_000 // 1 MB

func main() {
	code, err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(code)
}

func run(args []string, stdout, stderr io.Writer) (int, error) {
	if len(args) > 0 && args[0] == "init" {
		if err := runInit(args[1:], stdout, stderr); err != nil {
			return 2, err
		}
		return 0, nil
	}

	fs := flag.NewFlagSet("guardlint", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfgPath     string
		format      string
		langs       string
		maxFileSize int
		debug       bool
		showVersion bool
	)

	fs.StringVar(&cfgPath, "c", "", "config file path (default <root>/"+config.DefaultFile+")")
	fs.StringVar(&cfgPath, "config", "", "config file path (default <root>/"+config.DefaultFile+")")
	fs.StringVar(&format, "f", "text", "output format: text or toon")
	fs.StringVar(&format, "format", "text", "output format: text or toon")
	fs.StringVar(&langs, "l", "", "comma-separated languages to include")
	fs.StringVar(&langs, "langs", "", "comma-separated languages to include")
	fs.IntVar(&maxFileSize, "max-file-size", defaultMaxFileSize, "skip files larger than this many bytes")
	fs.BoolVar(&debug, "debug", false, "enable analyzer debug logging")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return 2, err
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "guardlint %s\n", version)
		return 0, nil
	}

	if format != "text" && format != "toon" {
		return 2, fmt.Errorf("unsupported format %q", format)
	}

	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return 2, fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return 2, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return 2, fmt.Errorf("%s: not a directory", root)
	}

	var langFilter []string
	if langs != "" {
		for _, name := range strings.Split(langs, ",") {
			name = strings.TrimSpace(name)
			if _, ok := lang.Languages[name]; !ok {
				return 2, fmt.Errorf("unsupported language %q", name)
			}
			langFilter = append(langFilter, name)
		}
	}

	if cfgPath == "" {
		cfgPath = filepath.Join(root, config.DefaultFile)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 2, fmt.Errorf("no config found at %s (run `guardlint init` to create one)", cfgPath)
		}
		return 2, err
	}

	logger := zap.NewNop()
	if debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return 2, fmt.Errorf("creating logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
	}

	analyzers := make([]*rule.Analyzer, 0, len(cfg.Rules))
	for _, policy := range cfg.Policies() {
		analyzers = append(analyzers, rule.New(policy, rule.WithLogger(logger)))
	}

	// Discover files
	files, err := discover.Files(root, langFilter)
	if err != nil {
		return 2, fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintln(stderr, "no analyzable files found")
		return 0, nil
	}

	// Filter by size
	files = filterBySize(root, files, maxFileSize, stderr)

	results := analyzeFilesConcurrent(root, files, analyzers, stderr)

	var violations []model.Violation
	for _, r := range results {
		violations = append(violations, r.Violations...)
	}
	sort.Slice(violations, func(i, j int) bool {
		a, b := &violations[i], &violations[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Rule < b.Rule
	})

	switch format {
	case "toon":
		_, _ = fmt.Fprintln(stdout, report.EncodeTOON(violations))
	default:
		report.Text(stdout, violations)
	}

	if len(violations) > 0 {
		return 1, nil
	}
	return 0, nil
}

func filterBySize(root string, files []discover.FileEntry, maxSize int, stderr io.Writer) []discover.FileEntry {
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > int64(maxSize) {
			_, _ = fmt.Fprintf(stderr, "Warning: %s: skipped (>%d bytes)\n", f.Path, maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func analyzeFilesConcurrent(root string, files []discover.FileEntry, analyzers []*rule.Analyzer, stderr io.Writer) []model.FileResult {
	type result struct {
		index int
		res   model.FileResult
		ok    bool
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	var stderrMu sync.Mutex

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parsers
			parsers := make(map[string]*sitter.Parser)

			for idx := range work {
				f := files[idx]
				parser, ok := parsers[f.Language]
				if !ok {
					parser = lang.Languages[f.Language].NewParser()
					parsers[f.Language] = parser
				}

				absPath := filepath.Join(root, f.Path)
				source, err := os.ReadFile(absPath)
				if err != nil {
					stderrMu.Lock()
					_, _ = fmt.Fprintf(stderr, "Warning: failed to read %s: %v\n", f.Path, err)
					stderrMu.Unlock()
					continue
				}

				tree, err := parser.ParseCtx(context.Background(), nil, source)
				if err != nil {
					stderrMu.Lock()
					_, _ = fmt.Fprintf(stderr, "Warning: failed to parse %s: %v\n", f.Path, err)
					stderrMu.Unlock()
					continue
				}

				var violations []model.Violation
				for _, a := range analyzers {
					violations = append(violations, a.Analyze(tree.RootNode(), source, f.Path)...)
				}
				tree.Close()

				results <- result{
					index: idx,
					res: model.FileResult{
						Path:       f.Path,
						Language:   f.Language,
						Violations: violations,
					},
					ok: true,
				}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]model.FileResult, len(files))
	valid := make([]bool, len(files))
	for r := range results {
		indexed[r.index] = r.res
		valid[r.index] = r.ok
	}

	var out []model.FileResult
	for i, v := range valid {
		if v {
			out = append(out, indexed[i])
		}
	}

	return out
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-c": true, "--c": true,
	"-config": true, "--config": true,
	"-f": true, "--f": true,
	"-format": true, "--format": true,
	"-l": true, "--l": true,
	"-langs": true, "--langs": true,
	"-max-file-size": true, "--max-file-size": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
