package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/guardlint/guardlint/internal/config"
)

// runInit implements the `guardlint init` subcommand, which writes a starter
// guardlint.yml into the target directory.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("guardlint init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		dryRun bool
		force  bool
	)
	fs.BoolVar(&dryRun, "dry-run", false, "print the config without writing it")
	fs.BoolVar(&force, "force", false, "overwrite an existing config file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: guardlint init [flags] [directory]

Write a starter %s into the given directory (default: current directory).
Refuses to overwrite an existing file unless -force is given.

Flags:
`, config.DefaultFile)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dryRun {
		_, _ = fmt.Fprint(stdout, starterConfig)
		return nil
	}

	dir := "."
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}
	path := filepath.Join(dir, config.DefaultFile)

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use -force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote %s\n", path)
	return nil
}

const starterConfig = `# guardlint configuration.
#
# Each rule names the sites to monitor and the calls they must make.
#
#   calls:      call expressions whose function-valued arguments are checked
#   functions:  exported functions (or exported objects of functions) checked
#               by name
#   enforce:    names that must be called directly from every checked body;
#               a dotted name like auth.hasPermission only matches exactly,
#               a bare name also matches any namespace-qualified call ending
#               in it
#   requireAll: true demands every enforced name; default is any one of them
rules:
  - name: require-auth-check
    calls: [query, mutation]
    enforce: [hasPermission, isAuthenticated]
    requireAll: false
`
