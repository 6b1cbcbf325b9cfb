package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/spf13/cobra"

	"github.com/elinlund/ncx"
	"github.com/elinlund/ncx/format"
	"github.com/elinlund/ncx/internal/fmtio"
	"github.com/elinlund/ncx/internal/version"
)

func main() {
	if err := run(os.Args, os.Stdin, os.Stdout, os.Stderr); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "%s\n", msg)
		}
		os.Exit(1)
	}
}

// options holds every flag value, threaded through run so the command stays testable without
// touching package-level state.
type options struct {
	check        bool
	explain      bool
	parse        bool
	write        bool
	outputFormat string
	cpuProfile   string
	memProfile   string
}

func run(args []string, r io.Reader, w io.Writer, wErr io.Writer) error {
	var opts options
	var showVersion bool

	cmd := &cobra.Command{
		Use:           "ncxfmt [path...]",
		Short:         "Format source files for the ncx configuration language",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, paths []string) error {
			if showVersion {
				fmt.Fprintln(w, version.Version())
				return nil
			}
			stopProfile, err := startProfiling(opts.cpuProfile)
			if err != nil {
				return err
			}
			defer stopProfile()
			return runFormat(cmd.Context(), opts, paths, r, w)
		},
	}
	cmd.SetArgs(args[1:])
	cmd.SetOut(w)
	cmd.SetErr(wErr)

	cmd.Flags().BoolVar(&opts.check, "check", false, "report files that are not formatted, without writing changes; exits 1 if any are")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "annotate stdin with the rules that changed whitespace on each line")
	cmd.Flags().BoolVar(&opts.parse, "parse", false, "print the concrete syntax tree instead of formatting")
	cmd.Flags().StringVar(&opts.outputFormat, "output-format", "default", "output format for --parse: default or json")
	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "write formatted output back to each file instead of stdout")
	cmd.Flags().BoolVar(&showVersion, "version", false, "print the build version and exit")
	cmd.PersistentFlags().StringVar(&opts.cpuProfile, "cpuprofile", "", "write cpu profile to `file`")
	cmd.PersistentFlags().StringVar(&opts.memProfile, "memprofile", "", "write memory profile to `file`")

	err := cmd.Execute()

	if opts.memProfile != "" {
		if perr := writeMemProfile(opts.memProfile); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

func startProfiling(path string) (stop func(), err error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create CPU profile: %v", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("could not start CPU profile: %v", err)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

func writeMemProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create memory profile: %v", err)
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("could not write memory profile: %v", err)
	}
	return nil
}

func runFormat(ctx context.Context, opts options, paths []string, r io.Reader, w io.Writer) error {
	if opts.explain {
		return runExplain(r, w)
	}
	if opts.parse {
		return runParse(opts, r, w)
	}
	if len(paths) == 0 {
		return runStdin(opts, r, w)
	}

	anyChanged := false
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if fi.IsDir() {
			changed, err := runDir(ctx, opts, path, w)
			if err != nil {
				return err
			}
			anyChanged = anyChanged || changed
			continue
		}
		changed, err := runFile(opts, path, w)
		if err != nil {
			return err
		}
		anyChanged = anyChanged || changed
	}

	if opts.check && anyChanged {
		return errCheckFailed
	}
	return nil
}

// errCheckFailed signals --check found unformatted files, already listed on w; it carries no
// message of its own so main doesn't print a redundant line before exiting 1.
var errCheckFailed = errors.New("")

func runStdin(opts options, r io.Reader, w io.Writer) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("error reading input: %v", err)
	}
	out, err := format.ReformatString(string(src))
	if err != nil {
		return err
	}
	if opts.check {
		if out != string(src) {
			return errCheckFailed
		}
		return nil
	}
	_, err = io.WriteString(w, out)
	return err
}

func runFile(opts options, path string, w io.Writer) (changed bool, err error) {
	if opts.check {
		changed, err := fmtio.Changed(path)
		if err != nil {
			return false, err
		}
		if changed {
			fmt.Fprintln(w, path)
		}
		return changed, nil
	}
	if opts.write {
		return fmtio.File(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	defer f.Close()
	return false, fmtio.Reader(f, w)
}

func runDir(ctx context.Context, opts options, root string, w io.Writer) (anyChanged bool, err error) {
	var mu sync.Mutex // guards w: Dir's workers run concurrently but must not interleave writes

	fn := func(path string) (bool, error) {
		if opts.check {
			return fmtio.Changed(path)
		}
		if opts.write {
			return fmtio.File(path)
		}
		f, ferr := os.Open(path)
		if ferr != nil {
			return false, fmt.Errorf("%s: %w", path, ferr)
		}
		defer f.Close()
		out, ferr := io.ReadAll(f)
		if ferr != nil {
			return false, ferr
		}
		reformatted, ferr := format.ReformatString(string(out))
		if ferr != nil {
			return false, ferr
		}
		mu.Lock()
		_, ferr = io.WriteString(w, reformatted)
		mu.Unlock()
		return reformatted != string(out), ferr
	}

	results, err := fmtio.Dir(ctx, root, fn)
	if err != nil {
		return false, err
	}
	for _, res := range results {
		if res.Err != nil {
			return anyChanged, res.Err
		}
		if res.Changed {
			anyChanged = true
			if opts.check {
				fmt.Fprintln(w, res.Path)
			}
		}
	}
	return anyChanged, nil
}

func runExplain(r io.Reader, w io.Writer) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("error reading input: %v", err)
	}
	out, err := format.Explain(string(src))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func runParse(opts options, r io.Reader, w io.Writer) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("error reading input: %v", err)
	}
	ft, err := ncx.NewFormat(opts.outputFormat)
	if err != nil {
		return fmt.Errorf("failed to convert --output-format=%q: %v", opts.outputFormat, err)
	}
	tree, _ := ncx.Parse(string(src))
	return tree.Render(w, ft)
}
