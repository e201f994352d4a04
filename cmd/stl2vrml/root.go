package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/philipparndt/stl2vrml/pkg/convert"
	"github.com/philipparndt/stl2vrml/pkg/errs"
	"github.com/philipparndt/stl2vrml/pkg/openscad"
	"github.com/philipparndt/stl2vrml/pkg/watcher"
	"github.com/philipparndt/stl2vrml/version"
	"github.com/spf13/cobra"
)

const watchDebounce = 500 * time.Millisecond

type rootOptions struct {
	quiet bool
	watch bool
}

// job is one input/output pair and where its messages go
type job struct {
	input, output string
	status        io.Writer
	progress      io.Writer
	errors        io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "stl2vrml <input.stl> <output.wrl>",
		Short: "Convert STL models to VRML",
		Long: `stl2vrml converts a 3D model from STL (ASCII or binary) to a VRML 2.0 .wrl scene.
The model is streamed, so files of any size convert in bounded memory.
OpenSCAD sources (.scad) are rendered to STL with the openscad binary first.
An input named like a subcommand (info, help, completion) must be given as a
path, for example ./info.`,
		Version:       version.GetFullVersion(),
		Args:          exactArgs(2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runConvert(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress status and progress output")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Convert again whenever the input changes")

	cmd.AddCommand(newInfoCmd())
	return cmd
}

// exactArgs is cobra.ExactArgs reporting a usage error
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return errs.Usagef("%v", err)
		}
		return nil
	}
}

func runConvert(cmd *cobra.Command, args []string, opts *rootOptions) error {
	j := job{
		input:    args[0],
		output:   args[1],
		status:   cmd.OutOrStdout(),
		progress: cmd.ErrOrStderr(),
		errors:   cmd.ErrOrStderr(),
	}
	if opts.quiet {
		j.status = io.Discard
		j.progress = nil
	}

	fmt.Fprintf(j.status, "Converting %s to %s\n", j.input, j.output)
	err := j.run()
	if !opts.watch {
		return err
	}
	if err != nil {
		fmt.Fprintf(j.errors, "stl2vrml: Error - %v\n", err)
	}
	return j.watch(cmd.Context())
}

// run converts the input once, rendering OpenSCAD sources first
func (j job) run() error {
	source := j.input
	if openscad.IsSCAD(j.input) {
		fmt.Fprintf(j.status, "Rendering OpenSCAD file: %s\n", j.input)
		scad, err := filepath.Abs(j.input)
		if err != nil {
			return errs.NewOpen(j.input, err)
		}
		tmp, err := openscad.NewRenderer(filepath.Dir(scad)).RenderToTemp(scad)
		if err != nil {
			return errs.NewOpen(j.input, err)
		}
		defer os.Remove(tmp)
		source = tmp
	}

	fmt.Fprintln(j.status, "Processing.")
	result, err := convert.File(source, j.output, convert.Options{Progress: j.progress})
	if err != nil {
		return err
	}
	fmt.Fprintf(j.status, "Converted %d triangles from %s STL.\n", result.Triangles, result.Mode)
	fmt.Fprintln(j.status, "Done.")
	return nil
}

// watch converts again on every change until interrupted
func (j job) watch(ctx context.Context) error {
	files := []string{j.input}
	if openscad.IsSCAD(j.input) {
		scad, err := filepath.Abs(j.input)
		if err != nil {
			return errs.NewOpen(j.input, err)
		}
		deps, err := openscad.NewRenderer(filepath.Dir(scad)).Dependencies(scad)
		if err != nil {
			return errs.NewOpen(j.input, err)
		}
		files = deps
	}

	w, err := watcher.New(watchDebounce)
	if err != nil {
		return err
	}
	defer w.Close()
	w.OnError = func(err error) {
		fmt.Fprintf(j.errors, "Watcher error: %v\n", err)
	}

	err = w.Watch(files, func(changed string) {
		fmt.Fprintf(j.status, "\nFile changed: %s\n", changed)
		if err := j.run(); err != nil {
			fmt.Fprintf(j.errors, "stl2vrml: Error - %v\n", err)
		}
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(j.status, "Watching %d file(s) for changes, press Ctrl+C to stop.\n", len(files))
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return w.Run(ctx)
}
