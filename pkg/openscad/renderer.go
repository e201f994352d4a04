// Package openscad turns OpenSCAD sources into STL files by running the
// openscad binary, so they can be converted like any other STL input.
package openscad

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultBinary is the executable looked up in PATH
const DefaultBinary = "openscad"

// use <file.scad> and include <file.scad>
var dependencyPattern = regexp.MustCompile(`^\s*(?:use|include)\s*<([^>]+)>`)

// Renderer renders .scad files relative to a working directory
type Renderer struct {
	workDir string
	Binary  string
}

// NewRenderer creates a renderer that resolves relative paths against workDir
func NewRenderer(workDir string) *Renderer {
	return &Renderer{workDir: workDir, Binary: DefaultBinary}
}

// IsSCAD reports whether path names an OpenSCAD source
func IsSCAD(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".scad")
}

// RenderToSTL renders scadFile into outputFile
func (r *Renderer) RenderToSTL(scadFile, outputFile string) error {
	bin, err := exec.LookPath(r.Binary)
	if err != nil {
		return fmt.Errorf("%s not found in PATH, install OpenSCAD from https://openscad.org/: %w", r.Binary, err)
	}

	cmd := exec.Command(bin, "-o", outputFile, r.abs(scadFile))
	cmd.Dir = r.workDir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		if output.Len() > 0 {
			return fmt.Errorf("failed to render %s: %w\n%s", scadFile, err, strings.TrimSpace(output.String()))
		}
		return fmt.Errorf("failed to render %s: %w", scadFile, err)
	}
	return nil
}

// RenderToTemp renders scadFile into a new temporary STL file and returns its
// path. The caller removes the file.
func (r *Renderer) RenderToTemp(scadFile string) (string, error) {
	tmp, err := os.CreateTemp("", "stl2vrml-*.stl")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()

	if err := r.RenderToSTL(scadFile, path); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// Dependencies returns scadFile followed by every file it pulls in through
// use/include, transitively, each once. All paths are absolute.
func (r *Renderer) Dependencies(scadFile string) ([]string, error) {
	seen := make(map[string]bool)
	queue := []string{r.abs(scadFile)}
	var deps []string

	for len(queue) > 0 {
		file := queue[0]
		queue = queue[1:]
		if seen[file] {
			continue
		}
		seen[file] = true
		deps = append(deps, file)

		direct, err := r.parseDependencies(file)
		if err != nil {
			return nil, err
		}
		queue = append(queue, direct...)
	}
	return deps, nil
}

func (r *Renderer) parseDependencies(scadFile string) ([]string, error) {
	file, err := os.Open(scadFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", scadFile, err)
	}
	defer file.Close()

	dir := filepath.Dir(scadFile)
	var deps []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		if m := dependencyPattern.FindStringSubmatch(line); m != nil {
			deps = append(deps, r.resolve(m[1], dir))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", scadFile, err)
	}
	return deps, nil
}

// resolve finds a dependency next to the including file first, then in the
// working directory.
func (r *Renderer) resolve(dep, dir string) string {
	if filepath.IsAbs(dep) {
		return filepath.Clean(dep)
	}
	local := filepath.Join(dir, dep)
	if strings.HasPrefix(dep, "./") || strings.HasPrefix(dep, "../") {
		return local
	}
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return r.abs(dep)
}

func (r *Renderer) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(r.workDir, path)
}
