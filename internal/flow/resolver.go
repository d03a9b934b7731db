package flow

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"flowbridge/internal/config"
	"flowbridge/internal/errors"
	"flowbridge/internal/paths"
)

// DefaultBinaryName is looked up on $PATH when no explicit binary is configured
const DefaultBinaryName = "flow"

// ExecOptions is everything needed to invoke the worker for one root
type ExecOptions struct {
	Root   string
	Binary string
	Dir    string
	Env    []string
}

// RootResolver maps source files to their project root and execution options.
// It keeps no state between calls.
type RootResolver struct {
	marker   string
	binary   string
	extraEnv map[string]string
	lookPath func(string) (string, error)
}

// NewRootResolver creates a resolver from the flow config section
func NewRootResolver(cfg config.FlowConfig) *RootResolver {
	return &RootResolver{
		marker:   cfg.ConfigFileName,
		binary:   cfg.Binary,
		extraEnv: cfg.Env,
		lookPath: exec.LookPath,
	}
}

// FindConfigRoot returns the nearest ancestor directory of file holding the marker
func (r *RootResolver) FindConfigRoot(file string) (string, bool) {
	return paths.FindUp(filepath.Dir(file), r.marker)
}

// LocateBinary returns the worker binary path, if it can be found
func (r *RootResolver) LocateBinary() (string, bool) {
	if r.binary != "" {
		info, err := os.Stat(r.binary)
		if err != nil || info.IsDir() {
			return "", false
		}
		return r.binary, true
	}
	path, err := r.lookPath(DefaultBinaryName)
	if err != nil {
		return "", false
	}
	return path, true
}

// Options builds the execution options for a known root
func (r *RootResolver) Options(root, binary string) *ExecOptions {
	env := os.Environ()
	keys := make([]string, 0, len(r.extraEnv))
	for k := range r.extraEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+r.extraEnv[k])
	}
	return &ExecOptions{
		Root:   root,
		Binary: binary,
		Dir:    root,
		Env:    env,
	}
}

// Resolve returns the execution options for file, or false when it is not
// safe to invoke the worker (no config root, or no binary).
func (r *RootResolver) Resolve(file string) (*ExecOptions, bool) {
	opts, err := r.Lookup(file)
	if err != nil {
		return nil, false
	}
	return opts, true
}

// Lookup is Resolve with the reason for absence spelled out
func (r *RootResolver) Lookup(file string) (*ExecOptions, error) {
	root, ok := r.FindConfigRoot(file)
	if !ok {
		return nil, errors.NewBridgeError(
			errors.NoConfigRoot,
			fmt.Sprintf("no %s found above %s", r.marker, file),
			nil,
			errors.GetSuggestedFixes(errors.NoConfigRoot),
		)
	}
	binary, ok := r.LocateBinary()
	if !ok {
		name := r.binary
		if name == "" {
			name = DefaultBinaryName
		}
		return nil, errors.NewBridgeError(
			errors.BinaryNotFound,
			fmt.Sprintf("worker binary %q not found", name),
			nil,
			errors.GetSuggestedFixes(errors.BinaryNotFound),
		)
	}
	return r.Options(root, binary), nil
}
