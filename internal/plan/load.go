// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package plan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

var (
	// ErrReadPlan is returned when a plan file cannot be read.
	ErrReadPlan = errors.New("failed to read plan file")
	// ErrInvalidYaml is returned when a YAML plan cannot be decoded.
	ErrInvalidYaml = errors.New("invalid YAML")
	// ErrInvalidHcl is returned when an HCL plan cannot be decoded.
	ErrInvalidHcl = errors.New("invalid HCL")
	// ErrUnknownFormat is returned for a file extension that is neither YAML nor HCL.
	ErrUnknownFormat = errors.New("unknown plan file format, expected .yaml, .yml or .hcl")
	// ErrReadMachines is returned when the machines file cannot be read.
	ErrReadMachines = errors.New("failed to read machines file")
)

// FsFactory returns the filesystem plan and machines files are read from.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// Load reads and decodes the plan file at path. Relative machines files are
// resolved against the directory of path.
func Load(path string) (*Plan, error) {
	data, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		return nil, errors.Join(ErrReadPlan, err)
	}

	p, err := Parse(path, data)
	if err != nil {
		return nil, err
	}

	p.baseDir = filepath.Dir(path)

	return p, nil
}

// Parse decodes a plan, choosing the format from the extension of filename.
func Parse(filename string, data []byte) (*Plan, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	case ".hcl":
		return parseHCL(filename, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filename)
	}
}

func parseYAML(data []byte) (*Plan, error) {
	p := new(Plan)
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYaml, err)
	}

	return p, nil
}

func parseHCL(filename string, data []byte) (*Plan, error) {
	p := new(Plan)
	if err := hclsimple.Decode(filename, data, evalContext(), p); err != nil {
		return nil, errors.Join(ErrInvalidHcl, err)
	}

	return p, nil
}

// evalContext exposes the process environment as env.NAME and a few string
// functions to HCL plans.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}

		vars[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"join":   stdlib.JoinFunc,
			"format": stdlib.FormatFunc,
		},
	}
}

// ResolveMachines returns the inline machines followed by those listed in
// the machines file, if any.
func (p *Plan) ResolveMachines() ([]string, error) {
	machines := slices.Clone(p.Machines)

	if p.MachinesFile == "" {
		return machines, nil
	}

	path := p.MachinesFile
	if !filepath.IsAbs(path) && p.baseDir != "" {
		path = filepath.Join(p.baseDir, path)
	}

	fromFile, err := ReadMachinesFile(path)
	if err != nil {
		return nil, err
	}

	return append(machines, fromFile...), nil
}

// ReadMachinesFile reads a machines file, see ParseMachines.
func ReadMachinesFile(path string) ([]string, error) {
	f, err := FsFactory().Open(path)
	if err != nil {
		return nil, errors.Join(ErrReadMachines, err)
	}
	defer f.Close() //nolint:errcheck

	machines, err := ParseMachines(f)
	if err != nil {
		return nil, errors.Join(ErrReadMachines, fmt.Errorf("%s: %w", path, err))
	}

	return machines, nil
}

// ParseMachines reads one machine per line. Text after a '#' and blank
// lines are ignored.
func ParseMachines(r io.Reader) ([]string, error) {
	var machines []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		if line = strings.TrimSpace(line); line != "" {
			machines = append(machines, line)
		}
	}

	return machines, sc.Err() //nolint:wrapcheck
}
