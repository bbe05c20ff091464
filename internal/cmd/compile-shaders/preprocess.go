// Copyright 2023 the Vello Authors
// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

type Preprocessor struct {
	ImportDir string
	Log       *zap.Logger
	Defines   map[string]struct{}

	imports map[string][]byte
	// stages seen via #shader markers in the current top-level file
	stages map[string]bool
}

func (p *Preprocessor) getImport(name string) ([]byte, error) {
	p.Log.Debug("substituting import", zap.String("name", name))
	if src, ok := p.imports[name]; ok {
		return src, nil
	}
	p.Log.Debug("loading import from disk", zap.String("name", name))
	src, err := os.ReadFile(filepath.Join(p.ImportDir, name+".wgsl"))
	if err != nil {
		return nil, err
	}
	if p.imports == nil {
		p.imports = make(map[string][]byte)
	}
	p.imports[name] = src
	return src, nil
}

// CheckStages verifies that a source using #shader markers declared both
// stages. It resets the marker state for the next file.
func (p *Preprocessor) CheckStages() error {
	stages := p.stages
	p.stages = nil
	if len(stages) == 0 {
		return nil
	}
	for _, stage := range []string{"vertex", "fragment"} {
		if !stages[stage] {
			return fmt.Errorf("missing #shader %s section", stage)
		}
	}
	return nil
}

func (p *Preprocessor) Preprocess(source []byte, name string) ([]byte, error) {
	var out []byte
	nl := []byte("\n")
	space := []byte(" ")
	dirMarker := []byte("#")
	commentMarker := []byte("//")
	let := []byte("let ")
	type stackItem struct {
		active     bool
		elsePassed bool
	}
	var stack []stackItem
	lineNo := 0
	location := func() string {
		return fmt.Sprintf("%s:%d", name, lineNo)
	}
	errorf := func(f string, v ...any) error {
		v = append(v[:len(v):len(v)], location())
		return fmt.Errorf(f+" (at %s)", v...)
	}
	error := func(f string) error {
		return errorf("%s", f)
	}
allLines:
	for len(source) > 0 {
		lineNo++
		var line []byte
		line, source, _ = bytes.Cut(source, nl)

		for len(line) > 0 {
			hashIdx := bytes.IndexByte(line, '#')
			commentIdx := bytes.Index(line, commentMarker)

			if hashIdx == -1 || (commentIdx != -1 && commentIdx < hashIdx) {
				// No directives that aren't commented
				break
			}

			end := bytes.IndexByte(line[hashIdx+1:], ' ')
			if end == -1 {
				end = len(line)
			} else {
				end += hashIdx + 1
			}

			directive := string(line[hashIdx+1 : end])
			atStart := bytes.HasPrefix(bytes.TrimSpace(line), dirMarker)
			arg := bytes.TrimSpace(line[end:])

			p.Log.Debug("processing directive", zap.String("directive", directive))

			switch directive {
			case "ifdef", "ifndef", "else", "endif", "enable", "shader":
				if !atStart {
					return nil, errorf(
						"%q directives must be the first non-whitespace item on their line",
						directive)
				}
			}

			switch directive {
			case "ifdef", "ifndef":
				_, exists := p.Defines[string(arg)]
				active := (directive == "ifdef") == exists
				stack = append(stack, stackItem{
					active:     active,
					elsePassed: false,
				})
				if active {
					p.Log.Debug("current branch is active", zap.String("define", string(arg)))
				} else {
					p.Log.Debug("current branch is not active", zap.String("define", string(arg)))
				}
				continue allLines

			case "else":
				// XXX shouldn't we complain about an else without a matching stack entry?
				if len(stack) > 0 {
					item := &stack[len(stack)-1]
					if item.elsePassed {
						return nil, error("second else for same ifdef/ifndef")
					} else {
						item.elsePassed = true
						item.active = !item.active
					}
				}
				if len(arg) != 0 {
					return nil, error("#else directive doesn't accept arguments")
				}
				continue allLines

			case "endif":
				if len(stack) == 0 {
					return nil, error("mismatched endif")
				}
				stack = stack[:len(stack)-1]
				// XXX if endif allows a trailing comment, then shouldn't all directives?
				if len(arg) != 0 && !bytes.HasPrefix(arg, commentMarker) {
					return nil, error("#endif directive doesn't accept arguments")
				}
				continue allLines

			case "shader":
				// Section marker for sources that keep both stages in one
				// file. It only documents structure; the marker itself is
				// dropped from the output.
				stage := string(arg)
				if stage != "vertex" && stage != "fragment" {
					return nil, errorf("unknown shader stage %q", stage)
				}
				all := true
				for _, item := range stack {
					if !item.active {
						all = false
						break
					}
				}
				if !all {
					continue allLines
				}
				if p.stages == nil {
					p.stages = make(map[string]bool)
				}
				if p.stages[stage] && !strings.HasPrefix(name, "#include ") {
					return nil, errorf("duplicate #shader %s section", stage)
				}
				p.stages[stage] = true
				continue allLines

			case "import":
				out = append(out, line[:hashIdx]...)
				if len(arg) == 0 {
					return nil, error("#import needs an argument")
				}
				var importName []byte
				importName, line, _ = bytes.Cut(arg, space)
				importSrc, err := p.getImport(string(importName))
				if err != nil {
					return nil, errorf("couldn't import %q: %w", importName, err)
				}
				all := true
				for _, item := range stack {
					if !item.active {
						all = false
						break
					}
				}
				if all {
					imported, err := p.Preprocess(importSrc, "#include "+string(importName))
					if err != nil {
						return nil, err
					}
					out = append(out, imported...)
				}

			case "enable":
				all := true
				for _, item := range stack {
					if !item.active {
						all = false
						break
					}
				}
				if all {
					out = append(out, "//__"...)
					out = append(out, line...)
					out = append(out, '\n')
				}
				continue allLines

			default:
				return nil, errorf("unknown preprocessor directive %q", directive)
			}
		}

		all := true
		for _, item := range stack {
			if !item.active {
				all = false
				break
			}
		}

		if all {
			if bytes.HasPrefix(line, let) {
				out = append(out, "const"...)
				out = append(out, line[3:]...)
			} else {
				out = append(out, line...)
			}
			out = append(out, '\n')
		}
	}

	return out, nil
}

type Permutation struct {
	Name    string
	Defines []string
}

func parsePermutations(source []byte) map[string][]Permutation {
	nl := []byte("\n")
	colon := []byte(":")
	out := make(map[string][]Permutation)
	var currentSource []byte
	for len(source) > 0 {
		var line []byte
		line, source, _ = bytes.Cut(source, nl)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if line[0] == '+' {
			line = line[1:]
			if len(currentSource) != 0 {
				parts := bytes.SplitN(line, colon, 2)
				if len(parts) == 0 {
					continue
				}
				name := string(bytes.TrimSpace(parts[0]))
				var defines []string
				if len(parts) == 2 {
					defines = strings.Fields(string(parts[1]))
				}
				out[string(currentSource)] = append(out[string(currentSource)], Permutation{name, defines})
			}
		} else {
			currentSource = line
		}
	}
	return out
}

func postprocess(src []byte) []byte {
	return bytes.ReplaceAll(src, []byte("//__#enable"), nil)
}
