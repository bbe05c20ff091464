// Copyright 2023 the Vello Authors
// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Command compile-shaders preprocesses the WGSL sources under a source
// directory into the self-contained modules that get embedded into the
// shaders package. It resolves #import and #ifdef directives, expands
// permutations, and checks that sources with #shader markers define both a
// vertex and a fragment stage.
package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var (
		in      string
		out     string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:           "compile-shaders --in <dir> --out <dir>",
		Short:         "Preprocess WGSL shader sources",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewDevelopmentConfig()
			if !verbose {
				cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
			} else {
				cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			}
			log, err := cfg.Build()
			if err != nil {
				return err
			}
			defer log.Sync()
			return compile(in, out, log)
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "Path to `directory` to process")
	cmd.Flags().StringVar(&out, "out", "./out", "Path to output `directory`")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Be verbose")
	cmd.MarkFlagRequired("in")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func compile(in, out string, log *zap.Logger) error {
	var permutations map[string][]Permutation
	permSource, err := os.ReadFile(filepath.Join(in, "permutations"))
	switch err {
	case nil:
		permutations = parsePermutations(permSource)
	case io.EOF:
		log.Debug("didn't find permutations")
	default:
		if os.IsNotExist(err) {
			log.Debug("didn't find permutations")
			break
		}
		return fmt.Errorf("couldn't read permutations: %w", err)
	}

	defaultDefines := map[string]struct{}{"full": {}}

	p := Preprocessor{
		ImportDir: filepath.Join(in, "shared"),
		Log:       log,
	}

	matches, err := filepath.Glob(filepath.Join(in, "*.wgsl"))
	if err != nil {
		panic(err)
	}

	if err := os.MkdirAll(out, 0777); err != nil {
		return fmt.Errorf("couldn't create output directory: %w", err)
	}

	write := func(src []byte, name string) error {
		if !strings.HasSuffix(name, ".wgsl") {
			name += ".wgsl"
		}
		return os.WriteFile(filepath.Join(out, name), src, 0666)
	}

	one := func(src []byte, inName, outName string, defines map[string]struct{}) error {
		p.Defines = defines
		processed, err := p.Preprocess(src, inName)
		if err != nil {
			return fmt.Errorf("couldn't preprocess source: %w", err)
		}
		if err := p.CheckStages(); err != nil {
			return fmt.Errorf("%s: %w", inName, err)
		}
		return write(postprocess(processed), outName)
	}

	for _, m := range matches {
		log.Info("compiling shader", zap.String("file", filepath.Base(m)))
		src, err := os.ReadFile(m)
		if err != nil {
			return fmt.Errorf("couldn't read %q: %w", m, err)
		}

		shaderName := strings.TrimSuffix(filepath.Base(m), ".wgsl")
		if perms, ok := permutations[shaderName]; ok {
			for _, perm := range perms {
				defines := maps.Clone(defaultDefines)
				for _, d := range perm.Defines {
					defines[d] = struct{}{}
				}
				log.Debug("preprocessing permutation",
					zap.String("name", perm.Name),
					zap.Strings("defines", perm.Defines))
				if err := one(src, perm.Name, perm.Name, defines); err != nil {
					return err
				}
			}
		} else {
			if err := one(src, m, filepath.Base(m), defaultDefines); err != nil {
				return err
			}
		}
	}
	return nil
}
