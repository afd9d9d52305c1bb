package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/animus-labs/tfbridge/internal/reconcile"
	"github.com/animus-labs/tfbridge/internal/results"
)

// File is the operator YAML file. Every section is optional.
//
//	board_suffix: -ocp
//	board_aliases:
//	  rcar_s4: renesas-rcar-s4
//	reasons:
//	  ResolvingPipelineRef: queued
//	links:
//	  workdir: https://artifacts.example.com/{run_id}{suite}
//	inventory_board_types: [rcar_s4, ridesx4]
type File struct {
	BoardSuffix         *string           `yaml:"board_suffix"`
	BoardAliases        map[string]string `yaml:"board_aliases"`
	Reasons             map[string]string `yaml:"reasons"`
	Links               results.Links     `yaml:"links"`
	InventoryBoardTypes []string          `yaml:"inventory_board_types"`
}

func ReadFile(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config file: %w", err)
	}
	return ParseFile(raw)
}

func ParseFile(raw []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if len(bytes.TrimSpace(raw)) == 0 {
			return File{}, nil
		}
		return File{}, fmt.Errorf("parse config file: %w", err)
	}
	return f, nil
}

// Apply layers the file over cfg. Aliases and reasons extend the built-in
// tables.
func (f File) Apply(cfg *Config) error {
	if f.BoardSuffix != nil {
		cfg.Translate.Boards.Suffix = *f.BoardSuffix
	}
	if len(f.BoardAliases) > 0 {
		cfg.Translate.Boards = cfg.Translate.Boards.Merge(f.BoardAliases)
	}
	if len(f.Reasons) > 0 {
		if cfg.Reasons == nil {
			cfg.Reasons = make(map[string]reconcile.Verdict, len(f.Reasons))
		}
		for reason, raw := range f.Reasons {
			verdict, err := reconcile.ParseVerdict(raw)
			if err != nil {
				return fmt.Errorf("reason %q: %w", reason, err)
			}
			cfg.Reasons[reason] = verdict
		}
	}
	cfg.Links = f.Links.Merge(cfg.Links)
	if len(f.InventoryBoardTypes) > 0 {
		cfg.InventoryBoardTypes = f.InventoryBoardTypes
	}
	return nil
}
