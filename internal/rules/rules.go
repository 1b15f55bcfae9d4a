// Package rules loads rule packs from disk: directories of .cond files,
// each holding condition blocks in declaration order. Load order is
// lexical within a directory and follows the configured directory list
// across packs, so a run is reproducible from the config alone.
package rules

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"mapcraft/internal/conditions"
	"mapcraft/internal/config"
	"mapcraft/internal/keyvalues"
)

const packExt = ".cond"

// Result summarizes one load pass over the rule directories.
type Result struct {
	Conditions []*conditions.Condition
	Files      int
	// Errors collects per-file failures in lax mode; strict mode turns
	// the first of these into a hard failure instead.
	Errors []error
}

// Options steer rule loading.
type Options struct {
	Registry *conditions.Registry
	Log      *zap.Logger
	// Strict makes malformed files and unknown handler names fatal.
	Strict bool
}

// LoadDirs reads every rule pack directory in order and parses the
// conditions found there.
func LoadDirs(dirs []string, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	result := &Result{}
	for _, dir := range dirs {
		files, err := walkPackFiles(dir)
		if err != nil {
			return nil, fmt.Errorf("walking rule pack %s: %w", dir, err)
		}
		for _, path := range files {
			conds, err := loadFile(path, opts, log)
			if err != nil {
				if opts.Strict {
					return nil, err
				}
				log.Warn("skipping rule file", zap.String("file", path), zap.Error(err))
				result.Errors = append(result.Errors, err)
				continue
			}
			result.Files++
			result.Conditions = append(result.Conditions, conds...)
		}
	}
	return result, nil
}

// loadFile parses one .cond file: every top-level block is a condition.
func loadFile(path string, opts Options, log *zap.Logger) ([]*conditions.Condition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	root, err := keyvalues.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	source := filepath.ToSlash(path)
	var out []*conditions.Condition
	for i, block := range root.Children {
		if !block.IsBlock() {
			err := fmt.Errorf("%s: top-level %q is not a block", path, block.Key)
			if opts.Strict {
				return nil, err
			}
			log.Warn("skipping rule entry", zap.Error(err))
			continue
		}
		cond, err := conditions.Parse(block, true, conditions.ParseOptions{
			Registry: opts.Registry,
			Log:      log,
			Strict:   opts.Strict,
			Source:   fmt.Sprintf("%s#%d", source, i+1),
		})
		if err != nil {
			return nil, fmt.Errorf("parsing %s block %d: %w", path, i+1, err)
		}
		out = append(out, cond)
	}
	return out, nil
}

// walkPackFiles collects the pack's .cond files in lexical order.
func walkPackFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(filepath.Clean(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), packExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// BuildInfo assembles the map-wide fact sheet rules test against from
// the compile configuration.
func BuildInfo(cfg *config.CompileConfig) *conditions.MapInfo {
	info := &conditions.MapInfo{
		StyleVars:  make(map[string]bool),
		VoiceAttrs: make(map[string]bool),
		GameMode:   cfg.Game.NormalizedMode(),
		IsPreview:  cfg.Game.Preview,
	}
	for name, set := range cfg.Game.StyleVars {
		info.StyleVars[strings.ToLower(name)] = set
	}
	for _, attr := range cfg.Game.VoiceAttrs {
		info.VoiceAttrs[strings.ToLower(attr)] = true
	}
	return info
}
