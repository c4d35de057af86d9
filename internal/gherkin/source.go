package gherkin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"specrun/pkg/logging"
)

// LoadFeatures reads and parses every feature file named by paths. A path
// may be a single file or a directory, which is walked recursively for
// "*.feature" files in lexical order. The order of the returned features
// follows the order of the path arguments.
//
// Any syntax error is fatal: when one or more files fail to parse, the
// returned error is a ParseErrors covering all of them and no features are
// returned, since a partial plan must never execute.
func LoadFeatures(paths ...string) ([]*Feature, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("reading features from %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".feature") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", path, err)
		}
	}

	var feats []*Feature
	var parseErrs ParseErrors
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		feat, err := Parse(file, src)
		if err != nil {
			var pe ParseErrors
			if errors.As(err, &pe) {
				parseErrs = append(parseErrs, pe...)
				continue
			}
			return nil, err
		}
		if feat == nil {
			// comments-only file
			continue
		}
		logging.Debug("Parser", "Parsed %s: %d scenario(s)", file, len(feat.Scenarios))
		feats = append(feats, feat)
	}
	if len(parseErrs) > 0 {
		return nil, parseErrs
	}
	return feats, nil
}
