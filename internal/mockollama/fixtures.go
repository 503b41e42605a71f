package mockollama

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// loadFixtures reads model-keyed response sequences from dir. A flat
// "<model>.json" file is a single response repeated for every call. A
// "<model>/" directory holds an ordered conversation: numbered files
// (1.json, 2.json, ...) are served in numeric order, and non-numbered
// names such as default.json sort after them, so the last file repeats
// once the sequence runs out. Model names may contain dots and colons;
// only the trailing ".json" is stripped.
func loadFixtures(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string][]string)
	for _, entry := range entries {
		if entry.IsDir() {
			seq, err := loadSequence(filepath.Join(dir, entry.Name()))
			if err != nil {
				return nil, err
			}
			if len(seq) > 0 {
				fixtures[entry.Name()] = append(fixtures[entry.Name()], seq...)
			}
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		content, err := readFixture(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		model := strings.TrimSuffix(entry.Name(), ".json")
		fixtures[model] = append(fixtures[model], content)
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}

func loadSequence(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sortFixtureNames(names)

	seq := make([]string, 0, len(names))
	for _, name := range names {
		content, err := readFixture(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		seq = append(seq, content)
	}
	return seq, nil
}

// sortFixtureNames orders numbered responses numerically, so 10.json
// follows 2.json, and places non-numbered names after them.
func sortFixtureNames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		ni, iNumbered := fixtureIndex(names[i])
		nj, jNumbered := fixtureIndex(names[j])
		switch {
		case iNumbered && jNumbered:
			return ni < nj
		case iNumbered:
			return true
		case jNumbered:
			return false
		default:
			return names[i] < names[j]
		}
	})
}

func fixtureIndex(name string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
	if err != nil {
		return 0, false
	}
	return n, true
}

func readFixture(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("fixture %s is not valid JSON", path)
	}
	return string(data), nil
}
