package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"insider-data/internal/model"
)

// DefaultEntityFiles are tried in order when no entity file is configured.
var DefaultEntityFiles = []string{"ciks.txt", "ciks.json", "ciks.yaml"}

type entityFile struct {
	CIKs []string `yaml:"ciks"`
}

// LoadEntities reads entity identifiers from a .txt (one per line, # comments),
// .json (array of strings) or .yaml/.yml (ciks: [...]) file. Identifiers are
// normalized and deduplicated in file order.
func LoadEntities(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity file %s: %w", path, err)
	}

	var raw []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	case ".yaml", ".yml":
		var f entityFile
		if err := yaml.Unmarshal(content, &f); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
		raw = f.CIKs
	case ".txt", "":
		raw = parseEntitiesFromText(string(content))
	default:
		return nil, fmt.Errorf("unsupported entity file extension %q (use .txt, .json or .yaml)", filepath.Ext(path))
	}
	return uniqueEntities(raw), nil
}

func parseEntitiesFromText(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

func uniqueEntities(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range raw {
		eid := model.NormalizeEID(r)
		if eid == "" || seen[eid] {
			continue
		}
		seen[eid] = true
		out = append(out, eid)
	}
	return out
}

// ResolveEntities returns args when given, else the configured entity file,
// else the first default file that exists.
func ResolveEntities(args []string, file string) ([]string, error) {
	if len(args) > 0 {
		return uniqueEntities(args), nil
	}
	if file != "" {
		return LoadEntities(file)
	}
	for _, p := range DefaultEntityFiles {
		if _, err := os.Stat(p); err == nil {
			slog.Info("found entity file", "path", p)
			return LoadEntities(p)
		}
	}
	return nil, fmt.Errorf("no entities: pass EIDs, set CIKS_FILE or create one of %s", strings.Join(DefaultEntityFiles, ", "))
}
