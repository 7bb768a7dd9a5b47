package runner

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToolchainOverride replaces the argv templates for one language. Each argv
// element may contain the placeholders {src}, {bin} and {dir}, expanded per
// invocation to the source file, the binary artifact and the workspace
// directory. A single-step override omits Compile.
type ToolchainOverride struct {
	Compile []string `yaml:"compile"`
	Run     []string `yaml:"run"`
}

// Toolchains maps language identifiers to overrides, letting a deployment
// point at alternate interpreter or compiler paths without rebuilding.
type Toolchains map[string]ToolchainOverride

// LoadToolchains reads toolchain overrides from a YAML file.
func LoadToolchains(path string) (Toolchains, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading toolchains %s: %w", path, err)
	}

	var tc Toolchains
	if err := yaml.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("parsing toolchains %s: %w", path, err)
	}

	for id, o := range tc {
		if len(o.Run) == 0 {
			return nil, fmt.Errorf("toolchain %q: run command is required", id)
		}
	}
	return tc, nil
}

// steps returns the override argv sequences for a language, or nil when the
// language has no override.
func (t Toolchains) steps(lang Language, dir, src, bin string) [][]string {
	o, ok := t[lang.String()]
	if !ok {
		return nil
	}
	expand := func(argv []string) []string {
		out := make([]string, len(argv))
		for i, a := range argv {
			a = strings.ReplaceAll(a, "{src}", src)
			a = strings.ReplaceAll(a, "{bin}", bin)
			a = strings.ReplaceAll(a, "{dir}", dir)
			out[i] = a
		}
		return out
	}
	var steps [][]string
	if len(o.Compile) > 0 {
		steps = append(steps, expand(o.Compile))
	}
	steps = append(steps, expand(o.Run))
	return steps
}
