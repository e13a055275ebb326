package harness

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is a named sequence of calls replayed against a live session.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step invokes exactly one of Call (a tool, via tools/call) or Method (a
// raw JSON-RPC method). Args feed the tool call; Params feed the raw
// method.
type Step struct {
	Call   string         `yaml:"call,omitempty"`
	Method string         `yaml:"method,omitempty"`
	Args   map[string]any `yaml:"args,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`
	Expect *Expect        `yaml:"expect,omitempty"`
}

// Expect constrains a step's outcome. At most one of Text, JSON or Error
// may be set; a step without an expect block only requires the call to
// succeed.
type Expect struct {
	// Text must equal the tool result's text payload exactly.
	Text string `yaml:"text,omitempty"`
	// JSON is compared structurally, so key order and whitespace do not
	// matter.
	JSON string `yaml:"json,omitempty"`
	// Error requires the step to fail with a matching server error.
	Error *ErrorMatch `yaml:"error,omitempty"`
}

// ErrorMatch matches a server-reported error. A zero Code matches any
// code; Message matches as a substring.
type ErrorMatch struct {
	Code    int    `yaml:"code,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// target names what the step invokes, for reports and logs.
func (s Step) target() string {
	if s.Call != "" {
		return s.Call
	}
	return s.Method
}

// Load reads one scenario from a YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &sc, nil
}

// LoadDir reads every .yaml and .yml file in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		sc, err := Load(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return errors.New("scenario has no name")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}

	for i, step := range s.Steps {
		switch {
		case step.Call == "" && step.Method == "":
			return fmt.Errorf("step %d: one of call or method is required", i+1)
		case step.Call != "" && step.Method != "":
			return fmt.Errorf("step %d: call and method are mutually exclusive", i+1)
		}

		if step.Expect == nil {
			continue
		}
		set := 0
		if step.Expect.Text != "" {
			set++
		}
		if step.Expect.JSON != "" {
			set++
		}
		if step.Expect.Error != nil {
			set++
		}
		if set > 1 {
			return fmt.Errorf("step %d: expect allows one of text, json or error", i+1)
		}
		if step.Method != "" && step.Expect.Text != "" {
			return fmt.Errorf("step %d: text expectations apply to tool calls only", i+1)
		}
	}
	return nil
}
