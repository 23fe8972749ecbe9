package blindkey

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed scripts/*.yaml
var builtinScripts embed.FS

var builtinScriptFiles = map[Mode]string{
	ModeCredentialReset: "scripts/credential_reset.yaml",
	ModeInstall:         "scripts/install.yaml",
}

// Step actions.
const (
	ActionTap    = "tap"
	ActionType   = "type"
	ActionWait   = "wait"
	ActionSpam   = "spam"
	ActionAdjust = "adjust"
	ActionSweep  = "sweep"
)

// Script is an ordered list of phases run without inspection or retry.
type Script struct {
	Name     string   `yaml:"name"`
	Ready    []string `yaml:"ready,omitempty"`
	Complete []string `yaml:"complete,omitempty"`
	Phases   []Phase  `yaml:"phases"`
}

// Phase is a status label followed by its steps.
type Phase struct {
	Title  string `yaml:"title"`
	Detail string `yaml:"detail,omitempty"`
	Steps  []Step `yaml:"steps"`
}

// Step is one side-effecting action. Which fields apply depends on Action.
type Step struct {
	Action      string   `yaml:"action"`
	Key         string   `yaml:"key,omitempty"`
	Mods        []string `yaml:"mods,omitempty"`
	Count       int      `yaml:"count,omitempty"`
	Text        string   `yaml:"text,omitempty"`
	DelayMS     int      `yaml:"delay_ms,omitempty"`
	DurationMS  int      `yaml:"duration_ms,omitempty"`
	Countdown   bool     `yaml:"countdown,omitempty"`
	Title       string   `yaml:"title,omitempty"`
	InitialMS   int      `yaml:"initial_ms,omitempty"`
	ExtensionMS int      `yaml:"extension_ms,omitempty"`
}

func (st Step) delay() time.Duration {
	return time.Duration(st.DelayMS) * time.Millisecond
}

func (st Step) duration() time.Duration {
	return time.Duration(st.DurationMS) * time.Millisecond
}

func (st Step) count() int {
	if st.Count <= 0 {
		return 1
	}
	return st.Count
}

func (st Step) chord() (Chord, error) {
	return ParseChord(st.Key, st.Mods)
}

// ParseScript decodes a YAML script. Unknown fields are rejected.
func ParseScript(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding script: %w", err)
	}
	return &s, nil
}

// LoadScriptFile reads and decodes a script from disk.
func LoadScriptFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// BuiltinScript returns the embedded script for a payload mode.
func BuiltinScript(m Mode) (*Script, error) {
	file, ok := builtinScriptFiles[m]
	if !ok {
		return nil, fmt.Errorf("no script for mode %s", m)
	}
	data, err := builtinScripts.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

// Validate checks every step and every ${name} reference against vars.
func (s *Script) Validate(vars map[string]string) error {
	if s.Name == "" {
		return errors.New("script name is required")
	}
	if len(s.Phases) == 0 {
		return fmt.Errorf("script %q has no phases", s.Name)
	}
	for i, p := range s.Phases {
		if p.Title == "" {
			return fmt.Errorf("script %q phase %d: title is required", s.Name, i+1)
		}
		for j, st := range p.Steps {
			if err := st.validate(vars); err != nil {
				return fmt.Errorf("script %q phase %d (%s) step %d: %w", s.Name, i+1, p.Title, j+1, err)
			}
		}
	}
	return nil
}

func (st Step) validate(vars map[string]string) error {
	if st.Count < 0 || st.DelayMS < 0 || st.DurationMS < 0 || st.InitialMS < 0 || st.ExtensionMS < 0 {
		return errors.New("counts and durations must not be negative")
	}
	switch st.Action {
	case ActionTap, ActionSpam:
		if _, err := st.chord(); err != nil {
			return err
		}
		if st.Action == ActionSpam && st.DurationMS == 0 {
			return errors.New("spam needs duration_ms")
		}
	case ActionType:
		if st.Text == "" {
			return errors.New("type needs text")
		}
		text, err := expandVars(st.Text, vars)
		if err != nil {
			return err
		}
		for i := 0; i < len(text); i++ {
			if _, ok := charChord(text[i]); !ok {
				return fmt.Errorf("text has a character with no key at offset %d", i)
			}
		}
	case ActionWait:
		if st.DurationMS == 0 {
			return errors.New("wait needs duration_ms")
		}
	case ActionAdjust:
		if st.Key != "" {
			if _, err := st.chord(); err != nil {
				return err
			}
		}
	case ActionSweep:
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}

// expandVars substitutes ${name} references and fails on undefined names.
func expandVars(text string, vars map[string]string) (string, error) {
	var missing []string
	out := os.Expand(text, func(name string) string {
		v, ok := vars[name]
		if !ok || v == "" {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("undefined script variables %v", missing)
	}
	return out, nil
}

// Describe lists the phase labels with their step counts.
func (s *Script) Describe() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(s.Phases))
	for i, p := range s.Phases {
		out = append(out, map[string]interface{}{
			"index":  i + 1,
			"title":  p.Title,
			"detail": p.Detail,
			"steps":  len(p.Steps),
		})
	}
	return out
}
