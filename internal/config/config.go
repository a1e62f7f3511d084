// Package config loads machine definitions from YAML and builds machines
// from them. The file format mirrors the programmatic API: a state list, an
// optional initial state and mirror entity, and a transition list whose
// trigger clauses pick one of the built-in trigger kinds.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/arborhq/arbor"
	"github.com/arborhq/arbor/pkg/domain"
	"github.com/arborhq/arbor/pkg/ports"
)

// ErrInvalid marks a machine definition that parsed as YAML but does not
// describe a buildable machine.
var ErrInvalid = errors.New("invalid machine definition")

// Config is a machine definition.
type Config struct {
	Name        string         `yaml:"name"`
	States      []domain.State `yaml:"states"`
	Initial     domain.State   `yaml:"initial"`
	Mirror      domain.Entity  `yaml:"mirror"`
	Transitions []Transition   `yaml:"transitions"`
}

// Transition is one transition clause. From accepts a single state, a state
// list, or "any".
type Transition struct {
	From    StateList      `yaml:"from"`
	Trigger map[string]any `yaml:"trigger"`
	To      domain.State   `yaml:"to"`
}

// StateList unmarshals from either a YAML scalar or a sequence.
type StateList []domain.State

func (l *StateList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s domain.State
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StateList{s}
		return nil
	case yaml.SequenceNode:
		var states []domain.State
		if err := node.Decode(&states); err != nil {
			return err
		}
		*l = StateList(states)
		return nil
	default:
		return fmt.Errorf("from: expected state or state list")
	}
}

// triggerSpec is the decoded form of a trigger clause.
type triggerSpec struct {
	Type     string        `mapstructure:"type"`
	Entity   domain.Entity `mapstructure:"entity"`
	Value    string        `mapstructure:"value"`
	Duration time.Duration `mapstructure:"duration"`
}

// Load reads and parses a machine definition file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read machine definition: %w", err)
	}
	return Parse(data)
}

// Parse parses a machine definition.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse machine definition: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.States) == 0 {
		return fmt.Errorf("%w: no states declared", ErrInvalid)
	}
	for i, tr := range c.Transitions {
		if len(tr.From) == 0 {
			return fmt.Errorf("%w: transition %d: missing from", ErrInvalid, i)
		}
		if tr.To == "" {
			return fmt.Errorf("%w: transition %d: missing to", ErrInvalid, i)
		}
		if _, err := buildTrigger(tr.Trigger); err != nil {
			return fmt.Errorf("transition %d: %w", i, err)
		}
	}
	return nil
}

// Build constructs a machine on bus and timers from the definition. Extra
// options are applied after the definition's own, so callers can attach
// loggers and hooks.
func (c *Config) Build(bus ports.EntityBus, timers ports.TimerService, opts ...arbor.Option) (*arbor.Machine, error) {
	var options []arbor.Option
	if c.Initial != "" {
		options = append(options, arbor.WithInitial(c.Initial))
	}
	if c.Mirror != "" {
		options = append(options, arbor.WithMirror(c.Mirror))
	}
	options = append(options, opts...)

	machine, err := arbor.New(c.States, bus, timers, options...)
	if err != nil {
		return nil, err
	}

	for i, tr := range c.Transitions {
		trigger, err := buildTrigger(tr.Trigger)
		if err != nil {
			return nil, fmt.Errorf("transition %d: %w", i, err)
		}
		from := make([]domain.State, len(tr.From))
		for j, s := range tr.From {
			if s == "any" {
				s = domain.Any
			}
			from[j] = s
		}
		if err := machine.AddTransitions(from, []domain.Trigger{trigger}, tr.To, nil); err != nil {
			return nil, fmt.Errorf("transition %d: %w", i, err)
		}
	}
	return machine, nil
}

func buildTrigger(clause map[string]any) (domain.Trigger, error) {
	if clause == nil {
		return nil, fmt.Errorf("%w: missing trigger", ErrInvalid)
	}

	var spec triggerSpec
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &spec,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(clause); err != nil {
		return nil, fmt.Errorf("%w: trigger: %v", ErrInvalid, err)
	}

	switch spec.Type {
	case "on":
		if spec.Entity == "" {
			return nil, fmt.Errorf("%w: %q trigger needs an entity", ErrInvalid, spec.Type)
		}
		return domain.StateOn(spec.Entity), nil
	case "off":
		if spec.Entity == "" {
			return nil, fmt.Errorf("%w: %q trigger needs an entity", ErrInvalid, spec.Type)
		}
		return domain.StateOff(spec.Entity), nil
	case "eq":
		if spec.Entity == "" {
			return nil, fmt.Errorf("%w: %q trigger needs an entity", ErrInvalid, spec.Type)
		}
		return domain.StateEq(spec.Entity, spec.Value), nil
	case "neq":
		if spec.Entity == "" {
			return nil, fmt.Errorf("%w: %q trigger needs an entity", ErrInvalid, spec.Type)
		}
		return domain.StateNeq(spec.Entity, spec.Value), nil
	case "timeout":
		if spec.Duration <= 0 {
			return nil, fmt.Errorf("%w: timeout trigger needs a positive duration", ErrInvalid)
		}
		return domain.Timeout(spec.Duration), nil
	default:
		return nil, fmt.Errorf("%w: unknown trigger type %q", ErrInvalid, spec.Type)
	}
}
