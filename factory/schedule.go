/*
Package factory converts schedule files into rating.Schedule values.

PURPOSE:
  Rating constants change by statute, not by release. A schedule file
  (JSON or YAML) overrides any subset of the built-in schedule; omitted
  fields keep their default. The result is validated before use.

SCHEMA (YAML shown, JSON uses the same keys):
  name: default
  multiplier: 1.4
  max_pain_addon: 3
  weekly_rate: 290.00
  tiers:
    - below: 10
      multiplier: 4
    ...
  top_multiplier: 9
  life_pension:
    threshold: 70
    weekly_rate: 85.00
    max_earnings: 515.38
  failure_policy: strict   # or lenient
  default_variant: G
  miss_policies:           # below the first row of a table
    occupational: fallback_to_nearest   # or raise_on_miss
    age: fallback_to_nearest

USAGE:
  f := factory.NewScheduleFactory()

  s, err := f.LoadFile("schedules/2025.yaml")
  s, err := f.LoadBuiltin("lenient")
  s, err := f.ParseJSON([]byte(`{"weekly_rate": 300}`))

SEE ALSO:
  - rating/schedule.go: Schedule type and payout calculator
  - builtin/*.yaml: Shipped schedules
*/
package factory

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/pd-rating/generic"
	"github.com/warp/pd-rating/lookup"
	"github.com/warp/pd-rating/rating"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// =============================================================================
// FILE SCHEMA TYPES
// =============================================================================

// ScheduleJSON is the file representation of a schedule. Pointer fields
// distinguish "absent" from zero.
type ScheduleJSON struct {
	Name           string            `json:"name" yaml:"name"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Multiplier     *float64          `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	MaxPainAddon   *float64          `json:"max_pain_addon,omitempty" yaml:"max_pain_addon,omitempty"`
	WeeklyRate     *float64          `json:"weekly_rate,omitempty" yaml:"weekly_rate,omitempty"`
	Tiers          []TierJSON        `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	TopMultiplier  *float64          `json:"top_multiplier,omitempty" yaml:"top_multiplier,omitempty"`
	LifePension    *LifePensionJSON  `json:"life_pension,omitempty" yaml:"life_pension,omitempty"`
	FailurePolicy  string            `json:"failure_policy,omitempty" yaml:"failure_policy,omitempty"`
	DefaultVariant string            `json:"default_variant,omitempty" yaml:"default_variant,omitempty"`
	MissPolicies   *MissPoliciesJSON `json:"miss_policies,omitempty" yaml:"miss_policies,omitempty"`
}

// TierJSON is one week-multiplier tier.
type TierJSON struct {
	Below      float64 `json:"below" yaml:"below"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// LifePensionJSON holds the life pension constants.
type LifePensionJSON struct {
	Threshold   *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	WeeklyRate  *float64 `json:"weekly_rate,omitempty" yaml:"weekly_rate,omitempty"`
	MaxEarnings *float64 `json:"max_earnings,omitempty" yaml:"max_earnings,omitempty"`
}

// MissPoliciesJSON names the miss policy of each adjustment table:
// "raise_on_miss" or "fallback_to_nearest".
type MissPoliciesJSON struct {
	Occupational string `json:"occupational,omitempty" yaml:"occupational,omitempty"`
	Age          string `json:"age,omitempty" yaml:"age,omitempty"`
}

// =============================================================================
// SCHEDULE FACTORY
// =============================================================================

// ScheduleFactory creates schedules from file definitions.
type ScheduleFactory struct{}

func NewScheduleFactory() *ScheduleFactory {
	return &ScheduleFactory{}
}

// ParseJSON parses a JSON schedule.
func (f *ScheduleFactory) ParseJSON(data []byte) (rating.Schedule, error) {
	var sj ScheduleJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return rating.Schedule{}, fmt.Errorf("invalid schedule JSON: %w", err)
	}
	return f.Build(sj)
}

// ParseYAML parses a YAML schedule.
func (f *ScheduleFactory) ParseYAML(data []byte) (rating.Schedule, error) {
	var sj ScheduleJSON
	if err := yaml.Unmarshal(data, &sj); err != nil {
		return rating.Schedule{}, fmt.Errorf("invalid schedule YAML: %w", err)
	}
	return f.Build(sj)
}

// LoadFile reads a schedule file; ".json" is parsed as JSON, anything else
// as YAML.
func (f *ScheduleFactory) LoadFile(path string) (rating.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rating.Schedule{}, fmt.Errorf("read schedule: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return f.ParseJSON(data)
	}
	return f.ParseYAML(data)
}

// LoadBuiltin loads a shipped schedule by name ("default", "lenient").
func (f *ScheduleFactory) LoadBuiltin(name string) (rating.Schedule, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return rating.Schedule{}, fmt.Errorf("unknown schedule %q: %w", name, err)
	}
	return f.ParseYAML(data)
}

// Builtins lists the shipped schedule names, sorted.
func Builtins() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if n, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Build overlays sj on the default schedule and validates the result.
func (f *ScheduleFactory) Build(sj ScheduleJSON) (rating.Schedule, error) {
	s := rating.DefaultSchedule()

	if sj.Name != "" {
		s.Name = sj.Name
	}
	setDecimal(&s.Multiplier, sj.Multiplier)
	setDecimal(&s.MaxPainAddon, sj.MaxPainAddon)
	setDecimal(&s.WeeklyRate, sj.WeeklyRate)
	setDecimal(&s.TopMultiplier, sj.TopMultiplier)

	if len(sj.Tiers) > 0 {
		s.Tiers = make([]rating.Tier, len(sj.Tiers))
		for i, t := range sj.Tiers {
			s.Tiers[i] = rating.Tier{
				Below:      decimal.NewFromFloat(t.Below),
				Multiplier: decimal.NewFromFloat(t.Multiplier),
			}
		}
	}

	if lp := sj.LifePension; lp != nil {
		setDecimal(&s.LifePension.Threshold, lp.Threshold)
		setDecimal(&s.LifePension.WeeklyRate, lp.WeeklyRate)
		setDecimal(&s.LifePension.MaxEarnings, lp.MaxEarnings)
	}

	if sj.FailurePolicy != "" {
		p, err := rating.ParseFailurePolicy(strings.ToLower(sj.FailurePolicy))
		if err != nil {
			return rating.Schedule{}, err
		}
		s.FailurePolicy = p
	}
	if sj.DefaultVariant != "" {
		v, err := lookup.ParseVariant(sj.DefaultVariant)
		if err != nil {
			return rating.Schedule{}, fmt.Errorf("default_variant: %w", err)
		}
		s.DefaultVariant = v
	}

	if mp := sj.MissPolicies; mp != nil {
		if err := setMissPolicy(&s.MissPolicies.Occupational, "miss_policies.occupational", mp.Occupational); err != nil {
			return rating.Schedule{}, err
		}
		if err := setMissPolicy(&s.MissPolicies.Age, "miss_policies.age", mp.Age); err != nil {
			return rating.Schedule{}, err
		}
	}

	if err := s.Validate(); err != nil {
		return rating.Schedule{}, err
	}
	return s, nil
}

func setMissPolicy(dst *generic.MissPolicy, field, v string) error {
	if v == "" {
		return nil
	}
	p, err := generic.ParseMissPolicy(v)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = p
	return nil
}

func setDecimal(dst *decimal.Decimal, v *float64) {
	if v != nil {
		*dst = decimal.NewFromFloat(*v)
	}
}

// ToJSON converts a schedule back to its file representation.
func ToJSON(s rating.Schedule) ScheduleJSON {
	f := func(d decimal.Decimal) *float64 {
		v := d.InexactFloat64()
		return &v
	}
	sj := ScheduleJSON{
		Name:          s.Name,
		Multiplier:    f(s.Multiplier),
		MaxPainAddon:  f(s.MaxPainAddon),
		WeeklyRate:    f(s.WeeklyRate),
		TopMultiplier: f(s.TopMultiplier),
		LifePension: &LifePensionJSON{
			Threshold:   f(s.LifePension.Threshold),
			WeeklyRate:  f(s.LifePension.WeeklyRate),
			MaxEarnings: f(s.LifePension.MaxEarnings),
		},
		FailurePolicy:  string(s.FailurePolicy),
		DefaultVariant: string(s.DefaultVariant),
		MissPolicies: &MissPoliciesJSON{
			Occupational: s.MissPolicies.Occupational.String(),
			Age:          s.MissPolicies.Age.String(),
		},
	}
	for _, t := range s.Tiers {
		sj.Tiers = append(sj.Tiers, TierJSON{
			Below:      t.Below.InexactFloat64(),
			Multiplier: t.Multiplier.InexactFloat64(),
		})
	}
	return sj
}
