package resource

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/ridleywinters/raiment-shell/game/combat"
)

var (
	// ErrMissingField is wrapped by load errors for a required field that is absent.
	ErrMissingField = errors.New("resource: missing required field")
	// ErrInvalidField is wrapped by load errors for a field with an unusable value.
	ErrInvalidField = errors.New("resource: invalid field")
	// ErrUnknownActorType is wrapped when a spawn entry names a type not in the catalogue.
	ErrUnknownActorType = errors.New("resource: unknown actor type")
)

// Defaults applied to optional ActorDefinition fields.
const (
	DefaultBehavior       = "wander"
	DefaultSpeed          = 1.0
	DefaultAttackRange    = 4.0
	DefaultAttackCooldown = 1.2
)

// ActorDefinition is the immutable template for one actor type.
type ActorDefinition struct {
	Name      string
	Sprite    string
	Scale     float64
	MaxHealth float64
	OnHit     string
	OnDeath   string

	Behavior       string
	Speed          float64
	AttackDamage   int
	AttackRange    float64
	AttackCooldown float64

	Armor              int
	PhysicalResistance float64
	Resistances        map[combat.DamageKind]float64
}

// Defences returns a fresh copy of the definition's mitigation stats.
func (d *ActorDefinition) Defences() combat.Defences {
	out := combat.Defences{Armor: d.Armor}
	out.SetResistance(combat.Physical, d.PhysicalResistance)
	for k, v := range d.Resistances {
		out.SetResistance(k, v)
	}
	return out
}

// actorDefinitionFile mirrors the YAML layout. Pointers tell "absent" apart
// from a zero value.
type actorDefinitionFile struct {
	Sprite    *string  `yaml:"sprite"`
	Scale     *float64 `yaml:"scale"`
	MaxHealth *float64 `yaml:"max_health"`
	OnHit     *string  `yaml:"on_hit"`
	OnDeath   *string  `yaml:"on_death"`

	Behavior       *string  `yaml:"behavior"`
	Speed          *float64 `yaml:"speed"`
	AttackDamage   *int     `yaml:"attack_damage"`
	AttackRange    *float64 `yaml:"attack_range"`
	AttackCooldown *float64 `yaml:"attack_cooldown"`

	Armor              *int               `yaml:"armor"`
	PhysicalResistance *float64           `yaml:"physical_resistance"`
	Resistances        map[string]float64 `yaml:"resistances"`
}

type catalogueFile struct {
	Actors map[string]actorDefinitionFile `yaml:"actors"`
}

// Catalogue is a read-only set of actor definitions keyed by type name.
// It is never mutated after construction; rebalancing swaps a whole
// Catalogue through a Store.
type Catalogue struct {
	defs map[string]*ActorDefinition
}

// NewCatalogue builds a Catalogue from already validated definitions.
func NewCatalogue(defs ...*ActorDefinition) *Catalogue {
	c := &Catalogue{defs: make(map[string]*ActorDefinition, len(defs))}
	for _, d := range defs {
		c.defs[d.Name] = d
	}
	return c
}

// Lookup returns the definition for name.
func (c *Catalogue) Lookup(name string) (*ActorDefinition, bool) {
	if c == nil {
		return nil, false
	}
	d, ok := c.defs[name]
	return d, ok
}

// Names returns the type names in sorted order.
func (c *Catalogue) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.defs))
	for k := range c.defs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of definitions.
func (c *Catalogue) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}

// LoadCatalogue reads an actor catalogue YAML file.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", path, err)
	}
	c, err := ParseCatalogue(data)
	if err != nil {
		return nil, fmt.Errorf("resource: load %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalogue decodes catalogue YAML. Every problem in the document is
// reported, not just the first.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("resource: parse catalogue: %w", err)
	}

	names := make([]string, 0, len(f.Actors))
	for name := range f.Actors {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	defs := make([]*ActorDefinition, 0, len(names))
	for _, name := range names {
		d, err := f.Actors[name].build(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		defs = append(defs, d)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewCatalogue(defs...), nil
}

func (f actorDefinitionFile) build(name string) (*ActorDefinition, error) {
	var errs []error
	missing := func(field string) {
		errs = append(errs, fmt.Errorf("actor %q: %w: %s", name, ErrMissingField, field))
	}
	invalid := func(field, why string) {
		errs = append(errs, fmt.Errorf("actor %q: %w: %s %s", name, ErrInvalidField, field, why))
	}
	// finite rejects .nan and .inf, which slip past every ordered comparison.
	finite := func(field string, v float64) bool {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			invalid(field, "must be a finite number")
			return false
		}
		return true
	}

	d := &ActorDefinition{
		Name:           name,
		Behavior:       DefaultBehavior,
		Speed:          DefaultSpeed,
		AttackRange:    DefaultAttackRange,
		AttackCooldown: DefaultAttackCooldown,
	}

	// ① required
	if f.Sprite == nil {
		missing("sprite")
	} else {
		d.Sprite = *f.Sprite
	}
	if f.Scale == nil {
		missing("scale")
	} else if finite("scale", *f.Scale) {
		d.Scale = *f.Scale
	}
	switch {
	case f.MaxHealth == nil:
		missing("max_health")
	case !finite("max_health", *f.MaxHealth):
	case *f.MaxHealth <= 0:
		invalid("max_health", "must be positive")
	default:
		d.MaxHealth = *f.MaxHealth
	}
	if f.OnHit == nil {
		missing("on_hit")
	} else {
		d.OnHit = *f.OnHit
	}
	if f.OnDeath == nil {
		missing("on_death")
	} else {
		d.OnDeath = *f.OnDeath
	}

	// ② optional
	if f.Behavior != nil {
		d.Behavior = *f.Behavior
	}
	if f.Speed != nil && finite("speed", *f.Speed) {
		if *f.Speed < 0 {
			invalid("speed", "must not be negative")
		}
		d.Speed = *f.Speed
	}
	if f.AttackDamage != nil {
		if *f.AttackDamage < 0 {
			invalid("attack_damage", "must not be negative")
		}
		d.AttackDamage = *f.AttackDamage
	}
	if f.AttackRange != nil && finite("attack_range", *f.AttackRange) {
		d.AttackRange = *f.AttackRange
	}
	if f.AttackCooldown != nil && finite("attack_cooldown", *f.AttackCooldown) {
		if *f.AttackCooldown <= 0 {
			invalid("attack_cooldown", "must be positive")
		}
		d.AttackCooldown = *f.AttackCooldown
	}

	// ③ mitigation, clamped here so nothing downstream sees out-of-range values
	if f.Armor != nil {
		d.Armor = *f.Armor
	}
	if f.PhysicalResistance != nil && finite("physical_resistance", *f.PhysicalResistance) {
		d.PhysicalResistance = combat.Clamp01(*f.PhysicalResistance)
	}
	for kindName, v := range f.Resistances {
		kind, ok := combat.ParseDamageKind(kindName)
		if !ok {
			invalid("resistances", fmt.Sprintf("has unknown damage kind %q", kindName))
			continue
		}
		if !finite("resistances."+kindName, v) {
			continue
		}
		if kind == combat.Physical {
			d.PhysicalResistance = combat.Clamp01(v)
			continue
		}
		if d.Resistances == nil {
			d.Resistances = make(map[combat.DamageKind]float64)
		}
		d.Resistances[kind] = combat.Clamp01(v)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return d, nil
}

// Store holds the active Catalogue. Readers always see a complete catalogue.
type Store struct {
	cur atomic.Pointer[Catalogue]
}

// NewStore returns a Store serving c.
func NewStore(c *Catalogue) *Store {
	s := &Store{}
	s.cur.Store(c)
	return s
}

// Current returns the active catalogue.
func (s *Store) Current() *Catalogue { return s.cur.Load() }

// Swap installs c and returns the previous catalogue. A nil c is ignored.
func (s *Store) Swap(c *Catalogue) *Catalogue {
	if c == nil {
		return s.cur.Load()
	}
	return s.cur.Swap(c)
}

// Reload loads path and installs it only if it is valid.
func (s *Store) Reload(path string) error {
	c, err := LoadCatalogue(path)
	if err != nil {
		return err
	}
	s.Swap(c)
	return nil
}
