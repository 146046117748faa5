package cards

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Card is an anonymous card in a deck or discard pile.
type Card struct {
	Protocol string `json:"protocol"`
	Value    int    `json:"value"`
}

// Name returns the printed name, e.g. "Fire-3".
func (c Card) Name() string {
	return fmt.Sprintf("%s-%d", c.Protocol, c.Value)
}

// CardDef is the printed definition of a card.
type CardDef struct {
	Protocol string `yaml:"-" json:"protocol"`
	Value    int    `yaml:"value" json:"value"`
	// FaceDownValue, when set, is the value of its owner's face-down cards in
	// the same lane while this card is face-up.
	FaceDownValue int         `yaml:"faceDownValue,omitempty" json:"faceDownValue,omitempty"`
	Effects       []EffectDef `yaml:"effects,omitempty" json:"effects,omitempty"`
}

// Name returns the printed name of the card.
func (d CardDef) Name() string {
	return Card{Protocol: d.Protocol, Value: d.Value}.Name()
}

// EffectsAt returns the card's effects printed in the given text box.
func (d CardDef) EffectsAt(pos Position) []EffectDef {
	var out []EffectDef
	for _, eff := range d.Effects {
		if eff.Position == pos {
			out = append(out, eff)
		}
	}
	return out
}

type catalogFile struct {
	Protocols []struct {
		Name  string    `yaml:"name"`
		Cards []CardDef `yaml:"cards"`
	} `yaml:"protocols"`
}

type cardKey struct {
	protocol string
	value    int
}

// Catalog is an immutable set of card definitions.
type Catalog struct {
	protocols []string
	cards     map[cardKey]CardDef
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	var defs []CardDef
	for _, p := range file.Protocols {
		for _, def := range p.Cards {
			def.Protocol = p.Name
			defs = append(defs, def)
		}
	}
	return NewCatalog(defs)
}

// NewCatalog builds a catalog from definitions. Legacy effect names are
// normalized and effect IDs assigned.
func NewCatalog(defs []CardDef) (*Catalog, error) {
	c := &Catalog{cards: make(map[cardKey]CardDef, len(defs))}
	seen := map[string]bool{}
	var errs error
	for _, def := range defs {
		key := cardKey{def.Protocol, def.Value}
		if def.Protocol == "" {
			errs = multierr.Append(errs, fmt.Errorf("card with value %d has no protocol", def.Value))
			continue
		}
		if _, dup := c.cards[key]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate card %s", def.Name()))
			continue
		}
		effects := make([]EffectDef, len(def.Effects))
		for i, eff := range def.Effects {
			eff = normalize(eff.Clone())
			assignIDs(&eff, fmt.Sprintf("%s/%d", def.Name(), i))
			if err := validate(eff); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", def.Name(), err))
			}
			effects[i] = eff
		}
		def.Effects = effects
		c.cards[key] = def
		if !seen[def.Protocol] {
			seen[def.Protocol] = true
			c.protocols = append(c.protocols, def.Protocol)
		}
	}
	if errs != nil {
		return nil, errs
	}
	sort.Strings(c.protocols)
	return c, nil
}

// Protocols returns every protocol in the catalog, sorted.
func (c *Catalog) Protocols() []string {
	out := make([]string, len(c.protocols))
	copy(out, c.protocols)
	return out
}

// Card returns the definition for a protocol and value.
func (c *Catalog) Card(protocol string, value int) (CardDef, bool) {
	def, ok := c.cards[cardKey{protocol, value}]
	return def, ok
}

// FaceDownValue returns the face-down value modifier printed on a card, or 0.
func (c *Catalog) FaceDownValue(protocol string, value int) int {
	return c.cards[cardKey{protocol, value}].FaceDownValue
}

// Deck returns one copy of every card of the given protocols, ordered by
// protocol then value.
func (c *Catalog) Deck(protocols ...string) ([]Card, error) {
	var deck []Card
	for _, p := range protocols {
		var values []int
		for key := range c.cards {
			if key.protocol == p {
				values = append(values, key.value)
			}
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("unknown protocol %q", p)
		}
		sort.Ints(values)
		for _, v := range values {
			deck = append(deck, Card{Protocol: p, Value: v})
		}
	}
	return deck, nil
}

// Defs returns every definition, ordered by protocol then value.
func (c *Catalog) Defs() []CardDef {
	out := make([]CardDef, 0, len(c.cards))
	for _, def := range c.cards {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Protocol != out[j].Protocol {
			return out[i].Protocol < out[j].Protocol
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func assignIDs(eff *EffectDef, id string) {
	if eff.ID == "" {
		eff.ID = id
	}
	if eff.Then != nil && eff.Then.Effect != nil {
		inner := normalize(*eff.Then.Effect)
		assignIDs(&inner, eff.ID+".then")
		eff.Then.Effect = &inner
	}
}

// normalize rewrites deprecated per-card names into the generic form.
func normalize(eff EffectDef) EffectDef {
	switch eff.Action {
	case "delete_self":
		eff.Action, eff.Self = ActionDelete, true
	case "flip_self":
		eff.Action, eff.Self = ActionFlip, true
	case "return_self":
		eff.Action, eff.Self = ActionReturn, true
	case "shift_self":
		eff.Action, eff.Self = ActionShift, true
	}
	switch eff.Trigger {
	case "after_opponent_draw":
		eff.Trigger, eff.Actor = TriggerAfterDraw, ActorOpponent
	case "after_opponent_discard":
		eff.Trigger, eff.Actor = TriggerAfterDiscard, ActorOpponent
	case "on_covered", "when_covered":
		eff.Trigger = TriggerOnCover
	}
	if eff.Position == "" {
		switch {
		case eff.Trigger == TriggerNone:
			eff.Position = PositionMiddle
		default:
			eff.Position = PositionBottom
		}
	}
	if eff.Actor == "" && eff.Trigger.Reactive() {
		switch eff.Trigger {
		case TriggerOnFlip, TriggerOnCover, TriggerBeforeCompileDelete:
			eff.Actor = ActorAny
		default:
			eff.Actor = ActorSelf
		}
	}
	return eff
}

func validate(eff EffectDef) error {
	var errs error
	if !knownActions[eff.Action] {
		errs = multierr.Append(errs, fmt.Errorf("effect %s: unknown action %q", eff.ID, eff.Action))
	}
	switch eff.Position {
	case PositionMiddle:
		if eff.Trigger != TriggerNone {
			errs = multierr.Append(errs, fmt.Errorf("effect %s: middle text cannot have trigger %q", eff.ID, eff.Trigger))
		}
	case PositionTop, PositionBottom:
		if eff.Trigger != TriggerStart && eff.Trigger != TriggerEnd && !eff.Trigger.Reactive() {
			errs = multierr.Append(errs, fmt.Errorf("effect %s: unknown trigger %q", eff.ID, eff.Trigger))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("effect %s: unknown position %q", eff.ID, eff.Position))
	}
	if eff.Action == ActionPlay && eff.Source != SourceHand && eff.Source != SourceDeck {
		errs = multierr.Append(errs, fmt.Errorf("effect %s: play needs source hand or deck", eff.ID))
	}
	if eff.Then != nil {
		if eff.Then.Effect == nil {
			errs = multierr.Append(errs, fmt.Errorf("effect %s: follow-up without effect", eff.ID))
		} else {
			switch eff.Then.Type {
			case ConditionIfExecuted, ConditionIfYouDo, ConditionAfter:
			default:
				errs = multierr.Append(errs, fmt.Errorf("effect %s: unknown follow-up condition %q", eff.ID, eff.Then.Type))
			}
			errs = multierr.Append(errs, validate(*eff.Then.Effect))
		}
	}
	return errs
}
