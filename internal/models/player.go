package models

import (
	"fmt"
	"math"

	"github.com/tatianab/xianxia/internal/catalog"
)

// UnassignedSpiritRoot is the spirit root before the narrator reveals one.
const UnassignedSpiritRoot = "???"

// Karma bounds.
const (
	MinKarma = -100
	MaxKarma = 100
)

// Starting values for a fresh character.
const (
	InitialMaxHP = 100
	InitialMaxQi = 100
)

// PlayerState is the cultivator's sheet.
type PlayerState struct {
	Name       string     `yaml:"name"`
	Identity   string     `yaml:"identity"`
	SpiritRoot string     `yaml:"spirit_root"`
	Realm      string     `yaml:"realm"`
	HP         int        `yaml:"hp"`
	MaxHP      int        `yaml:"max_hp"`
	Qi         int        `yaml:"qi"`
	MaxQi      int        `yaml:"max_qi"`
	Gold       int        `yaml:"gold"`
	Karma      int        `yaml:"karma"`
	Inventory  []string   `yaml:"inventory"`
	Location   string     `yaml:"location"`
	Phase      StoryPhase `yaml:"phase"`
}

// NewPlayer seeds a character from the chosen identity.
func NewPlayer(name string, identity catalog.Identity, lang catalog.Lang) PlayerState {
	text := catalog.Text(lang)
	return PlayerState{
		Name:       name,
		Identity:   identity.DisplayName(lang),
		SpiritRoot: UnassignedSpiritRoot,
		Realm:      text.InitialRealm,
		HP:         InitialMaxHP,
		MaxHP:      InitialMaxHP,
		Qi:         0,
		MaxQi:      InitialMaxQi,
		Inventory:  []string{},
		Location:   text.UnknownLocation,
		Phase:      PhaseOrigin,
	}
}

// Dead reports whether hp has run out.
func (p PlayerState) Dead() bool { return p.HP <= 0 }

// SpiritRootAssigned reports whether the narrator has already set the root.
func (p PlayerState) SpiritRootAssigned() bool {
	return p.SpiritRoot != "" && p.SpiritRoot != UnassignedSpiritRoot
}

// Validate checks the bounds every stored player must satisfy.
func (p PlayerState) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("player has no name")
	case p.MaxHP <= 0 || p.HP < 0 || p.HP > p.MaxHP:
		return fmt.Errorf("hp %d/%d out of range", p.HP, p.MaxHP)
	case p.MaxQi < 0 || p.Qi < 0 || p.Qi > p.MaxQi:
		return fmt.Errorf("qi %d/%d out of range", p.Qi, p.MaxQi)
	case p.Gold < 0:
		return fmt.Errorf("gold %d is negative", p.Gold)
	case p.Karma < MinKarma || p.Karma > MaxKarma:
		return fmt.Errorf("karma %d out of range", p.Karma)
	case !p.Phase.Valid():
		return fmt.Errorf("unknown story phase %q", p.Phase)
	}
	return nil
}

// Clone returns a copy that shares no memory with p.
func (p PlayerState) Clone() PlayerState {
	out := p
	out.Inventory = append(make([]string, 0, len(p.Inventory)), p.Inventory...)
	return out
}

// StatDelta is a partial update proposed by the narrator. Zero values mean
// "no change".
type StatDelta struct {
	HPChange        int
	QiChange        int
	GoldChange      int
	KarmaChange     int
	NewRealm        string
	NewLocation     string
	SetSpiritRoot   string
	SetStoryPhase   StoryPhase
	InventoryAdd    []string
	InventoryRemove []string
}

// ApplyUpdate merges d into p and returns the result. p is not modified.
func ApplyUpdate(p PlayerState, d StatDelta) PlayerState {
	next := p.Clone()

	next.HP = clamp(addSat(p.HP, d.HPChange), 0, p.MaxHP)
	next.Qi = clamp(addSat(p.Qi, d.QiChange), 0, p.MaxQi)
	next.Gold = max(0, addSat(p.Gold, d.GoldChange))
	next.Karma = clamp(addSat(p.Karma, d.KarmaChange), MinKarma, MaxKarma)

	if d.NewRealm != "" {
		next.Realm = d.NewRealm
	}
	if d.NewLocation != "" {
		next.Location = d.NewLocation
	}
	if d.SetSpiritRoot != "" && !p.SpiritRootAssigned() {
		next.SpiritRoot = d.SetSpiritRoot
	}
	if d.SetStoryPhase.After(p.Phase) {
		next.Phase = d.SetStoryPhase
	}

	for _, item := range d.InventoryAdd {
		if item != "" {
			next.Inventory = append(next.Inventory, item)
		}
	}
	for _, item := range d.InventoryRemove {
		next.Inventory = removeOne(next.Inventory, item)
	}

	return next
}

// IsTerminal decides game over. An hp of zero always ends the game, whatever
// the narrator says.
func IsTerminal(p PlayerState, narratorSaysOver bool) bool {
	return narratorSaysOver || p.Dead()
}

// addSat adds without wrapping, pinning at the int range.
func addSat(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}

// removeOne drops the first exact match of item.
func removeOne(items []string, item string) []string {
	for i, it := range items {
		if it == item {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}
