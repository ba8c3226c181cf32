package effects

import "math"

// Indefinite is the duration sentinel for "apply forever, no timer". As a
// duration contribution any negative amount means the same thing.
const Indefinite = -1

// ModifierCollection accumulates the contributions listeners make during one
// collection pass. Durations are in milliseconds.
//
// A duration contribution only counts when it is strictly below the running
// shortest duration. Negative and zero contributions set their flags under
// that same gate without lowering the shortest duration, so results depend
// on contribution order.
type ModifierCollection struct {
	baseMagnitude float64
	baseDuration  float64

	magnitudeModifiers   []float64
	magnitudeMultipliers []float64
	durationModifiers    []float64
	durationMultipliers  []float64

	shortestDuration float64
	shortestOwner    Identity
	hasInfinite      bool
	infiniteOwner    Identity
	hasZero          bool
	zeroOwner        Identity

	consumed bool
}

// NewModifierCollection creates an empty collection over the given base values
func NewModifierCollection(baseMagnitude, baseDuration float64) *ModifierCollection {
	return &ModifierCollection{
		baseMagnitude:    baseMagnitude,
		baseDuration:     baseDuration,
		shortestDuration: math.Inf(1),
	}
}

// AddMagnitudeModifier contributes an additive magnitude amount
func (c *ModifierCollection) AddMagnitudeModifier(amount float64) {
	c.magnitudeModifiers = append(c.magnitudeModifiers, amount)
}

// AddMagnitudeMultiplier contributes a magnitude factor
func (c *ModifierCollection) AddMagnitudeMultiplier(factor float64) {
	c.magnitudeMultipliers = append(c.magnitudeMultipliers, factor)
}

// AddDurationMultiplier contributes a duration factor
func (c *ModifierCollection) AddDurationMultiplier(factor float64) {
	c.durationMultipliers = append(c.durationMultipliers, factor)
}

// AddDurationModifier contributes a duration in milliseconds owned by owner.
// Negative means indefinite, zero means expire now.
func (c *ModifierCollection) AddDurationModifier(amount float64, owner Identity) {
	c.durationModifiers = append(c.durationModifiers, amount)

	if !(amount < c.shortestDuration) {
		return
	}

	switch {
	case amount < 0:
		c.hasInfinite = true
		c.infiniteOwner = owner
	case amount == 0:
		c.hasZero = true
		c.zeroOwner = owner
	default:
		c.shortestDuration = amount
		c.shortestOwner = owner
	}
}

// Consume marks the pass as consumed; the engine discards everything
func (c *ModifierCollection) Consume() { c.consumed = true }

// Consumed reports whether any listener consumed the pass
func (c *ModifierCollection) Consumed() bool { return c.consumed }

// ShortestDuration returns 0 when a zero duration was contributed, otherwise
// the shortest positive contribution, or +Inf when there was none.
func (c *ModifierCollection) ShortestDuration() float64 {
	if c.hasZero {
		return 0
	}
	return c.shortestDuration
}

// ShortestOwner returns the owner of the shortest positive contribution
func (c *ModifierCollection) ShortestOwner() Identity { return c.shortestOwner }

// HasInfiniteDuration reports whether a qualifying negative duration was seen
func (c *ModifierCollection) HasInfiniteDuration() bool { return c.hasInfinite }

// InfiniteOwner returns the owner of the qualifying negative duration
func (c *ModifierCollection) InfiniteOwner() Identity { return c.infiniteOwner }

// HasZeroDuration reports whether a qualifying zero duration was seen
func (c *ModifierCollection) HasZeroDuration() bool { return c.hasZero }

// ZeroOwner returns the owner of the qualifying zero duration
func (c *ModifierCollection) ZeroOwner() Identity { return c.zeroOwner }

// MagnitudeModifiers returns a copy of the additive magnitude contributions
func (c *ModifierCollection) MagnitudeModifiers() []float64 {
	return append([]float64(nil), c.magnitudeModifiers...)
}

// DurationModifiers returns a copy of the raw duration contributions
func (c *ModifierCollection) DurationModifiers() []float64 {
	return append([]float64(nil), c.durationModifiers...)
}

// DurationMultipliers returns a copy of the duration factors
func (c *ModifierCollection) DurationMultipliers() []float64 {
	return append([]float64(nil), c.durationMultipliers...)
}

// ModifiersFound reports whether both a magnitude and a duration modifier
// were contributed. Only then does the effect kind recompute its state.
func (c *ModifierCollection) ModifiersFound() bool {
	return len(c.durationModifiers) > 0 && len(c.magnitudeModifiers) > 0
}

// MagnitudeResult is (base + Σmodifiers) × Πmultipliers, unclamped
func (c *ModifierCollection) MagnitudeResult() float64 {
	return (c.baseMagnitude + sum(c.magnitudeModifiers)) * product(c.magnitudeMultipliers)
}

// DurationResult is max(0, base + Σduration modifiers) scaled by the
// magnitude multipliers. The duration multipliers are deliberately unused.
// TODO: switch to durationMultipliers once existing effect tuning is migrated.
func (c *ModifierCollection) DurationResult() float64 {
	return math.Max(0, c.baseDuration+sum(c.durationModifiers)) * product(c.magnitudeMultipliers)
}

// Resolve freezes the collection into a snapshot
func (c *ModifierCollection) Resolve() Resolution {
	return Resolution{
		Magnitude:        c.MagnitudeResult(),
		Duration:         c.DurationResult(),
		ShortestDuration: c.ShortestDuration(),
		ShortestOwner:    c.shortestOwner,
		HasInfinite:      c.hasInfinite,
		InfiniteOwner:    c.infiniteOwner,
		HasZero:          c.hasZero,
		ZeroOwner:        c.zeroOwner,
		ModifiersFound:   c.ModifiersFound(),
		Consumed:         c.consumed,
	}
}

// Resolution is the immutable outcome of a collection pass
type Resolution struct {
	Magnitude        float64
	Duration         float64
	ShortestDuration float64
	ShortestOwner    Identity
	HasInfinite      bool
	InfiniteOwner    Identity
	HasZero          bool
	ZeroOwner        Identity
	ModifiersFound   bool
	Consumed         bool
}

// HasTimer reports whether the shortest duration is a usable finite delay
func (r Resolution) HasTimer() bool {
	return r.ShortestDuration > 0 && !math.IsInf(r.ShortestDuration, 1)
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func product(values []float64) float64 {
	total := 1.0
	for _, v := range values {
		total *= v
	}
	return total
}
