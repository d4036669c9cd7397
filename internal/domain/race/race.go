// Package race defines the supported race distances, race conditions and the
// condition normalization applied to a raw race time.
package race

import (
	"fmt"
	"strconv"
	"strings"
)

// MarathonMeters is the canonical marathon length used as the projection target.
const MarathonMeters = 42195.0

// Distance identifies a supported race length. The zero value means no
// distance was selected.
type Distance int

// Supported distances.
const (
	DistanceUnset Distance = iota
	FiveK
	FiveMiles
	TenK
	TenMiles
	HalfMarathon

	distanceCount
)

// distanceMeters holds the canonical length of each distance in meters.
var distanceMeters = [distanceCount]float64{
	FiveK:        5000,
	FiveMiles:    8045,
	TenK:         10000,
	TenMiles:     16090,
	HalfMarathon: 21098,
}

var distanceNames = [distanceCount]string{
	DistanceUnset: "unset",
	FiveK:         "5k",
	FiveMiles:     "5mi",
	TenK:          "10k",
	TenMiles:      "10mi",
	HalfMarathon:  "half",
}

// distanceAliases maps accepted spellings to distances. Ordinals 0..4 match
// the values posted by the original predictor form.
var distanceAliases = map[string]Distance{
	"5k": FiveK, "five_k": FiveK, "0": FiveK,
	"5mi": FiveMiles, "5m": FiveMiles, "five_m": FiveMiles, "1": FiveMiles,
	"10k": TenK, "ten_k": TenK, "2": TenK,
	"10mi": TenMiles, "10m": TenMiles, "ten_m": TenMiles, "3": TenMiles,
	"half": HalfMarathon, "hm": HalfMarathon, "half_marathon": HalfMarathon, "half_mara": HalfMarathon, "21k": HalfMarathon, "4": HalfMarathon,
}

// Distances lists every selectable distance in ascending length.
func Distances() []Distance {
	return []Distance{FiveK, FiveMiles, TenK, TenMiles, HalfMarathon}
}

// Valid reports whether d is one of the supported distances.
func (d Distance) Valid() bool {
	return d > DistanceUnset && d < distanceCount
}

// Meters returns the canonical length of d. It panics on an unsupported value.
func (d Distance) Meters() float64 {
	mustDistance(d)
	return distanceMeters[d]
}

func (d Distance) String() string {
	if d < DistanceUnset || d >= distanceCount {
		return "distance(" + strconv.Itoa(int(d)) + ")"
	}
	return distanceNames[d]
}

// ParseDistance converts a user supplied spelling into a Distance.
// An empty string yields DistanceUnset without error.
func ParseDistance(s string) (Distance, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return DistanceUnset, nil
	}
	if d, ok := distanceAliases[key]; ok {
		return d, nil
	}
	return DistanceUnset, fmt.Errorf("%w: %q", ErrUnknownDistance, s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Distance) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Distance) UnmarshalText(b []byte) error {
	v, err := ParseDistance(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func mustDistance(d Distance) {
	if !d.Valid() {
		panic(fmt.Sprintf("race: unsupported distance %s", d))
	}
}

// Condition is a qualitative race condition tag. The zero value means no
// condition was selected.
type Condition int

// Supported conditions.
const (
	ConditionUnset Condition = iota
	Average
	Fast
	Difficult

	conditionCount
)

var conditionNames = [conditionCount]string{
	ConditionUnset: "unset",
	Average:        "average",
	Fast:           "fast",
	Difficult:      "difficult",
}

var conditionAliases = map[string]Condition{
	"average": Average, "avg": Average, "0": Average,
	"fast": Fast, "1": Fast,
	"difficult": Difficult, "hard": Difficult, "2": Difficult,
}

// Valid reports whether c is one of the supported conditions.
func (c Condition) Valid() bool {
	return c > ConditionUnset && c < conditionCount
}

func (c Condition) String() string {
	if c < ConditionUnset || c >= conditionCount {
		return "condition(" + strconv.Itoa(int(c)) + ")"
	}
	return conditionNames[c]
}

// ParseCondition converts a user supplied spelling into a Condition.
// An empty string yields ConditionUnset without error.
func ParseCondition(s string) (Condition, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return ConditionUnset, nil
	}
	if c, ok := conditionAliases[key]; ok {
		return c, nil
	}
	return ConditionUnset, fmt.Errorf("%w: %q", ErrUnknownCondition, s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Condition) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Condition) UnmarshalText(b []byte) error {
	v, err := ParseCondition(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Result is a single completed race: elapsed seconds at a distance under a condition.
type Result struct {
	Seconds   float64
	Distance  Distance
	Condition Condition
}

// Meters returns the canonical length of the race distance.
func (r Result) Meters() float64 {
	return r.Distance.Meters()
}

// Normalized returns the average-condition equivalent of the result in seconds.
func (r Result) Normalized() float64 {
	return Normalize(r.Seconds, r.Distance, r.Condition)
}
