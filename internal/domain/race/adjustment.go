package race

import "fmt"

// adjustment holds the pace shift for the non-average conditions of one distance.
type adjustment struct {
	fast      float64
	difficult float64
}

// adjustments is indexed by Distance. Every supported distance has both
// coefficients; Average has no entry because it is the identity.
var adjustments = [distanceCount]adjustment{
	FiveK:        {fast: -0.0237814322487082, difficult: 0.1129432382020499},
	FiveMiles:    {fast: -0.1549942921949754, difficult: 0.1089566001045939},
	TenK:         {fast: -0.0780677777771365, difficult: 0.024557694615445},
	TenMiles:     {fast: -0.1358099643292151, difficult: 0.1030755530328555},
	HalfMarathon: {fast: -0.0978322644420439, difficult: 0.0335971859175381},
}

// Adjustment returns the pace coefficient for a distance under a non-average
// condition. It panics for Average, unset or unknown values.
func Adjustment(d Distance, c Condition) float64 {
	mustDistance(d)
	switch c {
	case Fast:
		return adjustments[d].fast
	case Difficult:
		return adjustments[d].difficult
	default:
		panic(fmt.Sprintf("race: no adjustment for condition %s", c))
	}
}

// Normalize converts seconds run over d under c into the equivalent time under
// average conditions. The condition shifts pace (meters per second) additively.
func Normalize(seconds float64, d Distance, c Condition) float64 {
	if c == Average {
		return seconds
	}
	adj := Adjustment(d, c)
	dist := d.Meters()
	return dist / (dist/seconds + adj)
}
