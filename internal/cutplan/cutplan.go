// Package cutplan computes slit-cutting plans for roll materials.
//
// Given a master roll and a list of desired slit widths, it enumerates every
// distinct combination of slits that fits the master width within a waste
// allowance, attaches physical and financial figures to each, and ranks them.
// The whole package is pure computation: no I/O, no state kept between calls.
package cutplan

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Material describes the physical raw material being slit.
type Material struct {
	Name          string
	MasterWidthMm float64
	// GSM is the areal density in grams per square meter.
	GSM          float64
	CostPerTonne float64
	// RollWeightKg is the weight of one master roll. Zero means the weight
	// was never recorded; length, weight and cost figures are then omitted.
	RollWeightKg float64
}

// SortMode selects the presentation order of the ranked patterns.
type SortMode string

const (
	SortByYield SortMode = "yield" // yield percentage, descending (default)
	SortByWaste SortMode = "waste" // trim waste, ascending
	SortByCost  SortMode = "cost"  // pattern cost, ascending
)

// Request is one cutting job: which widths to cut, how much trim is
// acceptable per master roll and how many master rolls will be converted.
type Request struct {
	DesiredWidthsMm    []float64
	WasteAllowanceMm   float64
	MasterRollQuantity int
	SortBy             SortMode // empty means SortByYield
	TopK               int      // 0 means return every pattern
}

// Cut is one entry of a pattern composition: Count slits of WidthMm.
type Cut struct {
	WidthMm float64
	Count   int
}

// Pattern is one candidate combination of slits from a single master roll.
type Pattern struct {
	// Cuts is ordered by width descending and never contains zero counts.
	Cuts               []Cut
	UsedWidthMm        float64
	WasteMm            float64
	YieldPct           float64
	SlitsPerRoll       int
	TotalFinishedRolls int

	// Derived from roll weight; zero when Material.RollWeightKg is zero.
	LinearMetersPerSlit float64
	TotalWeightKg       float64
	TotalCost           float64

	// Recommended marks the top patterns of the active ordering.
	Recommended bool
}

// Description renders the composition for humans, e.g. "2×75mm + 1×50mm".
func (p Pattern) Description() string {
	parts := make([]string, 0, len(p.Cuts))
	for _, c := range p.Cuts {
		parts = append(parts, fmt.Sprintf("%d×%smm", c.Count, formatMm(c.WidthMm)))
	}
	return strings.Join(parts, " + ")
}

// Result is the full outcome of one planning call.
type Result struct {
	MaterialName  string
	MasterWidthMm float64
	// TotalLinearMeters is the combined length of all requested master
	// rolls; zero when the roll weight is unknown.
	TotalLinearMeters float64

	Patterns []Pattern
	// TotalPatterns counts every valid pattern found, before any TopK cut.
	TotalPatterns int
	BestYieldPct  float64
	LowestWasteMm float64

	// RollWeightMissing signals that length, weight and cost figures were
	// omitted because the material has no recorded roll weight.
	RollWeightMissing bool
}

// InvalidInputError reports a malformed material or request with the field
// that failed validation. Validation runs before any enumeration starts.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ErrSearchExhausted is returned when a request would produce more patterns
// than the search budget allows. The caller should reduce the number of
// desired widths or tighten the waste allowance.
var ErrSearchExhausted = errors.New("cutplan: pattern search budget exhausted")

const (
	// MaxDistinctWidths bounds the combinatorial search; requests with more
	// distinct desired widths are rejected up front.
	MaxDistinctWidths = 12

	// widthEpsilonMm absorbs float noise in fit comparisons. Inputs are
	// millimeter-scale, so a micron-scale epsilon never changes a real fit.
	widthEpsilonMm = 1e-6

	maxPatterns      = 200000
	recommendedCount = 3
)

// Plan validates the inputs, enumerates every fitting composition, scores
// and ranks them. An infeasible request (nothing fits) is not an error: the
// result simply carries zero patterns and zeroed aggregates.
func Plan(m Material, req Request) (*Result, error) {
	widths, err := validate(m, req)
	if err != nil {
		return nil, err
	}

	compositions, err := enumerate(m.MasterWidthMm, widths, req.WasteAllowanceMm)
	if err != nil {
		return nil, err
	}

	res := &Result{
		MaterialName:      m.Name,
		MasterWidthMm:     m.MasterWidthMm,
		RollWeightMissing: m.RollWeightKg == 0,
	}
	if m.RollWeightKg > 0 {
		res.TotalLinearMeters = linearMeters(m.RollWeightKg, m.GSM, m.MasterWidthMm) * float64(req.MasterRollQuantity)
	}

	if len(compositions) == 0 {
		return res, nil
	}

	patterns := make([]Pattern, 0, len(compositions))
	for _, cuts := range compositions {
		patterns = append(patterns, score(m, req, cuts))
	}

	res.TotalPatterns = len(patterns)
	for i, p := range patterns {
		if i == 0 || p.YieldPct > res.BestYieldPct {
			res.BestYieldPct = p.YieldPct
		}
		if i == 0 || p.WasteMm < res.LowestWasteMm {
			res.LowestWasteMm = p.WasteMm
		}
	}

	rank(patterns, req.SortBy)
	for i := 0; i < len(patterns) && i < recommendedCount; i++ {
		patterns[i].Recommended = true
	}
	if req.TopK > 0 && req.TopK < len(patterns) {
		patterns = patterns[:req.TopK]
	}
	res.Patterns = patterns

	return res, nil
}

// validate checks material and request and returns the deduplicated desired
// widths sorted descending, ready for enumeration.
func validate(m Material, req Request) ([]float64, error) {
	if m.MasterWidthMm <= 0 {
		return nil, &InvalidInputError{Field: "master_width_mm", Reason: "must be greater than 0"}
	}
	if m.GSM <= 0 {
		return nil, &InvalidInputError{Field: "gsm", Reason: "must be greater than 0"}
	}
	if m.CostPerTonne < 0 {
		return nil, &InvalidInputError{Field: "cost_per_tonne", Reason: "must not be negative"}
	}
	if m.RollWeightKg < 0 {
		return nil, &InvalidInputError{Field: "roll_weight_kg", Reason: "must not be negative"}
	}
	if req.WasteAllowanceMm < 0 {
		return nil, &InvalidInputError{Field: "waste_allowance_mm", Reason: "must not be negative"}
	}
	if req.MasterRollQuantity < 1 {
		return nil, &InvalidInputError{Field: "quantity_master_rolls", Reason: "must be at least 1"}
	}
	if req.TopK < 0 {
		return nil, &InvalidInputError{Field: "limit", Reason: "must not be negative"}
	}
	switch req.SortBy {
	case "", SortByYield, SortByWaste, SortByCost:
	default:
		return nil, &InvalidInputError{Field: "sort_by", Reason: "must be one of yield, waste, cost"}
	}

	if len(req.DesiredWidthsMm) == 0 {
		return nil, &InvalidInputError{Field: "desired_slit_widths", Reason: "at least one width is required"}
	}

	seen := make(map[float64]bool, len(req.DesiredWidthsMm))
	widths := make([]float64, 0, len(req.DesiredWidthsMm))
	for _, w := range req.DesiredWidthsMm {
		if w <= 0 {
			return nil, &InvalidInputError{Field: "desired_slit_widths", Reason: "widths must be greater than 0"}
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		widths = append(widths, w)
	}
	if len(widths) > MaxDistinctWidths {
		return nil, &InvalidInputError{
			Field:  "desired_slit_widths",
			Reason: fmt.Sprintf("at most %d distinct widths are supported", MaxDistinctWidths),
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(widths)))
	return widths, nil
}

// score attaches the physical and financial figures to one composition.
func score(m Material, req Request, cuts []Cut) Pattern {
	p := Pattern{Cuts: cuts}
	for _, c := range cuts {
		p.UsedWidthMm += c.WidthMm * float64(c.Count)
		p.SlitsPerRoll += c.Count
	}

	p.WasteMm = m.MasterWidthMm - p.UsedWidthMm
	if p.WasteMm < 0 {
		// Epsilon-sized overshoot from float summation.
		p.WasteMm = 0
	}
	p.YieldPct = round2(p.UsedWidthMm / m.MasterWidthMm * 100)
	p.TotalFinishedRolls = p.SlitsPerRoll * req.MasterRollQuantity

	if m.RollWeightKg > 0 {
		usedFraction := p.UsedWidthMm / m.MasterWidthMm
		p.LinearMetersPerSlit = linearMeters(m.RollWeightKg, m.GSM, p.UsedWidthMm)
		p.TotalWeightKg = m.RollWeightKg * usedFraction * float64(req.MasterRollQuantity)
		p.TotalCost = p.TotalWeightKg / 1000 * m.CostPerTonne
	}

	return p
}

// rank orders patterns for presentation. Sorting is stable, so patterns that
// compare equal keep their enumeration order.
func rank(patterns []Pattern, mode SortMode) {
	switch mode {
	case SortByWaste:
		sort.SliceStable(patterns, func(i, j int) bool {
			return patterns[i].WasteMm < patterns[j].WasteMm
		})
	case SortByCost:
		sort.SliceStable(patterns, func(i, j int) bool {
			return patterns[i].TotalCost < patterns[j].TotalCost
		})
	default: // SortByYield
		sort.SliceStable(patterns, func(i, j int) bool {
			return patterns[i].YieldPct > patterns[j].YieldPct
		})
	}
}

// linearMeters converts roll weight to length: mass(g) / (gsm * width(m)).
func linearMeters(rollWeightKg, gsm, widthMm float64) float64 {
	return rollWeightKg * 1_000_000 / (gsm * widthMm)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatMm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
