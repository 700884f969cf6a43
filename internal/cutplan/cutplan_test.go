package cutplan

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func testMaterial() Material {
	return Material{
		Name:          "Kraft 80gsm",
		MasterWidthMm: 200,
		GSM:           80,
		CostPerTonne:  1200,
		RollWeightKg:  500,
	}
}

func TestPlan_FullWidthBoundary(t *testing.T) {
	m := testMaterial()
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{200},
		WasteAllowanceMm:   0,
		MasterRollQuantity: 1,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	if res.TotalPatterns != 1 {
		t.Fatalf("expected exactly 1 pattern, got %d", res.TotalPatterns)
	}
	p := res.Patterns[0]
	nearlyEqual(t, "UsedWidthMm", p.UsedWidthMm, 200)
	nearlyEqual(t, "WasteMm", p.WasteMm, 0)
	nearlyEqual(t, "YieldPct", p.YieldPct, 100)
	if p.SlitsPerRoll != 1 {
		t.Fatalf("expected 1 slit, got %d", p.SlitsPerRoll)
	}
	if p.Description() != "1×200mm" {
		t.Fatalf("unexpected description %q", p.Description())
	}
}

func TestPlan_AllWidthsTooWideIsEmptyNotError(t *testing.T) {
	m := testMaterial()
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{250, 300},
		WasteAllowanceMm:   500,
		MasterRollQuantity: 1,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	if res.TotalPatterns != 0 || len(res.Patterns) != 0 {
		t.Fatalf("expected empty result, got %d patterns", res.TotalPatterns)
	}
	nearlyEqual(t, "BestYieldPct", res.BestYieldPct, 0)
	nearlyEqual(t, "LowestWasteMm", res.LowestWasteMm, 0)
}

func TestPlan_Scenario75And50(t *testing.T) {
	m := testMaterial()
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{75, 50},
		WasteAllowanceMm:   5,
		MasterRollQuantity: 1,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	found := false
	for _, p := range res.Patterns {
		if p.WasteMm > 5+widthEpsilonMm {
			t.Fatalf("pattern %q has waste %v above allowance", p.Description(), p.WasteMm)
		}
		if p.UsedWidthMm > m.MasterWidthMm+widthEpsilonMm {
			t.Fatalf("pattern %q uses %v, more than the master width", p.Description(), p.UsedWidthMm)
		}
		if p.Description() == "2×75mm + 1×50mm" {
			found = true
			nearlyEqual(t, "UsedWidthMm", p.UsedWidthMm, 200)
			nearlyEqual(t, "WasteMm", p.WasteMm, 0)
		}
		if p.Description() == "2×75mm" {
			t.Fatalf("pattern 2×75mm has waste 50 and must be excluded")
		}
	}
	if !found {
		t.Fatalf("expected pattern 2×75mm + 1×50mm, patterns: %v", descriptions(res.Patterns))
	}
}

func TestPlan_NoDuplicateCompositions(t *testing.T) {
	m := testMaterial()
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{75, 50, 25},
		WasteAllowanceMm:   200,
		MasterRollQuantity: 1,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	seen := make(map[string]bool)
	for _, p := range res.Patterns {
		d := p.Description()
		if seen[d] {
			t.Fatalf("duplicate composition %q", d)
		}
		seen[d] = true
	}
}

func TestEnumerate_MatchesBruteForce(t *testing.T) {
	master := 100.0
	widths := []float64{30, 20, 10} // descending, as validate would hand over
	allowance := 15.0

	got, err := enumerate(master, widths, allowance)
	if err != nil {
		t.Fatalf("enumerate returned error: %v", err)
	}

	want := 0
	for a := 0; float64(a)*30 <= master; a++ {
		for b := 0; float64(a)*30+float64(b)*20 <= master; b++ {
			for c := 0; float64(a)*30+float64(b)*20+float64(c)*10 <= master; c++ {
				used := float64(a)*30 + float64(b)*20 + float64(c)*10
				if used > 0 && master-used <= allowance {
					want++
				}
			}
		}
	}

	if len(got) != want {
		t.Fatalf("enumerate found %d compositions, brute force found %d", len(got), want)
	}
}

func TestPlan_WasteAllowanceMonotonicity(t *testing.T) {
	m := testMaterial()
	m.MasterWidthMm = 205

	prev := -1
	for _, allowance := range []float64{0, 5, 30, 55, 205} {
		res, err := Plan(m, Request{
			DesiredWidthsMm:    []float64{75, 50},
			WasteAllowanceMm:   allowance,
			MasterRollQuantity: 1,
		})
		if err != nil {
			t.Fatalf("Plan(allowance=%v) returned error: %v", allowance, err)
		}
		if res.TotalPatterns < prev {
			t.Fatalf("pattern count dropped from %d to %d when allowance grew to %v", prev, res.TotalPatterns, allowance)
		}
		prev = res.TotalPatterns
	}
}

func TestPlan_Idempotence(t *testing.T) {
	m := testMaterial()
	req := Request{
		DesiredWidthsMm:    []float64{75, 50, 33},
		WasteAllowanceMm:   40,
		MasterRollQuantity: 2,
	}

	first, err := Plan(m, req)
	if err != nil {
		t.Fatalf("first Plan returned error: %v", err)
	}
	second, err := Plan(m, req)
	if err != nil {
		t.Fatalf("second Plan returned error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different results")
	}
}

func TestPlan_LinearMetersFormula(t *testing.T) {
	m := Material{Name: "Test", MasterWidthMm: 200, GSM: 80, CostPerTonne: 1000, RollWeightKg: 500}
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{150},
		WasteAllowanceMm:   50,
		MasterRollQuantity: 1,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if res.TotalPatterns != 1 {
		t.Fatalf("expected 1 pattern, got %d", res.TotalPatterns)
	}

	// mass(g) / (density(g/m²) * width(m)): 500kg over 80gsm at 150mm.
	got := res.Patterns[0].LinearMetersPerSlit
	want := 500.0 * 1_000_000 / (80 * 150)
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("LinearMetersPerSlit = %v, want %v", got, want)
	}
}

func TestPlan_CostAndWeightScaleWithUsedFraction(t *testing.T) {
	m := Material{Name: "Test", MasterWidthMm: 200, GSM: 80, CostPerTonne: 1000, RollWeightKg: 500}
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{150},
		WasteAllowanceMm:   50,
		MasterRollQuantity: 4,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	p := res.Patterns[0]
	// 150/200 of a 500kg roll, times 4 rolls.
	nearlyEqual(t, "TotalWeightKg", p.TotalWeightKg, 1500)
	nearlyEqual(t, "TotalCost", p.TotalCost, 1500)
	// Full master rolls: 500kg / (80gsm * 0.2m) per roll, times 4.
	nearlyEqual(t, "TotalLinearMeters", res.TotalLinearMeters, 4*500.0*1_000_000/(80*200))
}

func TestPlan_TotalFinishedRolls(t *testing.T) {
	m := testMaterial()
	m.MasterWidthMm = 150
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{50},
		WasteAllowanceMm:   0,
		MasterRollQuantity: 10,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	p := res.Patterns[0]
	if p.SlitsPerRoll != 3 {
		t.Fatalf("expected 3 slits per roll, got %d", p.SlitsPerRoll)
	}
	if p.TotalFinishedRolls != 30 {
		t.Fatalf("expected 30 finished rolls, got %d", p.TotalFinishedRolls)
	}
}

func TestPlan_EmptyWidthsRejected(t *testing.T) {
	_, err := Plan(testMaterial(), Request{
		DesiredWidthsMm:    nil,
		WasteAllowanceMm:   5,
		MasterRollQuantity: 1,
	})

	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if invalid.Field != "desired_slit_widths" {
		t.Fatalf("expected field desired_slit_widths, got %q", invalid.Field)
	}
}

func TestPlan_ValidationRejections(t *testing.T) {
	valid := Request{DesiredWidthsMm: []float64{50}, WasteAllowanceMm: 5, MasterRollQuantity: 1}

	cases := []struct {
		name     string
		material Material
		mutate   func(*Request)
		field    string
	}{
		{"zero master width", Material{MasterWidthMm: 0, GSM: 80}, nil, "master_width_mm"},
		{"zero gsm", Material{MasterWidthMm: 200, GSM: 0}, nil, "gsm"},
		{"negative cost", Material{MasterWidthMm: 200, GSM: 80, CostPerTonne: -1}, nil, "cost_per_tonne"},
		{"negative waste allowance", testMaterial(), func(r *Request) { r.WasteAllowanceMm = -1 }, "waste_allowance_mm"},
		{"zero quantity", testMaterial(), func(r *Request) { r.MasterRollQuantity = 0 }, "quantity_master_rolls"},
		{"negative width", testMaterial(), func(r *Request) { r.DesiredWidthsMm = []float64{50, -10} }, "desired_slit_widths"},
		{"bad sort mode", testMaterial(), func(r *Request) { r.SortBy = "price" }, "sort_by"},
		{"negative limit", testMaterial(), func(r *Request) { r.TopK = -1 }, "limit"},
	}

	for _, tc := range cases {
		req := valid
		req.DesiredWidthsMm = append([]float64(nil), valid.DesiredWidthsMm...)
		if tc.mutate != nil {
			tc.mutate(&req)
		}

		_, err := Plan(tc.material, req)
		var invalid *InvalidInputError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s: expected InvalidInputError, got %v", tc.name, err)
		}
		if invalid.Field != tc.field {
			t.Fatalf("%s: expected field %q, got %q", tc.name, tc.field, invalid.Field)
		}
	}
}

func TestPlan_TooManyDistinctWidthsRejected(t *testing.T) {
	widths := make([]float64, MaxDistinctWidths+1)
	for i := range widths {
		widths[i] = float64(i + 1)
	}

	_, err := Plan(testMaterial(), Request{
		DesiredWidthsMm:    widths,
		WasteAllowanceMm:   0,
		MasterRollQuantity: 1,
	})

	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if invalid.Field != "desired_slit_widths" {
		t.Fatalf("expected field desired_slit_widths, got %q", invalid.Field)
	}
}

func TestPlan_DuplicateWidthsCollapse(t *testing.T) {
	m := testMaterial()
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{50, 50, 50},
		WasteAllowanceMm:   0,
		MasterRollQuantity: 1,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if res.TotalPatterns != 1 {
		t.Fatalf("expected 1 pattern for duplicated width, got %d: %v", res.TotalPatterns, descriptions(res.Patterns))
	}
	if res.Patterns[0].Description() != "4×50mm" {
		t.Fatalf("unexpected description %q", res.Patterns[0].Description())
	}
}

func TestPlan_SortModesSameSetDifferentOrder(t *testing.T) {
	m := testMaterial()
	base := Request{
		DesiredWidthsMm:    []float64{75, 50},
		WasteAllowanceMm:   60,
		MasterRollQuantity: 1,
	}

	byYield := base
	byYield.SortBy = SortByYield
	byCost := base
	byCost.SortBy = SortByCost

	yieldRes, err := Plan(m, byYield)
	if err != nil {
		t.Fatalf("Plan by yield returned error: %v", err)
	}
	costRes, err := Plan(m, byCost)
	if err != nil {
		t.Fatalf("Plan by cost returned error: %v", err)
	}

	yieldSet := descriptionSet(yieldRes.Patterns)
	costSet := descriptionSet(costRes.Patterns)
	if !reflect.DeepEqual(yieldSet, costSet) {
		t.Fatalf("sort modes returned different pattern sets: %v vs %v", yieldSet, costSet)
	}

	// Yield descending puts a full-width pattern first.
	nearlyEqual(t, "yield first UsedWidthMm", yieldRes.Patterns[0].UsedWidthMm, 200)

	// Cost scales with used width, so the cheapest pattern is the one using
	// the least material within the allowance.
	first := costRes.Patterns[0]
	for _, p := range costRes.Patterns[1:] {
		if p.TotalCost < first.TotalCost-1e-9 {
			t.Fatalf("pattern %q is cheaper than the first under cost ordering", p.Description())
		}
	}
}

func TestPlan_SortByWasteAscending(t *testing.T) {
	m := testMaterial()
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{75, 50},
		WasteAllowanceMm:   60,
		MasterRollQuantity: 1,
		SortBy:             SortByWaste,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	for i := 1; i < len(res.Patterns); i++ {
		if res.Patterns[i].WasteMm < res.Patterns[i-1].WasteMm-1e-9 {
			t.Fatalf("waste ordering violated at index %d", i)
		}
	}
}

func TestPlan_RecommendedAndTopK(t *testing.T) {
	m := testMaterial()
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{75, 50, 25},
		WasteAllowanceMm:   200,
		MasterRollQuantity: 1,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if res.TotalPatterns <= 3 {
		t.Fatalf("test wants more than 3 patterns, got %d", res.TotalPatterns)
	}
	for i, p := range res.Patterns {
		if want := i < 3; p.Recommended != want {
			t.Fatalf("pattern %d recommended=%v, want %v", i, p.Recommended, want)
		}
	}

	limited, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{75, 50, 25},
		WasteAllowanceMm:   200,
		MasterRollQuantity: 1,
		TopK:               2,
	})
	if err != nil {
		t.Fatalf("Plan with limit returned error: %v", err)
	}
	if len(limited.Patterns) != 2 {
		t.Fatalf("expected 2 patterns after limit, got %d", len(limited.Patterns))
	}
	if limited.TotalPatterns != res.TotalPatterns {
		t.Fatalf("limit must not change TotalPatterns: %d vs %d", limited.TotalPatterns, res.TotalPatterns)
	}
	nearlyEqual(t, "BestYieldPct unchanged by limit", limited.BestYieldPct, res.BestYieldPct)
}

func TestPlan_MissingRollWeightOmitsDerivedFigures(t *testing.T) {
	m := testMaterial()
	m.RollWeightKg = 0

	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{100},
		WasteAllowanceMm:   100,
		MasterRollQuantity: 1,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	if !res.RollWeightMissing {
		t.Fatalf("expected RollWeightMissing to be set")
	}
	nearlyEqual(t, "TotalLinearMeters", res.TotalLinearMeters, 0)
	for _, p := range res.Patterns {
		nearlyEqual(t, "LinearMetersPerSlit", p.LinearMetersPerSlit, 0)
		nearlyEqual(t, "TotalWeightKg", p.TotalWeightKg, 0)
		nearlyEqual(t, "TotalCost", p.TotalCost, 0)
	}
}

func TestPlan_EpsilonAbsorbsFloatNoise(t *testing.T) {
	// 3×0.1 sums to 0.30000000000000004 in binary floating point; the fit
	// comparison must still accept three slits on a 0.3mm master.
	m := Material{Name: "Foil", MasterWidthMm: 0.3, GSM: 20, CostPerTonne: 900}
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{0.1},
		WasteAllowanceMm:   0,
		MasterRollQuantity: 1,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	if res.TotalPatterns != 1 {
		t.Fatalf("expected 1 pattern, got %d: %v", res.TotalPatterns, descriptions(res.Patterns))
	}
	p := res.Patterns[0]
	if p.SlitsPerRoll != 3 {
		t.Fatalf("expected 3 slits, got %d", p.SlitsPerRoll)
	}
	if p.WasteMm < 0 {
		t.Fatalf("waste must never go negative, got %v", p.WasteMm)
	}
}

func TestPlan_AggregatesMatchPatterns(t *testing.T) {
	m := testMaterial()
	res, err := Plan(m, Request{
		DesiredWidthsMm:    []float64{75, 50},
		WasteAllowanceMm:   60,
		MasterRollQuantity: 1,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	bestYield, lowestWaste := 0.0, math.MaxFloat64
	for _, p := range res.Patterns {
		if p.YieldPct > bestYield {
			bestYield = p.YieldPct
		}
		if p.WasteMm < lowestWaste {
			lowestWaste = p.WasteMm
		}
	}
	nearlyEqual(t, "BestYieldPct", res.BestYieldPct, bestYield)
	nearlyEqual(t, "LowestWasteMm", res.LowestWasteMm, lowestWaste)
}

func descriptions(patterns []Pattern) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p.Description())
	}
	return out
}

func descriptionSet(patterns []Pattern) map[string]bool {
	out := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		out[p.Description()] = true
	}
	return out
}
