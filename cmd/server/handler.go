package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rollmill/slitplan/internal/cutplan"
	"github.com/rollmill/slitplan/internal/export"
	"github.com/rollmill/slitplan/internal/materials"
)

type materialPayload struct {
	ID            int64    `json:"id,omitempty"`
	Name          string   `json:"name"`
	MasterWidthMm float64  `json:"master_width_mm"`
	GSM           float64  `json:"gsm"`
	CostPerTonne  float64  `json:"cost_per_tonne"`
	RollWeightKg  *float64 `json:"roll_weight_kg,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Active        bool     `json:"active"`
}

type permutationRequest struct {
	MaterialID          int64     `json:"material_id"`
	DesiredSlitWidths   []float64 `json:"desired_slit_widths"`
	WasteAllowanceMm    float64   `json:"waste_allowance_mm"`
	QuantityMasterRolls int       `json:"quantity_master_rolls"`
	SortBy              string    `json:"sort_by,omitempty"`
	Limit               int       `json:"limit,omitempty"`
}

type materialInfo struct {
	MaterialName      string   `json:"material_name"`
	MasterWidthMm     float64  `json:"master_width_mm"`
	TotalLinearMeters *float64 `json:"total_linear_meters"`
	Currency          string   `json:"currency"`
}

type patternPayload struct {
	PatternDescription  string    `json:"pattern_description"`
	Cuts                []cutItem `json:"cuts"`
	UsedWidthMm         float64   `json:"used_width_mm"`
	WasteMm             float64   `json:"waste_mm"`
	YieldPercentage     float64   `json:"yield_percentage"`
	SlitsPerMasterRoll  int       `json:"slits_per_master_roll"`
	TotalFinishedRolls  int       `json:"total_finished_rolls"`
	LinearMetersPerSlit *float64  `json:"linear_meters_per_slit"`
	TotalPatternWeight  *float64  `json:"total_pattern_weight_kg"`
	TotalPatternCost    *float64  `json:"total_pattern_cost"`
	Recommended         bool      `json:"recommended"`
}

type cutItem struct {
	WidthMm float64 `json:"width_mm"`
	Count   int     `json:"count"`
}

type permutationResponse struct {
	MaterialInfo           materialInfo     `json:"material_info"`
	TotalPermutationsFound int              `json:"total_permutations_found"`
	BestYieldPercentage    float64          `json:"best_yield_percentage"`
	LowestWasteMm          float64          `json:"lowest_waste_mm"`
	RollWeightMissing      bool             `json:"roll_weight_missing"`
	Permutations           []patternPayload `json:"permutations"`
}

func (s *server) handleMaterialsList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List()
	if err != nil {
		internalError(w, r, err, "failed to load materials")
		return
	}

	payload := make([]materialPayload, 0, len(list))
	for _, m := range list {
		payload = append(payload, toMaterialPayload(m))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *server) handleMaterialCreate(w http.ResponseWriter, r *http.Request) {
	m, ok := s.decodeMaterial(w, r)
	if !ok {
		return
	}

	id, err := s.store.Create(m)
	if err != nil {
		internalError(w, r, err, "failed to create material")
		return
	}

	m.ID = id
	writeJSON(w, http.StatusCreated, toMaterialPayload(m))
}

func (s *server) handleMaterialUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		fieldError(w, "id", "must be a positive integer")
		return
	}

	m, ok := s.decodeMaterial(w, r)
	if !ok {
		return
	}
	m.ID = id

	if err := s.store.Update(m); err != nil {
		if errors.Is(err, materials.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "material not found"})
			return
		}
		internalError(w, r, err, "failed to update material")
		return
	}

	writeJSON(w, http.StatusOK, toMaterialPayload(m))
}

func (s *server) handlePermutations(w http.ResponseWriter, r *http.Request) {
	res, ok := s.plan(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.toPermutationResponse(res))
}

func (s *server) handlePermutationsExport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.plan(w, r)
	if !ok {
		return
	}

	f, err := export.Workbook(res, s.currency)
	if err != nil {
		internalError(w, r, err, "failed to build workbook")
		return
	}

	name := strings.ReplaceAll(strings.ToLower(res.MaterialName), " ", "-")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="cut-patterns-%s.xlsx"`, name))
	if err := f.Write(w); err != nil {
		// Headers are gone already; all we can do is log it.
		internalError(w, r, err, "failed to write workbook")
	}
}

// plan decodes a permutation request, resolves the material and runs the
// optimizer. It writes the error response itself and reports success via ok.
func (s *server) plan(w http.ResponseWriter, r *http.Request) (*cutplan.Result, bool) {
	defer r.Body.Close()

	var req permutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed json"})
		} else {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid request body"})
		}
		return nil, false
	}

	if req.MaterialID <= 0 {
		fieldError(w, "material_id", "must be a positive integer")
		return nil, false
	}

	m, err := s.store.Get(req.MaterialID)
	if err != nil {
		if errors.Is(err, materials.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "material not found"})
			return nil, false
		}
		internalError(w, r, err, "failed to resolve material")
		return nil, false
	}

	res, err := cutplan.Plan(cutplan.Material{
		Name:          m.Name,
		MasterWidthMm: m.MasterWidthMm,
		GSM:           m.GSM,
		CostPerTonne:  m.CostPerTonne,
		RollWeightKg:  m.RollWeightKg,
	}, cutplan.Request{
		DesiredWidthsMm:    req.DesiredSlitWidths,
		WasteAllowanceMm:   req.WasteAllowanceMm,
		MasterRollQuantity: req.QuantityMasterRolls,
		SortBy:             cutplan.SortMode(req.SortBy),
		TopK:               req.Limit,
	})
	if err != nil {
		var invalid *cutplan.InvalidInputError
		switch {
		case errors.As(err, &invalid):
			fieldError(w, invalid.Field, invalid.Reason)
		case errors.Is(err, cutplan.ErrSearchExhausted):
			fieldError(w, "desired_slit_widths", "too many combinations; reduce widths or tighten the waste allowance")
		default:
			internalError(w, r, err, "calculation failed")
		}
		return nil, false
	}

	return res, true
}

func (s *server) toPermutationResponse(res *cutplan.Result) permutationResponse {
	out := permutationResponse{
		MaterialInfo: materialInfo{
			MaterialName:  res.MaterialName,
			MasterWidthMm: res.MasterWidthMm,
			Currency:      s.currency,
		},
		TotalPermutationsFound: res.TotalPatterns,
		BestYieldPercentage:    res.BestYieldPct,
		LowestWasteMm:          res.LowestWasteMm,
		RollWeightMissing:      res.RollWeightMissing,
		Permutations:           make([]patternPayload, 0, len(res.Patterns)),
	}
	if !res.RollWeightMissing {
		out.MaterialInfo.TotalLinearMeters = ptr(res.TotalLinearMeters)
	}

	for _, p := range res.Patterns {
		item := patternPayload{
			PatternDescription: p.Description(),
			Cuts:               make([]cutItem, 0, len(p.Cuts)),
			UsedWidthMm:        p.UsedWidthMm,
			WasteMm:            p.WasteMm,
			YieldPercentage:    p.YieldPct,
			SlitsPerMasterRoll: p.SlitsPerRoll,
			TotalFinishedRolls: p.TotalFinishedRolls,
			Recommended:        p.Recommended,
		}
		for _, c := range p.Cuts {
			item.Cuts = append(item.Cuts, cutItem{WidthMm: c.WidthMm, Count: c.Count})
		}
		if !res.RollWeightMissing {
			item.LinearMetersPerSlit = ptr(p.LinearMetersPerSlit)
			item.TotalPatternWeight = ptr(p.TotalWeightKg)
			item.TotalPatternCost = ptr(p.TotalCost)
		}
		out.Permutations = append(out.Permutations, item)
	}

	return out
}

// decodeMaterial parses and validates a material payload, writing the error
// response itself on failure.
func (s *server) decodeMaterial(w http.ResponseWriter, r *http.Request) (materials.Material, bool) {
	defer r.Body.Close()

	var p materialPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed json"})
		return materials.Material{}, false
	}

	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		fieldError(w, "name", "is required")
	case p.MasterWidthMm <= 0:
		fieldError(w, "master_width_mm", "must be greater than 0")
	case p.GSM <= 0:
		fieldError(w, "gsm", "must be greater than 0")
	case p.CostPerTonne < 0:
		fieldError(w, "cost_per_tonne", "must not be negative")
	case p.RollWeightKg != nil && *p.RollWeightKg <= 0:
		fieldError(w, "roll_weight_kg", "must be greater than 0 when provided")
	default:
		m := materials.Material{
			Name:          p.Name,
			MasterWidthMm: p.MasterWidthMm,
			GSM:           p.GSM,
			CostPerTonne:  p.CostPerTonne,
			Notes:         strings.TrimSpace(p.Notes),
			Active:        p.Active,
		}
		if p.RollWeightKg != nil {
			m.RollWeightKg = *p.RollWeightKg
		}
		return m, true
	}

	return materials.Material{}, false
}

func toMaterialPayload(m materials.Material) materialPayload {
	p := materialPayload{
		ID:            m.ID,
		Name:          m.Name,
		MasterWidthMm: m.MasterWidthMm,
		GSM:           m.GSM,
		CostPerTonne:  m.CostPerTonne,
		Notes:         m.Notes,
		Active:        m.Active,
	}
	if m.RollWeightKg > 0 {
		p.RollWeightKg = ptr(m.RollWeightKg)
	}
	return p
}

func ptr(v float64) *float64 {
	return &v
}
