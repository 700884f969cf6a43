package cutplan

// enumerate produces every distinct multiset of slits from the desired widths
// whose total fits masterWidth with leftover trim of at most allowance.
//
// widths must be deduplicated and sorted descending. The search walks the
// width list once per branch, assigning each width a count from its maximum
// fit down to zero, so every count vector is visited exactly once and no
// composition can repeat. The all-zero assignment is excluded.
func enumerate(masterWidth float64, widths []float64, allowance float64) ([][]Cut, error) {
	e := &enumerator{
		masterWidth: masterWidth,
		allowance:   allowance,
		widths:      widths,
		counts:      make([]int, len(widths)),
		minTail:     make([]float64, len(widths)),
	}

	// minTail[i] is the smallest width from position i onward; used to cut
	// branches whose leftover can neither be filled nor tolerated as trim.
	for i := len(widths) - 1; i >= 0; i-- {
		e.minTail[i] = widths[i]
		if i < len(widths)-1 && e.minTail[i+1] < e.minTail[i] {
			e.minTail[i] = e.minTail[i+1]
		}
	}

	if err := e.walk(0, 0); err != nil {
		return nil, err
	}
	return e.out, nil
}

type enumerator struct {
	masterWidth float64
	allowance   float64
	widths      []float64
	minTail     []float64
	counts      []int
	out         [][]Cut
}

func (e *enumerator) walk(idx int, used float64) error {
	remaining := e.masterWidth - used

	if idx == len(e.widths) {
		if used > 0 && remaining <= e.allowance+widthEpsilonMm {
			return e.emit()
		}
		return nil
	}

	// Dead branch: the leftover exceeds the allowance and no remaining
	// width is narrow enough to shrink it further.
	if remaining > e.allowance+widthEpsilonMm && remaining+widthEpsilonMm < e.minTail[idx] {
		return nil
	}

	w := e.widths[idx]
	maxCount := int((remaining + widthEpsilonMm) / w)
	for c := maxCount; c >= 0; c-- {
		e.counts[idx] = c
		if err := e.walk(idx+1, used+w*float64(c)); err != nil {
			return err
		}
	}
	return nil
}

func (e *enumerator) emit() error {
	if len(e.out) >= maxPatterns {
		return ErrSearchExhausted
	}
	cuts := make([]Cut, 0, len(e.widths))
	for i, c := range e.counts {
		if c > 0 {
			cuts = append(cuts, Cut{WidthMm: e.widths[i], Count: c})
		}
	}
	e.out = append(e.out, cuts)
	return nil
}
