package model

import "math"

// StockEstimate holds the results of a sheet-count calculation. It is an
// area-based estimate, not a packing: the real layout may need more sheets
// when part shapes fragment badly.
type StockEstimate struct {
	TotalPartArea     float64 `json:"total_part_area"`     // kerf-inflated part area, sq mm
	SheetArea         float64 `json:"sheet_area"`          // usable area of one sheet, sq mm
	SheetsNeededExact float64 `json:"sheets_needed_exact"` // fractional sheet count
	SheetsNeededMin   int     `json:"sheets_needed_min"`   // ceiling of exact
	SheetsWithWaste   int     `json:"sheets_with_waste"`   // recommended count incl. waste factor
	WastePercent      float64 `json:"waste_percent"`       // factor applied, e.g. 15 for 15%
	KerfMM            float64 `json:"kerf_mm"`
}

// EstimateStock computes how many sheets a cut list needs, inflating every
// part by the kerf on both axes and applying an additional waste percentage.
func EstimateStock(parts []Part, sheet SheetSpec, kerfMM, wastePercent float64) StockEstimate {
	var totalPartArea float64
	for _, p := range parts {
		qty := p.Quantity
		if qty < 1 {
			qty = 1
		}
		totalPartArea += (p.Width + kerfMM) * (p.Height + kerfMM) * float64(qty)
	}

	sheetArea := sheet.UsableArea()
	if sheetArea <= 0 {
		return StockEstimate{
			TotalPartArea: totalPartArea,
			WastePercent:  wastePercent,
			KerfMM:        kerfMM,
		}
	}

	exact := totalPartArea / sheetArea
	minSheets := int(math.Ceil(exact))

	wasteFactor := 1.0 + wastePercent/100.0
	withWaste := int(math.Ceil(exact * wasteFactor))
	if withWaste < minSheets {
		withWaste = minSheets
	}

	return StockEstimate{
		TotalPartArea:     totalPartArea,
		SheetArea:         sheetArea,
		SheetsNeededExact: exact,
		SheetsNeededMin:   minSheets,
		SheetsWithWaste:   withWaste,
		WastePercent:      wastePercent,
		KerfMM:            kerfMM,
	}
}
