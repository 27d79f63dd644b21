package catalog

// Default returns the built-in catalog: the supposed legal ranges and the
// hand-authored inter-parameter correlation matrix.
func Default() *Catalog {
	c, err := New(defaultSpecs, defaultCorrelation)
	if err != nil {
		panic("catalog: built-in table invalid: " + err.Error())
	}
	return c
}

var defaultSpecs = [Count]ParameterSpec{
	{Key: "Ammonium", Name: "Ammonium (mg/l N)", Unit: "mg/l N", Lower: 0, Upper: 1.5},
	{Key: "Phosphate", Name: "Ortho Phosphate (mg/l P)", Unit: "mg/l P", Lower: 0, Upper: 0.9},
	{Key: "COD", Name: "COD (mg/l O2)", Unit: "mg/l O2", Lower: 0, Upper: 125},
	{Key: "BOD", Name: "BOD (mg/l O2)", Unit: "mg/l O2", Lower: 0, Upper: 25},
	{Key: "Conductivity", Name: "Conductivity (mS/m)", Unit: "mS/m", Lower: 0, Upper: 100},
	{Key: "PH", Name: "pH", Unit: "", Lower: 7, Upper: 9},
	{Key: "Nitrogen", Name: "Nitrogen Total (mg/l N)", Unit: "mg/l N", Lower: 0, Upper: 25},
	{Key: "Nitrate", Name: "Nitrate (mg/l NO3)", Unit: "mg/l NO3", Lower: 0, Upper: 50},
	{Key: "Turbidity", Name: "Turbidity (NTU)", Unit: "NTU", Lower: 0, Upper: 50},
	{Key: "TSS", Name: "TSS (mg/l)", Unit: "mg/l", Lower: 0, Upper: 35},
}

var defaultCorrelation = [Count][Count]float64{
	// NH4   PO4   COD   BOD   Cond   pH     NTot   NO3   Turb   TSS
	{1.00, 0.30, 0.60, 0.50, 0.70, -0.40, 0.80, 0.20, 0.40, 0.45},         // NH4
	{0.30, 1.00, 0.50, 0.40, 0.50, -0.30, 0.50, 0.10, 0.30, 0.35},         // PO4
	{0.60, 0.50, 1.00, 0.85, 0.65, -0.20, 0.65, 0.25, 0.55, 0.60},         // COD
	{0.50, 0.40, 0.85, 1.00, 0.60, -0.30, 0.55, 0.20, 0.50, 0.55},         // BOD
	{0.70, 0.50, 0.65, 0.60, 1.00, -0.50, 0.75, 0.30, 0.45, 0.50},         // Cond
	{-0.40, -0.30, -0.20, -0.30, -0.50, 1.00, -0.35, -0.10, -0.25, -0.30}, // pH
	{0.80, 0.50, 0.65, 0.55, 0.75, -0.35, 1.00, 0.40, 0.50, 0.55},         // NTot
	{0.20, 0.10, 0.25, 0.20, 0.30, -0.10, 0.40, 1.00, 0.15, 0.10},         // NO3
	{0.40, 0.30, 0.55, 0.50, 0.45, -0.25, 0.50, 0.15, 1.00, 0.85},         // Turb
	{0.45, 0.35, 0.60, 0.55, 0.50, -0.30, 0.55, 0.10, 0.85, 1.00},         // TSS
}
