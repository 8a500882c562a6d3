package multiples

// NYU Stern sector multiples (2025 data)
var defaultSectors = map[string]Multiples{
	"Technology":             {CurrentPE: 64.15, ForwardPE: 86.40, PB: 11.12, PS: 14.26, EVEBITDA: 34.48, PEG: 1.5, GrowthRate: 0.15, ROE: 0.20},
	"Financial Services":     {CurrentPE: 35.16, ForwardPE: 20.64, PB: 2.11, PS: 5.14, EVEBITDA: 62.82, PEG: 1.29, GrowthRate: 0.1537, ROE: 0.1311},
	"Real Estate":            {CurrentPE: 44.63, ForwardPE: 41.45, PB: 2.01, PS: 6.02, EVEBITDA: 20.33, PEG: 4.75, GrowthRate: 0.05, ROE: 0.045},
	"Consumer Cyclical":      {CurrentPE: 28.81, ForwardPE: 22.74, PB: 8.43, PS: 1.94, EVEBITDA: 18.21, PEG: 10.52, GrowthRate: 0.08, ROE: 0.12},
	"Consumer Defensive":     {CurrentPE: 23.97, ForwardPE: 22.81, PB: 2.18, PS: 1.35, EVEBITDA: 11.17, PEG: 2.04, GrowthRate: 0.06, ROE: 0.10},
	"Healthcare":             {CurrentPE: 129.64, ForwardPE: 18.72, PB: 5.70, PS: 4.84, EVEBITDA: 15.37, PEG: 2.61, GrowthRate: 0.12, ROE: 0.15},
	"Utilities":              {CurrentPE: 19.19, ForwardPE: 16.47, PB: 1.82, PS: 2.97, EVEBITDA: 13.44, PEG: 3.28, GrowthRate: 0.04, ROE: 0.08},
	"Communication Services": {CurrentPE: 74.81, ForwardPE: 46.36, PB: 1.62, PS: 1.30, EVEBITDA: 6.62, PEG: 3.10, GrowthRate: 0.10, ROE: 0.09},
	"Energy":                 {CurrentPE: 9.09, ForwardPE: 14.75, PB: 1.66, PS: 1.39, EVEBITDA: 6.70, PEG: 4.15, GrowthRate: 0.07, ROE: 0.14},
	"Industrials":            {CurrentPE: 43.07, ForwardPE: 21.97, PB: 4.27, PS: 2.87, EVEBITDA: 15.35, PEG: 1.92, GrowthRate: 0.09, ROE: 0.13},
	"Basic Materials":        {CurrentPE: 15.75, ForwardPE: 14.53, PB: 1.61, PS: 0.70, EVEBITDA: 7.97, PEG: 2.55, GrowthRate: 0.05, ROE: 0.11},
	"Other":                  {CurrentPE: 22.0, ForwardPE: 18.0, PB: 3.0, PS: 2.76, EVEBITDA: 11.0, PEG: 2.0, GrowthRate: 0.1, ROE: 0.12},
}

// GICS-style names seen in listings and other providers
var defaultAliases = map[string]string{
	"Information Technology": "Technology",
	"Financials":             "Financial Services",
	"Financial":              "Financial Services",
	"Consumer Discretionary": "Consumer Cyclical",
	"Consumer Staples":       "Consumer Defensive",
	"Health Care":            "Healthcare",
	"Materials":              "Basic Materials",
	"Telecommunication":      "Communication Services",
}

// Default returns the built-in table
func Default() *Table {
	t, err := New(defaultSectors, defaultAliases)
	if err != nil {
		// built-in data is static
		panic(err)
	}
	return t
}
