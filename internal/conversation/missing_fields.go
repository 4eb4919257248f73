package conversation

// Missing-field labels, also used as expected-slot and question-slot names.
const (
	FieldBrand          = "brand"
	FieldModel          = "model"
	FieldTargetDistance = "target distance"
	FieldBudget         = "budget"
	FieldMinimumYear    = "minimum year"
	FieldFinancingData  = "financing data (price and term)"
	FieldDownPayment    = "approximate down payment"
	FieldTermYears      = "term in years"

	// SlotInitialPreference is the expected slot after a greeting, before any field is targeted.
	SlotInitialPreference = "initial preference"
)

// MissingFields lists what is still unknown after extraction, in asking order.
// Financing completeness is only checked when the client did not send
// explicit financing input with the original request.
func MissingFields(original ChatRequest, enriched EnrichedRequest) []string {
	missing := make([]string, 0, 8)
	prefs := enriched.Preferences

	if prefs.Make == "" {
		missing = append(missing, FieldBrand)
	}
	if prefs.Model == "" {
		missing = append(missing, FieldModel)
	}
	if prefs.MaxKM == 0 {
		missing = append(missing, FieldTargetDistance)
	}
	if prefs.MaxPrice == 0 {
		missing = append(missing, FieldBudget)
	}
	if prefs.MinYear == 0 {
		missing = append(missing, FieldMinimumYear)
	}

	if original.Financing == nil {
		draft := enriched.Financing
		switch {
		case draft == nil:
			missing = append(missing, FieldFinancingData)
		default:
			if draft.DownPayment == 0 {
				missing = append(missing, FieldDownPayment)
			}
			if draft.Years == 0 {
				missing = append(missing, FieldTermYears)
			}
		}
	}
	return missing
}
