package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wolfman30/autosales-assistant/internal/finance"
	"github.com/wolfman30/autosales-assistant/internal/session"
)

// Vocabulary is the catalog view needed to recognize brands and models.
type Vocabulary interface {
	ListBrands() []string
	ListModels(brand string) []string
	FindBrandByModel(model string) (string, bool)
}

const (
	minModelLength      = 3
	minBudgetAmount     = 50000
	minFinancingAmount  = 10000
	minYearFloor        = 2000
	maxYearFloor        = 2030
	yearLikeLowerBound  = 1900
	yearLikeUpperBound  = 2100
	thousandsMultiplier = 1000
)

var (
	kmPattern          = regexp.MustCompile(`(?i)(\d{1,3})(?:\s*|,|\.)?(\d{3})?\s*(k|mil)?\s*(?:km|kil[oó]metros?)`)
	yearPattern        = regexp.MustCompile(`\b(20\d{2})\b`)
	amountPattern      = regexp.MustCompile(`(?i)\b(\d+[\d,.]*)(?:\s*(k|mil))?\b`)
	yearsTermPattern   = regexp.MustCompile(`(?i)(\d+)\s*(años|anios|years)`)
	downPaymentPattern = regexp.MustCompile(`(?i)enganche|anticipo`)
)

// Alias tables are checked in order after the catalog vocabulary misses.
var brandAliases = []struct{ alias, canonical string }{
	{"vw", "Volkswagen"},
	{"volks", "Volkswagen"},
	{"chevy", "Chevrolet"},
	{"bmw", "BMW"},
}

var modelAliases = []struct{ alias, canonical string }{
	{"vento", "Vento"},
	{"vocho", "Sedan"},
	{"cx5", "CX-5"},
}

// PreferenceExtractor turns free text into purchase preferences and an
// optional financing draft. It never removes or overrides known slots.
type PreferenceExtractor struct {
	vocab Vocabulary
}

// NewPreferenceExtractor creates an extractor over vocab.
func NewPreferenceExtractor(vocab Vocabulary) *PreferenceExtractor {
	if vocab == nil {
		panic("conversation: vocabulary cannot be nil")
	}
	return &PreferenceExtractor{vocab: vocab}
}

// Enrich fills unknown slots of req from req.Message. Explicit financing in
// req always wins over a drafted one.
func (e *PreferenceExtractor) Enrich(req ChatRequest) EnrichedRequest {
	var prefs session.Preferences
	if req.Preferences != nil {
		prefs = *req.Preferences
	}
	msg := req.Message

	if prefs.Make == "" {
		prefs.Make = e.extractBrand(msg)
	}
	if prefs.Model == "" {
		prefs.Model = e.extractModel(msg, prefs.Make)
	}
	if prefs.Make == "" && prefs.Model != "" {
		if brand, ok := e.vocab.FindBrandByModel(prefs.Model); ok {
			prefs.Make = brand
		}
	}
	if prefs.MaxKM == 0 {
		prefs.MaxKM = ExtractKilometers(msg)
	}
	if prefs.MinYear == 0 {
		prefs.MinYear = ExtractMinYear(msg)
	}
	if prefs.MaxPrice == 0 {
		prefs.MaxPrice = ExtractBudget(msg)
	}

	out := EnrichedRequest{
		UserID:      req.UserID,
		Message:     req.Message,
		Channel:     req.Channel,
		Preferences: prefs,
	}
	if req.Financing != nil {
		explicit := *req.Financing
		out.Financing = &explicit
	} else {
		out.Financing = ExtractFinancing(msg)
	}
	return out
}

func (e *PreferenceExtractor) extractBrand(message string) string {
	text := strings.ToLower(message)
	for _, brand := range e.vocab.ListBrands() {
		if brand != "" && strings.Contains(text, strings.ToLower(brand)) {
			return brand
		}
	}
	for _, a := range brandAliases {
		if strings.Contains(text, a.alias) {
			return a.canonical
		}
	}
	return ""
}

func (e *PreferenceExtractor) extractModel(message, brand string) string {
	text := strings.ToLower(message)
	for _, model := range e.vocab.ListModels(brand) {
		candidate := strings.ToLower(model)
		if len([]rune(candidate)) < minModelLength {
			continue
		}
		if strings.Contains(text, candidate) {
			return model
		}
	}
	for _, a := range modelAliases {
		if strings.Contains(text, a.alias) {
			return a.canonical
		}
	}
	return ""
}

// ExtractKilometers reads a mileage ceiling such as "45000 km", "45,000 km"
// or "45 mil kilómetros". It returns 0 when none is present.
func ExtractKilometers(message string) int {
	m := kmPattern.FindStringSubmatch(message)
	if m == nil {
		return 0
	}
	if m[2] != "" {
		n, _ := strconv.Atoi(m[1] + m[2])
		return n
	}
	n, _ := strconv.Atoi(m[1])
	if m[3] != "" {
		n *= thousandsMultiplier
	}
	return n
}

// ExtractMinYear returns the smallest 20xx year in [2000, 2030], or 0.
func ExtractMinYear(message string) int {
	floor := 0
	for _, m := range yearPattern.FindAllStringSubmatch(message, -1) {
		year, err := strconv.Atoi(m[1])
		if err != nil || year < minYearFloor || year > maxYearFloor {
			continue
		}
		if floor == 0 || year < floor {
			floor = year
		}
	}
	return floor
}

// ExtractBudget returns the first plausible budget amount, skipping years and
// small numbers. It returns 0 when none qualifies.
func ExtractBudget(message string) float64 {
	for _, amount := range scanAmounts(message) {
		if isYearLike(amount) {
			continue
		}
		if amount > minBudgetAmount {
			return amount
		}
	}
	return 0
}

// ExtractFinancing drafts financing input from free text. The first two
// qualifying amounts are read as price and down payment; a lone amount next
// to a down-payment keyword is a down payment without a price. A draft needs
// both a price and a term.
func ExtractFinancing(message string) *finance.Input {
	var amounts []float64
	for _, amount := range scanAmounts(message) {
		if isYearLike(amount) {
			continue
		}
		if amount > minFinancingAmount {
			amounts = append(amounts, amount)
		}
	}
	if len(amounts) == 0 {
		return nil
	}

	years := 0
	if m := yearsTermPattern.FindStringSubmatch(message); m != nil {
		years, _ = strconv.Atoi(m[1])
	}
	mentionsDownPayment := downPaymentPattern.MatchString(message)

	var price, downPayment float64
	switch {
	case len(amounts) > 1:
		price, downPayment = amounts[0], amounts[1]
	case mentionsDownPayment:
		downPayment = amounts[0]
	default:
		price = amounts[0]
	}
	if price > 0 && downPayment > 0 && price <= downPayment {
		price, downPayment = downPayment, price
	}

	if years == 0 || price == 0 {
		return nil
	}
	return &finance.Input{CarPrice: price, DownPayment: downPayment, Years: years}
}

func scanAmounts(message string) []float64 {
	matches := amountPattern.FindAllStringSubmatch(message, -1)
	amounts := make([]float64, 0, len(matches))
	for _, m := range matches {
		if amount, ok := parseAmount(m[1], m[2]); ok {
			amounts = append(amounts, amount)
		}
	}
	return amounts
}

// parseAmount strips thousand separators and applies a k/mil multiplier.
func parseAmount(token, multiplier string) (float64, bool) {
	normalized := strings.NewReplacer(",", "", ".", "").Replace(token)
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(multiplier) {
	case "k", "mil":
		value *= thousandsMultiplier
	}
	return value, true
}

func isYearLike(amount float64) bool {
	return amount >= yearLikeLowerBound && amount <= yearLikeUpperBound
}
