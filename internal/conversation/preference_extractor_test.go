package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/autosales-assistant/internal/catalog"
	"github.com/wolfman30/autosales-assistant/internal/finance"
	"github.com/wolfman30/autosales-assistant/internal/session"
)

func newTestCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Car{
		{StockID: "1", Make: "Nissan", Model: "Sentra", Year: 2019, KM: 40000, Price: 250000},
		{StockID: "2", Make: "Nissan", Model: "Versa", Year: 2020, KM: 30000, Price: 220000},
		{StockID: "3", Make: "Toyota", Model: "Corolla", Year: 2021, KM: 20000, Price: 330000},
		{StockID: "4", Make: "Toyota", Model: "Camry", Year: 2018, KM: 60000, Price: 310000},
		{StockID: "5", Make: "Volkswagen", Model: "Jetta", Year: 2017, KM: 80000, Price: 200000},
		{StockID: "6", Make: "Mazda", Model: "CX-5", Year: 2022, KM: 15000, Price: 450000},
		{StockID: "7", Make: "Kia", Model: "Rio", Year: 2021, KM: 25000, Price: 240000},
		{StockID: "8", Make: "Honda", Model: "Civic", Year: 2019, KM: 50000, Price: 300000},
		{StockID: "9", Make: "Mazda", Model: "3", Year: 2020, KM: 35000, Price: 280000},
	})
}

func TestEnrich_ExtractsSlotsFromMessage(t *testing.T) {
	extractor := NewPreferenceExtractor(newTestCatalog())

	got := extractor.Enrich(ChatRequest{
		UserID:  "u1",
		Message: "busco un Nissan Sentra con menos de 45000 km del 2019",
	})

	assert.Equal(t, "Nissan", got.Preferences.Make)
	assert.Equal(t, "Sentra", got.Preferences.Model)
	assert.Equal(t, 45000, got.Preferences.MaxKM)
	assert.Equal(t, 2019, got.Preferences.MinYear)
	assert.Zero(t, got.Preferences.MaxPrice)
	assert.Nil(t, got.Financing)
	assert.Equal(t, "u1", got.UserID)
}

func TestEnrich_BrandFromAliasAndModelLookup(t *testing.T) {
	extractor := NewPreferenceExtractor(newTestCatalog())

	tests := []struct {
		name      string
		message   string
		wantMake  string
		wantModel string
	}{
		{name: "alias vw", message: "algo de vw por favor", wantMake: "Volkswagen"},
		{name: "alias chevy", message: "un chevy económico", wantMake: "Chevrolet"},
		{name: "model derives brand", message: "me gusta el corolla", wantMake: "Toyota", wantModel: "Corolla"},
		{name: "model alias derives brand", message: "quiero una cx5", wantMake: "Mazda", wantModel: "CX-5"},
		{name: "three letter model", message: "un rio azul", wantMake: "Kia", wantModel: "Rio"},
		{name: "short model names skipped", message: "quiero un 3 rojo", wantMake: "", wantModel: ""},
		{name: "case insensitive", message: "TOYOTA CAMRY", wantMake: "Toyota", wantModel: "Camry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.Enrich(ChatRequest{Message: tt.message})
			assert.Equal(t, tt.wantMake, got.Preferences.Make)
			assert.Equal(t, tt.wantModel, got.Preferences.Model)
		})
	}
}

func TestEnrich_NeverOverridesKnownSlots(t *testing.T) {
	extractor := NewPreferenceExtractor(newTestCatalog())
	known := session.Preferences{Make: "Toyota", MaxKM: 10000, MinYear: 2021, MaxPrice: 400000}

	got := extractor.Enrich(ChatRequest{
		Message:     "mejor un Nissan con 90000 km del 2015 por 150000",
		Preferences: &known,
	})

	assert.Equal(t, "Toyota", got.Preferences.Make)
	assert.Equal(t, 10000, got.Preferences.MaxKM)
	assert.Equal(t, 2021, got.Preferences.MinYear)
	assert.Equal(t, 400000.0, got.Preferences.MaxPrice)
	assert.Equal(t, session.Preferences{Make: "Toyota", MaxKM: 10000, MinYear: 2021, MaxPrice: 400000}, known)
}

func TestEnrich_IsIdempotent(t *testing.T) {
	extractor := NewPreferenceExtractor(newTestCatalog())
	req := ChatRequest{Message: "un honda civic 2018 o 2020, presupuesto 280k y máximo 60 mil km"}

	first := extractor.Enrich(req)
	second := extractor.Enrich(req)
	assert.Equal(t, first, second)

	again := extractor.Enrich(ChatRequest{Message: req.Message, Preferences: &first.Preferences})
	assert.Equal(t, first.Preferences, again.Preferences)

	assert.Equal(t, "Honda", first.Preferences.Make)
	assert.Equal(t, "Civic", first.Preferences.Model)
	assert.Equal(t, 2018, first.Preferences.MinYear)
	assert.Equal(t, 60000, first.Preferences.MaxKM)
	assert.Equal(t, 280000.0, first.Preferences.MaxPrice)
}

func TestEnrich_ExplicitFinancingWins(t *testing.T) {
	extractor := NewPreferenceExtractor(newTestCatalog())
	explicit := &finance.Input{CarPrice: 200000, DownPayment: 20000, Years: 3}

	got := extractor.Enrich(ChatRequest{
		Message:   "quiero financiar 300000 con un enganche de 60000 a 4 años",
		Financing: explicit,
	})

	require.NotNil(t, got.Financing)
	assert.Equal(t, *explicit, *got.Financing)
	assert.NotSame(t, explicit, got.Financing)
}

func TestExtractKilometers(t *testing.T) {
	tests := []struct {
		message string
		want    int
	}{
		{"menos de 45000 km", 45000},
		{"menos de 45,000 km", 45000},
		{"unos 45.000 kilómetros", 45000},
		{"máximo 60 mil km", 60000},
		{"hasta 80k km", 80000},
		{"30 kilometros", 30},
		{"sin kilometraje", 0},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKilometers(tt.message))
		})
	}
}

func TestExtractMinYear(t *testing.T) {
	tests := []struct {
		message string
		want    int
	}{
		{"del 2019", 2019},
		{"entre 2021 y 2018", 2018},
		{"modelo 1999", 0},
		{"del 2045", 0},
		{"precio 120190", 0},
		{"sin año", 0},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMinYear(tt.message))
		})
	}
}

func TestExtractBudget(t *testing.T) {
	tests := []struct {
		message string
		want    float64
	}{
		{"tengo 250000 pesos", 250000},
		{"hasta 250,000", 250000},
		{"unos 300k", 300000},
		{"alrededor de 350 mil", 350000},
		{"del 2019 con 20000 de enganche", 0},
		{"solo 45000", 0},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBudget(tt.message))
		})
	}
}

func TestExtractFinancing(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    *finance.Input
	}{
		{
			name:    "price down payment and term",
			message: "quiero financiar 300000 con un enganche de 60000 a 4 años",
			want:    &finance.Input{CarPrice: 300000, DownPayment: 60000, Years: 4},
		},
		{
			name:    "swapped amounts",
			message: "enganche de 50000 para un auto de 250000 a 5 años",
			want:    &finance.Input{CarPrice: 250000, DownPayment: 50000, Years: 5},
		},
		{
			name:    "price and term without down payment",
			message: "un auto de 280000 a 3 years",
			want:    &finance.Input{CarPrice: 280000, Years: 3},
		},
		{
			name:    "single amount with keyword is down payment only",
			message: "tengo 60000 de enganche a 4 años",
			want:    nil,
		},
		{
			name:    "no term",
			message: "quiero financiar 300000 con 60000",
			want:    nil,
		},
		{
			name:    "years are not amounts",
			message: "un 2020 a 4 años",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFinancing(tt.message))
		})
	}
}

func TestMissingFields(t *testing.T) {
	tests := []struct {
		name     string
		original ChatRequest
		enriched EnrichedRequest
		want     []string
	}{
		{
			name: "nothing known",
			want: []string{FieldBrand, FieldModel, FieldTargetDistance, FieldBudget, FieldMinimumYear, FieldFinancingData},
		},
		{
			name: "all preferences and complete draft",
			enriched: EnrichedRequest{
				Preferences: session.Preferences{Make: "Nissan", Model: "Sentra", MaxKM: 1, MaxPrice: 1, MinYear: 2019},
				Financing:   &finance.Input{CarPrice: 300000, DownPayment: 60000, Years: 4},
			},
			want: []string{},
		},
		{
			name: "draft without down payment",
			enriched: EnrichedRequest{
				Preferences: session.Preferences{Make: "Nissan", Model: "Sentra", MaxKM: 1, MaxPrice: 1, MinYear: 2019},
				Financing:   &finance.Input{CarPrice: 300000, Years: 4},
			},
			want: []string{FieldDownPayment},
		},
		{
			name: "draft without term",
			enriched: EnrichedRequest{
				Preferences: session.Preferences{Make: "Nissan"},
				Financing:   &finance.Input{CarPrice: 300000, DownPayment: 10000},
			},
			want: []string{FieldModel, FieldTargetDistance, FieldBudget, FieldMinimumYear, FieldTermYears},
		},
		{
			name:     "explicit financing skips financing checks",
			original: ChatRequest{Financing: &finance.Input{}},
			want:     []string{FieldBrand, FieldModel, FieldTargetDistance, FieldBudget, FieldMinimumYear},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MissingFields(tt.original, tt.enriched))
		})
	}
}

func TestOptionBuilder(t *testing.T) {
	builder := NewOptionBuilder(newTestCatalog())

	assert.Equal(t, []string{"Honda", "Kia", "Mazda", "Nissan", "Toyota"}, builder.BrandOptions(5))
	assert.Len(t, builder.BrandOptions(0), 6)
	assert.Equal(t, []string{"Camry", "Corolla"}, builder.ModelOptions("toyota", 5))
	assert.Equal(t, []string{"Sentra"}, builder.ModelOptions("Nissan", 1))
	assert.Empty(t, builder.ModelOptions("Ferrari", 5))
	assert.Empty(t, builder.ModelOptions("", 5))

	empty := NewOptionBuilder(catalog.New(nil))
	assert.Empty(t, empty.BrandOptions(5))
}
