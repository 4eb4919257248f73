// Package catalog indexes the vehicle inventory and exposes the brand/model
// vocabularies used by the dialogue engine.
package catalog

import (
	"sort"
	"strings"
	"sync"
)

// Car is a single inventory entry.
type Car struct {
	StockID string  `json:"stock_id"`
	KM      int     `json:"km"`
	Price   float64 `json:"price"`
	Make    string  `json:"make"`
	Model   string  `json:"model"`
	Year    int     `json:"year"`
	Version string  `json:"version,omitempty"`
}

// Catalog is an in-memory, replaceable index over the inventory.
type Catalog struct {
	mu           sync.RWMutex
	cars         []Car
	brands       []string
	modelsByMake map[string][]string // lower(make) -> sorted models
	allModels    []string
	makeByModel  map[string]string // lower(model) -> canonical make
}

// New builds a catalog over cars.
func New(cars []Car) *Catalog {
	c := &Catalog{}
	c.Replace(cars)
	return c
}

// Replace swaps the indexed inventory atomically.
func (c *Catalog) Replace(cars []Car) {
	brandSet := make(map[string]string)
	modelSets := make(map[string]map[string]struct{})
	allModels := make(map[string]struct{})
	makeByModel := make(map[string]string)

	kept := make([]Car, 0, len(cars))
	for _, car := range cars {
		car.Make = strings.TrimSpace(car.Make)
		car.Model = strings.TrimSpace(car.Model)
		if car.Make == "" || car.Model == "" {
			continue
		}
		kept = append(kept, car)

		makeKey := strings.ToLower(car.Make)
		if _, ok := brandSet[makeKey]; !ok {
			brandSet[makeKey] = car.Make
		}
		if modelSets[makeKey] == nil {
			modelSets[makeKey] = make(map[string]struct{})
		}
		modelSets[makeKey][car.Model] = struct{}{}
		allModels[car.Model] = struct{}{}

		modelKey := strings.ToLower(car.Model)
		if _, ok := makeByModel[modelKey]; !ok {
			makeByModel[modelKey] = brandSet[makeKey]
		}
	}

	brands := make([]string, 0, len(brandSet))
	for _, name := range brandSet {
		brands = append(brands, name)
	}
	sort.Strings(brands)

	modelsByMake := make(map[string][]string, len(modelSets))
	for key, set := range modelSets {
		modelsByMake[key] = sortedKeys(set)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cars = kept
	c.brands = brands
	c.modelsByMake = modelsByMake
	c.allModels = sortedKeys(allModels)
	c.makeByModel = makeByModel
}

// Len reports how many cars are indexed.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cars)
}

// Cars returns a copy of the indexed inventory.
func (c *Catalog) Cars() []Car {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Car, len(c.cars))
	copy(out, c.cars)
	return out
}

// ListBrands returns the distinct brand names, sorted.
func (c *Catalog) ListBrands() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.brands...)
}

// ListModels returns the sorted distinct models for brand, or every model when brand is empty.
func (c *Catalog) ListModels(brand string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return append([]string(nil), c.allModels...)
	}
	return append([]string(nil), c.modelsByMake[strings.ToLower(brand)]...)
}

// FindBrandByModel resolves the brand that sells model.
func (c *Catalog) FindBrandByModel(model string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	brand, ok := c.makeByModel[strings.ToLower(strings.TrimSpace(model))]
	return brand, ok
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
