package conversation

import "sort"

// DefaultOptionLimit caps how many choices a clarification question offers.
const DefaultOptionLimit = 5

// OptionBuilder produces the closed answer lists for clarification questions.
type OptionBuilder struct {
	vocab Vocabulary
}

// NewOptionBuilder creates an option builder over vocab.
func NewOptionBuilder(vocab Vocabulary) *OptionBuilder {
	if vocab == nil {
		panic("conversation: vocabulary cannot be nil")
	}
	return &OptionBuilder{vocab: vocab}
}

// BrandOptions returns sorted distinct brands, truncated to limit (0 = no limit).
func (b *OptionBuilder) BrandOptions(limit int) []string {
	return truncateOptions(sortedDistinct(b.vocab.ListBrands()), limit)
}

// ModelOptions returns sorted distinct models of brand, truncated to limit (0 = no limit).
func (b *OptionBuilder) ModelOptions(brand string, limit int) []string {
	if brand == "" {
		return []string{}
	}
	return truncateOptions(sortedDistinct(b.vocab.ListModels(brand)), limit)
}

func sortedDistinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func truncateOptions(options []string, limit int) []string {
	if limit > 0 && len(options) > limit {
		return options[:limit]
	}
	return options
}
