package benchgen

import "github.com/XiaoConstantine/prodeval/pkg/catalog"

// DomainConfig describes how attribute domains are built from a catalog.
type DomainConfig struct {
	Categories      []string `mapstructure:"categories"`
	OlfactoryGroups []string `mapstructure:"olfactory_groups"`
	PriceLimits     []string `mapstructure:"price_limits"`
	TopCapacities   int      `mapstructure:"top_capacities"`
	BrandMinSupport int      `mapstructure:"brand_min_support"`
}

// DefaultDomainConfig returns the vocabularies used for the fragrance catalog.
func DefaultDomainConfig() DomainConfig {
	groups := make([]string, len(catalog.OlfactoryGroups))
	copy(groups, catalog.OlfactoryGroups)
	return DomainConfig{
		Categories:      []string{"Fragranze Donna", "Fragranze Uomo"},
		OlfactoryGroups: groups,
		PriceLimits:     []string{"<20", "<30", "<40", "<50", "<75", "<100"},
		TopCapacities:   5,
		BrandMinSupport: 20,
	}
}

// DefaultDomains derives the ordered attribute domains: brand, category,
// capacity, olfactory_category, price. Brand and capacity values come from
// catalog frequencies, the rest from cfg.
func DefaultDomains(t *catalog.Table, cfg DomainConfig) []Domain {
	return []Domain{
		{Attribute: AttrBrand, Values: catalog.BrandsWithMinSupport(t, cfg.BrandMinSupport)},
		{Attribute: AttrCategory, Values: cfg.Categories},
		{Attribute: AttrCapacity, Values: catalog.TopCapacities(t, cfg.TopCapacities)},
		{Attribute: AttrOlfactory, Values: cfg.OlfactoryGroups},
		{Attribute: AttrPrice, Values: cfg.PriceLimits},
	}
}
