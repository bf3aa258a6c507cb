package catalog

import (
	"sort"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

// matchEntity implements the lookup rule: exact code first, then the
// normalized name (or code) equal to the slug.
func matchEntity[T any](items []T, key string, active func(T) bool, code func(T) string, name func(T) string) *T {
	for i := range items {
		if active(items[i]) && code(items[i]) == key {
			return &items[i]
		}
	}
	slug := core.NormalizeName(key)
	for i := range items {
		if !active(items[i]) {
			continue
		}
		if core.NormalizeName(name(items[i])) == slug || core.NormalizeName(code(items[i])) == slug {
			return &items[i]
		}
	}
	return nil
}

// activeSorted filters and orders a collection by position.
func activeSorted[T any](items []T, active func(T) bool, pos func(T) int) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if active(it) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return pos(out[i]) < pos(out[j]) })
	return out
}

func findAttribute(items []core.AttributeType, key string) *core.AttributeType {
	return matchEntity(items, key,
		func(a core.AttributeType) bool { return a.Active },
		func(a core.AttributeType) string { return a.Code },
		func(a core.AttributeType) string { return a.Name })
}

func findFeature(items []core.FeatureType, key string) *core.FeatureType {
	return matchEntity(items, key,
		func(f core.FeatureType) bool { return f.Active },
		func(f core.FeatureType) string { return f.Code },
		func(f core.FeatureType) string { return f.Name })
}

func findPriceGroup(items []core.PriceGroup, key string) *core.PriceGroup {
	return matchEntity(items, key,
		func(p core.PriceGroup) bool { return p.Active },
		func(p core.PriceGroup) string { return p.Code },
		func(p core.PriceGroup) string { return p.Name })
}

func findWarehouse(items []core.Warehouse, key string) *core.Warehouse {
	return matchEntity(items, key,
		func(w core.Warehouse) bool { return w.Active },
		func(w core.Warehouse) string { return w.Code },
		func(w core.Warehouse) string { return w.Name })
}

var (
	_ core.CatalogSchemaProvider = (*Memory)(nil)
	_ core.CatalogSchemaProvider = (*Postgres)(nil)
	_ core.CatalogSchemaProvider = (*CachedProvider)(nil)
	_ core.Store                 = (*Memory)(nil)
	_ core.Store                 = (*Postgres)(nil)
)
