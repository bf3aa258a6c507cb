// Package imports registers the catalog import types with the core registry.
// Import this package to ensure all import types are registered.
package imports

// This file exists to provide a single import point.
// Each import file uses init() to register its definition.
