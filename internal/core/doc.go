// Package core provides the tabular import pipeline for the product catalog.
//
// Nothing here knows about HTTP or the terminal. The web server and the
// importctl CLI both drive the same [Importer].
//
// # Pipeline
//
// One run moves a sheet through these stages:
//
//  1. [ReadTable] parses CSV (UTF-8 or Windows-1250, sniffed delimiter) or XLSX
//  2. [DetectColumns] maps raw headers to static fields and dynamic
//     "Prefix: Name" columns; [ImportDefinition.CheckHeader] rejects sheets
//     missing required columns
//  3. [TransformRow] coerces cells (TAK/NIE booleans, "1 234,56" decimals)
//  4. [ExpandCombinations] optionally turns "S|M" attribute cells into one
//     variant per combination
//  5. [Validator] checks structure first, then the catalog
//  6. [Engine.BulkApply] writes valid rows in transactional batches
//  7. [ErrorReporter] collects every problem, exportable as CSV or XLSX
//
// Every row ends up in exactly one bucket of [ImportRunSummary].
//
// # Import Types
//
// Import types register an [ImportDefinition] at init time; see the imports
// subpackage for variants, features and compatibility.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError]. Each
// category has a code for support reference:
//
//   - DB001-DB007: database errors (duplicates, constraints, connections)
//   - VAL001-VAL006: validation errors (formats, missing columns)
//   - FILE001-FILE005: file errors (size, encoding, format)
//   - IMP001-IMP005: import errors (unknown type, busy, cancelled, timeout)
package core
