// Package catalog reads configuration definition catalogs: YAML documents
// with a top-level definitions list, checked against an embedded JSON
// Schema before they are decoded into domain definitions.
package catalog
