package services

import (
	"fmt"
	"strings"

	"dbrest/internal/config"
	"dbrest/internal/logger"
	"dbrest/internal/models"
)

// Registry maps client-facing aliases to reflected tables. Aliases are
// matched case-insensitively. A Registry is immutable once built.
type Registry struct {
	bindings map[string]*models.AliasBinding
	ordered  []*models.AliasBinding
}

// NewRegistry binds every configured table to its alias. With no configured
// tables every catalog table is exposed under its own name. A configured
// table missing from the catalog or a duplicate alias is an error.
//
// A configured id field never overrides the reflected primary key.
func NewRegistry(catalog *Catalog, tables []config.TableConfig) (*Registry, error) {
	if len(tables) == 0 {
		for _, t := range catalog.Tables() {
			tables = append(tables, config.TableConfig{Name: t.Name, Alias: t.Name})
		}
	}

	r := &Registry{bindings: make(map[string]*models.AliasBinding, len(tables))}
	for _, tc := range tables {
		table, ok := catalog.Table(tc.Name)
		if !ok {
			return nil, fmt.Errorf("configured table %q is not in the catalog", tc.Name)
		}

		alias := tc.Alias
		if alias == "" {
			alias = tc.Name
		}
		alias = strings.ToLower(alias)
		if _, dup := r.bindings[alias]; dup {
			return nil, fmt.Errorf("alias %q is configured more than once", alias)
		}

		idField, _ := table.PrimaryKey()
		if tc.IDField != "" && tc.IDField != idField {
			logger.Warn("Ignoring configured id field %q for %s; using reflected key %q", tc.IDField, table.Name, idField)
		}

		b := &models.AliasBinding{Alias: alias, Table: table, IDField: idField}
		r.bindings[alias] = b
		r.ordered = append(r.ordered, b)
	}
	return r, nil
}

// Resolve returns the binding for alias.
func (r *Registry) Resolve(alias string) (*models.AliasBinding, bool) {
	b, ok := r.bindings[strings.ToLower(alias)]
	return b, ok
}

// ResolveTable finds a binding by its underlying table name, falling back to
// the alias. Both comparisons ignore case.
func (r *Registry) ResolveTable(name string) (*models.AliasBinding, bool) {
	for _, b := range r.ordered {
		if strings.EqualFold(b.Table.Name, name) {
			return b, true
		}
	}
	return r.Resolve(name)
}

// Bindings returns the bindings in configuration order.
func (r *Registry) Bindings() []*models.AliasBinding {
	return r.ordered
}

// Tables returns the distinct tables exposed through the registry.
func (r *Registry) Tables() []*models.Table {
	seen := make(map[*models.Table]bool, len(r.ordered))
	tables := make([]*models.Table, 0, len(r.ordered))
	for _, b := range r.ordered {
		if seen[b.Table] {
			continue
		}
		seen[b.Table] = true
		tables = append(tables, b.Table)
	}
	return tables
}
