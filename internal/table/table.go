// Package table implements the generic data-table engine shared by every
// list view in the dashboard: free-text search, predicate filtering, stable
// multi-type sorting and pagination over an in-memory row collection. The
// engine performs no I/O of its own; callers fetch rows from the upstream
// API and feed them in.
package table

import (
	"errors"
	"strings"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Alignment is a presentation hint for a column.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Row is a single homogeneous record. Rows are supplied by the caller and
// never mutated by the engine.
type Row map[string]any

// Column describes one table column.
type Column struct {
	// Key is the row field this column displays. For virtual columns the
	// key does not need to exist on the row as long as Value is set.
	Key    string
	Header string

	// Sortable marks the column as a sort target. Sorting a virtual
	// column uses Value to resolve the comparable.
	Sortable bool

	// Align is a presentation hint passed through to the rendered page.
	Align Alignment

	// Value, when set, resolves the column's value from the row instead
	// of a direct key lookup.
	Value func(Row) any
}

// FilterKind selects the comparison a filter rule applies.
type FilterKind int

const (
	// FilterFieldEquals retains rows whose field equals the active
	// filter value. This is the default rule.
	FilterFieldEquals FilterKind = iota

	// FilterBoolEquals retains rows whose boolean field matches the
	// truthiness implied by the active filter value.
	FilterBoolEquals

	// FilterMembership retains rows whose field is a member of the set
	// configured for the active filter value.
	FilterMembership
)

// FilterOption is one selectable filter value. The implicit "all" option is
// always available and is never listed here.
type FilterOption struct {
	Value string
	Label string
}

// FilterRule is the tagged predicate applied when a filter other than "all"
// is active.
type FilterRule struct {
	Kind  FilterKind
	Field string

	// TruthyValue is the option value that maps to true for
	// FilterBoolEquals; every other option value maps to false.
	TruthyValue string

	// Sets maps option values to member sets for FilterMembership.
	Sets map[string][]string
}

// EmptyState is the caller-supplied placeholder shown when a page has no
// rows. Purely presentational.
type EmptyState struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Config is the immutable per-instance table configuration. It is
// constructed once per view and validated before use; all mutable state
// lives on the View.
type Config struct {
	Columns       []Column
	SearchKeys    []string
	FilterOptions []FilterOption

	// FilterRule is the predicate used for non-"all" filters. When nil
	// and FilterOptions are present, equality on the "status" field is
	// assumed.
	FilterRule *FilterRule

	PageSize int

	Sortable         bool
	DefaultSortKey   string
	DefaultSortOrder SortOrder

	Empty *EmptyState

	// OnFilterChange, when set, is invoked with the new filter value
	// whenever the active filter changes. Callers that re-fetch instead
	// of filtering locally hook in here.
	OnFilterChange func(value string)
}

// Validation errors returned by Config.Validate.
var (
	ErrNoColumns       = errors.New("at least one column is required")
	ErrColumnKeyEmpty  = errors.New("column key must not be empty")
	ErrPageSizeInvalid = errors.New("page size must be at least 1")
	ErrSortOrderBad    = errors.New("default sort order must be asc or desc")
)

// DefaultPageSize is used when Config.PageSize is zero.
const DefaultPageSize = 10

// Validate checks the configuration invariants. A zero PageSize is
// normalized to DefaultPageSize; a zero DefaultSortOrder to Descending,
// matching the dashboard's list views which show newest entries first.
func (c *Config) Validate() error {
	if len(c.Columns) == 0 {
		return ErrNoColumns
	}
	for _, col := range c.Columns {
		if strings.TrimSpace(col.Key) == "" {
			return ErrColumnKeyEmpty
		}
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PageSize < 1 {
		return ErrPageSizeInvalid
	}
	if c.DefaultSortOrder == "" {
		c.DefaultSortOrder = Descending
	}
	if c.DefaultSortOrder != Ascending && c.DefaultSortOrder != Descending {
		return ErrSortOrderBad
	}
	return nil
}

// column returns the column with the given key, or nil.
func (c *Config) column(key string) *Column {
	for i := range c.Columns {
		if c.Columns[i].Key == key {
			return &c.Columns[i]
		}
	}
	return nil
}

// sortableColumn reports whether key names a column marked sortable.
func (c *Config) sortableColumn(key string) bool {
	col := c.column(key)
	return col != nil && col.Sortable
}

// resolve returns the value the table uses for the given key on a row,
// honoring virtual columns.
func (c *Config) resolve(row Row, key string) any {
	if col := c.column(key); col != nil && col.Value != nil {
		return col.Value(row)
	}
	return row[key]
}
