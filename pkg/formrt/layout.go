package formrt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// SpanFullRow is the span token of a field covering the whole row.
const SpanFullRow = "full-row"

// Layout is the packed grid of a field list.
type Layout struct {
	Positions []FieldPosition `json:"positions"`
	Spans     []string        `json:"spans"` // Span token per position, same order
}

// LayoutCache memoizes packed layouts. It is owned by the caller, typically
// one per open form session, and is passed into Pack explicitly.
type LayoutCache interface {
	Get(key string) (Layout, bool)
	Put(key string, layout Layout)
	Reset()
}

// LayoutKey derives the cache key from the ordered (id, width) pairs and the column count.
func LayoutKey(fields []Field, columns int) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.ID)
		b.WriteByte(0)
		b.WriteString(string(f.Width.Normalize()))
		b.WriteByte(0)
	}
	b.WriteString(strconv.Itoa(clampColumns(columns)))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Pack places the fields left to right, top to bottom on a grid of
// cfg.Columns columns. It is a first-fit packer without reflow: declaration
// order is kept and a filled row always forces the next field onto a new row.
// cache may be nil.
func Pack(fields []Field, cfg LayoutConfig, cache LayoutCache) Layout {
	columns := clampColumns(cfg.Columns)

	var key string
	if cache != nil {
		key = LayoutKey(fields, columns)
		if cached, ok := cache.Get(key); ok {
			return cached
		}
	}

	layout := Layout{
		Positions: make([]FieldPosition, 0, len(fields)),
		Spans:     make([]string, 0, len(fields)),
	}

	row, col := 0, 0
	for _, f := range fields {
		span := ColumnSpan(f.Width, columns)
		if col+span > columns {
			row++
			col = 0
		}
		layout.Positions = append(layout.Positions, FieldPosition{
			ID:     f.ID,
			X:      col,
			Y:      row,
			Width:  span,
			Height: 1,
		})
		layout.Spans = append(layout.Spans, SpanToken(span, columns))
		col += span
		if col >= columns {
			row++
			col = 0
		}
	}

	if cache != nil {
		cache.Put(key, layout)
	}
	return layout
}

// ColumnSpan converts an authored width into a column span.
func ColumnSpan(w Width, columns int) int {
	columns = clampColumns(columns)
	switch w.Normalize() {
	case WidthHalf:
		return max(1, columns/2)
	case WidthQuarter:
		return max(1, columns/4)
	default:
		return columns
	}
}

// SpanToken is "full-row" for spans covering the row, otherwise the span itself.
func SpanToken(span, columns int) string {
	if span >= clampColumns(columns) {
		return SpanFullRow
	}
	return strconv.Itoa(span)
}

func clampColumns(columns int) int {
	if columns < 1 {
		return 1
	}
	return columns
}

// GridCSS is the container declaration shared by every renderer.
type GridCSS struct {
	Columns        int    `json:"columns"`
	Template       string `json:"template"`                 // grid-template-columns
	GapToken       string `json:"gapToken"`                 // small, medium, large
	Gap            string `json:"gap"`                      // CSS length
	MobileTemplate string `json:"mobileTemplate,omitempty"` // Set when responsive
	MobileMaxWidth string `json:"mobileMaxWidth,omitempty"` // Breakpoint of the override
}

const mobileBreakpoint = "640px"

// Grid builds the container declaration for a layout config.
func Grid(cfg LayoutConfig) GridCSS {
	columns := clampColumns(cfg.Columns)
	token, gap := GapFor(cfg.GridGap)
	grid := GridCSS{
		Columns:  columns,
		Template: fmt.Sprintf("repeat(%d, minmax(0, 1fr))", columns),
		GapToken: token,
		Gap:      gap,
	}
	if cfg.Responsive {
		grid.MobileTemplate = "minmax(0, 1fr)"
		grid.MobileMaxWidth = mobileBreakpoint
	}
	return grid
}

// GapFor maps a gap setting to its token and CSS length. Unknown values use md.
func GapFor(g GridGap) (token, length string) {
	switch g {
	case GapSmall:
		return "small", "0.5rem"
	case GapLarge:
		return "large", "1.5rem"
	default:
		return "medium", "1rem"
	}
}

// MemoryLayoutCache is an in-process LayoutCache. It is safe for concurrent use.
type MemoryLayoutCache struct {
	mu         sync.RWMutex
	entries    map[string]Layout
	maxEntries int
}

// NewMemoryLayoutCache creates a cache holding at most maxEntries layouts
// (0 = unbounded). When full, it starts over empty.
func NewMemoryLayoutCache(maxEntries int) *MemoryLayoutCache {
	return &MemoryLayoutCache{
		entries:    make(map[string]Layout),
		maxEntries: maxEntries,
	}
}

func (c *MemoryLayoutCache) Get(key string) (Layout, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	layout, ok := c.entries[key]
	if !ok {
		return Layout{}, false
	}
	return layout.clone(), true
}

func (c *MemoryLayoutCache) Put(key string, layout Layout) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.entries = make(map[string]Layout)
	}
	c.entries[key] = layout.clone()
}

func (c *MemoryLayoutCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Layout)
}

// Len returns the number of cached layouts.
func (c *MemoryLayoutCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (l Layout) clone() Layout {
	out := Layout{
		Positions: make([]FieldPosition, len(l.Positions)),
		Spans:     make([]string, len(l.Spans)),
	}
	copy(out.Positions, l.Positions)
	copy(out.Spans, l.Spans)
	return out
}
