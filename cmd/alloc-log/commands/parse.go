// Package commands implements the alloc-log CLI commands.
package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
)

// FilterOptions holds the textual filter flags shared by the commands.
type FilterOptions struct {
	NodeID    string
	Layer     string
	Category  string
	Code      string
	TimeStart string
	TimeEnd   string
}

// Build converts the options into a log filter.
func (o FilterOptions) Build() (log.Filter, error) {
	var filter log.Filter

	if o.NodeID != "" {
		id, err := nodeid.ParseNodeID(o.NodeID)
		if err != nil {
			return filter, fmt.Errorf("invalid node ID: %w", err)
		}
		filter.NodeID = &id
	}
	if o.Layer != "" {
		l, err := ParseLayerFlag(o.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if o.Code != "" {
		code, ok := log.ParseTraceCode(o.Code)
		if !ok {
			return filter, fmt.Errorf("unknown trace code: %s", o.Code)
		}
		filter.Code = &code
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}

// ParseLayerFlag parses a layer name (bus, raft, allocation).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "bus":
		return log.LayerBus, nil
	case "raft":
		return log.LayerRaft, nil
	case "allocation":
		return log.LayerAllocation, nil
	default:
		return 0, fmt.Errorf("unknown layer: %s (valid: bus, raft, allocation)", s)
	}
}

// ParseCategoryFlag parses a category name (frame, trace, state, failure).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "frame":
		return log.CategoryFrame, nil
	case "trace":
		return log.CategoryTrace, nil
	case "state":
		return log.CategoryState, nil
	case "failure":
		return log.CategoryFailure, nil
	default:
		return 0, fmt.Errorf("unknown category: %s (valid: frame, trace, state, failure)", s)
	}
}
