package model

import "strings"

// NodeIDSeparator separates the module path from the test name in an identifier.
const NodeIDSeparator = "::"

// TestItem is anything that can be ordered: a collected test or an identifier
// read back from history.
type TestItem interface {
	// Identifier returns the globally unique node id (<module>::<test-name>).
	Identifier() string
	// ModulePath returns the grouping key used by per-module focus modes.
	ModulePath() string
}

// TestCase is a top-level Go test function inside a package.
type TestCase struct {
	// Package import path (e.g., "github.com/perfgo/brightest/reorder")
	Package string `json:"package"`
	// Test function name (e.g., "TestReorder")
	Name string `json:"name"`
}

func (t TestCase) Identifier() string {
	return t.Package + NodeIDSeparator + t.Name
}

func (t TestCase) ModulePath() string {
	return t.Package
}

func (t TestCase) String() string {
	return t.Identifier()
}

// NodeID is a bare identifier, used when only the recorded name is known.
type NodeID string

func (n NodeID) Identifier() string {
	return string(n)
}

func (n NodeID) ModulePath() string {
	return ModuleOf(string(n))
}

// ModuleOf returns the part of an identifier before the first separator, or the
// whole identifier when it has none.
func ModuleOf(id string) string {
	module, _, _ := strings.Cut(id, NodeIDSeparator)
	return module
}

// ParseTestCase splits an identifier into package and test name.
func ParseTestCase(id string) TestCase {
	pkg, name, found := strings.Cut(id, NodeIDSeparator)
	if !found {
		return TestCase{Name: id}
	}
	return TestCase{Package: pkg, Name: name}
}

// Identifiers returns the identifiers of items in order.
func Identifiers[T TestItem](items []T) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.Identifier()
	}
	return ids
}
