// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package appfilter is the data model behind the application launcher's
// search field: a mutable query string and the list of applications
// that match it.
//
// Matching uses fzf's fuzzy algorithm against each application's name,
// generic name, comment, keywords and executable. A query with several
// whitespace-separated terms matches an application only if every term
// matches one of those fields. Rows keep the source order; ranking by
// score is left to the view.
package appfilter

import (
	"slices"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// App is one launchable application.
type App struct {
	ID          string
	Name        string
	GenericName string
	Comment     string
	Executable  string
	Keywords    []string
}

func (a App) fields() []string {
	fields := make([]string, 0, 4+len(a.Keywords))
	fields = append(fields, a.Name, a.GenericName, a.Comment, a.Executable)
	return append(fields, a.Keywords...)
}

// Model holds the query and the source list. Safe for concurrent use;
// subscribers are called outside the lock.
type Model struct {
	mu          sync.Mutex
	query       string
	terms       [][]rune
	source      []App
	slab        *util.Slab
	subscribers []func(query string)
}

// New creates a model over source with an empty query.
func New(source []App) *Model {
	return &Model{
		source: append([]App(nil), source...),
		slab:   util.MakeSlab(100*1024, 2048),
	}
}

// Query returns the current query.
func (m *Model) Query() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query
}

// SetQuery replaces the query. Subscribers are notified, and true is
// returned, only when the value changes.
func (m *Model) SetQuery(query string) bool {
	m.mu.Lock()
	if query == m.query {
		m.mu.Unlock()
		return false
	}
	m.query = query
	m.terms = splitTerms(query)
	subscribers := slices.Clone(m.subscribers)
	m.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(query)
	}
	return true
}

// OnQueryChanged registers a callback for query changes.
func (m *Model) OnQueryChanged(callback func(query string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, callback)
}

// SetSource replaces the application list.
func (m *Model) SetSource(source []App) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = append([]App(nil), source...)
}

// Rows returns the applications matching the query, in source order.
// An empty query matches everything.
func (m *Model) Rows() []App {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.terms) == 0 {
		return append([]App(nil), m.source...)
	}
	var rows []App
	for _, app := range m.source {
		if m.matchesLocked(app) {
			rows = append(rows, app)
		}
	}
	return rows
}

// Count returns the number of matching applications.
func (m *Model) Count() int {
	return len(m.Rows())
}

func (m *Model) matchesLocked(app App) bool {
	fields := app.fields()
	for _, term := range m.terms {
		matched := false
		for _, field := range fields {
			if field != "" && m.fuzzyLocked(field, term) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// fuzzyLocked reports whether pattern (lower-case) fuzzy-matches text,
// ignoring case and diacritics. The matcher runs case-sensitively, so
// text is folded here. The slab is shared, hence the lock.
func (m *Model) fuzzyLocked(text string, pattern []rune) bool {
	chars := util.ToChars([]byte(strings.ToLower(text)))
	result, _ := algo.FuzzyMatchV2(false, true, true, &chars, pattern, false, m.slab)
	return result.Start >= 0
}

func splitTerms(query string) [][]rune {
	var terms [][]rune
	for _, term := range strings.Fields(strings.ToLower(query)) {
		terms = append(terms, []rune(term))
	}
	return terms
}
