// Copyright 2025 Compliance IQ
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package registry provides the jurisdiction registry consumed by the
// batch coordinator. The registry is an explicit value handed to its
// consumers at construction, never a package-level singleton.
package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/nmogil/compliance-iq-sub003/core"
	"gopkg.in/yaml.v3"
)

// Registry holds the configured jurisdictions and answers
// enabled-set and name-lookup queries.
type Registry struct {
	jurisdictions []core.Jurisdiction
	byName        map[string]core.Jurisdiction
}

// New creates a registry from an explicit jurisdiction list.
// Later entries with a duplicate name override earlier ones for lookup.
func New(jurisdictions []core.Jurisdiction) *Registry {
	byName := make(map[string]core.Jurisdiction, len(jurisdictions))
	for _, j := range jurisdictions {
		byName[normalizeName(j.Name)] = j
	}
	return &Registry{
		jurisdictions: jurisdictions,
		byName:        byName,
	}
}

// registryFile is the on-disk YAML layout for LoadFile.
type registryFile struct {
	Jurisdictions []core.Jurisdiction `yaml:"jurisdictions"`
}

// LoadFile reads a jurisdiction registry from a YAML file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse registry file: %w", err)
	}
	if len(file.Jurisdictions) == 0 {
		return nil, ErrEmptyRegistry
	}

	return New(file.Jurisdictions), nil
}

// Default returns the built-in county registry used when no
// configuration file is supplied. Codes are county FIPS codes.
func Default() *Registry {
	return New([]core.Jurisdiction{
		{Name: "Travis", Code: "48453", Enabled: true},
		{Name: "Harris", Code: "48201", Enabled: true},
		{Name: "Dallas", Code: "48113", Enabled: true},
		{Name: "Bexar", Code: "48029", Enabled: true},
		{Name: "Tarrant", Code: "48439", Enabled: true},
		{Name: "El Paso", Code: "48141", Enabled: false},
	})
}

// All returns every configured jurisdiction, enabled or not.
func (r *Registry) All() []core.Jurisdiction {
	out := make([]core.Jurisdiction, len(r.jurisdictions))
	copy(out, r.jurisdictions)
	return out
}

// Enabled returns all enabled jurisdictions in registry order.
func (r *Registry) Enabled() []core.Jurisdiction {
	var out []core.Jurisdiction
	for _, j := range r.jurisdictions {
		if j.Enabled {
			out = append(out, j)
		}
	}
	return out
}

// Lookup finds a jurisdiction by name (case-insensitive).
func (r *Registry) Lookup(name string) (core.Jurisdiction, bool) {
	j, ok := r.byName[normalizeName(name)]
	return j, ok
}

// Select resolves a requested-name list to the working set:
// the intersection of requested names with enabled jurisdictions.
// Unknown or disabled names are silently dropped. An empty or nil
// request selects all enabled jurisdictions. Registry order is
// preserved regardless of request order.
func (r *Registry) Select(names []string) []core.Jurisdiction {
	if len(names) == 0 {
		return r.Enabled()
	}

	requested := make(map[string]bool, len(names))
	for _, name := range names {
		requested[normalizeName(name)] = true
	}

	var out []core.Jurisdiction
	for _, j := range r.jurisdictions {
		if j.Enabled && requested[normalizeName(j.Name)] {
			out = append(out, j)
		}
	}
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
