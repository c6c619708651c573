// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import "regexp"

// EntityFilter identifies entities of the analyzed program, by name and node kind. Empty fields match anything.
// The strings are seen as regexes if they can be compiled to regexes, otherwise they are compared for equality.
type EntityFilter struct {
	Entity string `yaml:"entity"`
	Kind   string `yaml:"kind"`
	// This will not be part of the yaml config
	computedRegexs *entityFilterRegex
}

type entityFilterRegex struct {
	entityRegex *regexp.Regexp
	kindRegex   *regexp.Regexp
}

// compileRegexes compiles the strings in the filter into regexes. It compiles all strings into regexes or none.
func compileRegexes(f EntityFilter) EntityFilter {
	entityRegex, err := regexp.Compile(f.Entity)
	if err != nil {
		return f
	}
	kindRegex, err := regexp.Compile(f.Kind)
	if err != nil {
		return f
	}
	f.computedRegexs = &entityFilterRegex{entityRegex, kindRegex}
	return f
}

// NewEntityFilter returns a filter matching entity names and node kinds
func NewEntityFilter(entity string, kind string) EntityFilter {
	return compileRegexes(EntityFilter{Entity: entity, Kind: kind})
}

// Matches returns true if the entity name and kind match the filter
func (f EntityFilter) Matches(name string, kind string) bool {
	if f.computedRegexs != nil {
		return (f.Entity == "" || f.computedRegexs.entityRegex.MatchString(name)) &&
			(f.Kind == "" || f.computedRegexs.kindRegex.MatchString(kind))
	}
	return (f.Entity == "" || f.Entity == name) && (f.Kind == "" || f.Kind == kind)
}
