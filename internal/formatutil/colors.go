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

// Package formatutil colors and formats the output of the command line tools.
package formatutil

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Style formats its arguments like fmt.Sprint, with an escape sequence when colors are enabled
type Style func(...any) string

var colorsEnabled = term.IsTerminal(int(os.Stdout.Fd()))

// SetColors enables or disables the escape sequences of all styles. Colors are enabled by default when the
// standard output is a terminal.
func SetColors(enabled bool) {
	colorsEnabled = enabled
}

// ColorsEnabled returns true if styles emit escape sequences
func ColorsEnabled() bool {
	return colorsEnabled
}

var (
	Bold   = newStyle("1")
	Faint  = newStyle("2")
	Red    = newStyle("1;31")
	Green  = newStyle("1;32")
	Yellow = newStyle("1;33")
	Purple = newStyle("1;34")
	Cyan   = newStyle("1;36")
)

func newStyle(code string) Style {
	return func(args ...any) string {
		s := fmt.Sprint(args...)
		if !colorsEnabled {
			return s
		}
		return "\033[" + code + "m" + s + "\033[0m"
	}
}

// Sanitize removes the escape sequences of s
func Sanitize(s string) string {
	r := fmt.Sprintf("%q", s)
	if len(r) >= 2 {
		return r[1 : len(r)-1]
	}
	return r
}

// Set formats names as a set, each name being sanitized and formatted with style
func Set(names []string, style Style) string {
	var b strings.Builder
	b.WriteString("{")
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(style(Sanitize(n)))
	}
	b.WriteString("}")
	return b.String()
}
