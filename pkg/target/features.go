// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package target

import (
	"fmt"
	"strings"
)

type Feature uint

const (
	FEATURE_MUL Feature = 1 << iota
	FEATURE_PRED
)

var featureNames = map[string]Feature{
	"mul":  FEATURE_MUL,
	"pred": FEATURE_PRED,
}

const DefaultFeatures = FEATURE_MUL

type FeatureSet uint

func (set FeatureSet) Has(feature Feature) bool {
	return feature == 0 || uint(set)&uint(feature) != 0
}

func (set FeatureSet) String() string {
	var parts []string

	for _, name := range []string{"mul", "pred"} {
		if set.Has(featureNames[name]) {
			parts = append(parts, "+"+name)
		}
	}

	return strings.Join(parts, ",")
}

func FeatureName(feature Feature) string {
	for name, f := range featureNames {
		if f == feature {
			return name
		}
	}

	return "<unknown>"
}

// ParseFeatures applies a comma separated list such as "+pred,-mul" on top
// of DefaultFeatures.
func ParseFeatures(s string) (FeatureSet, error) {
	set := uint(DefaultFeatures)

	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)

		if field == "" {
			continue
		}

		enable := true

		switch field[0] {
		case '+':
			field = field[1:]
		case '-':
			enable = false
			field = field[1:]
		}

		feature, ok := featureNames[strings.ToLower(field)]

		if !ok {
			return 0, fmt.Errorf("unknown target feature '%s'", field)
		}

		if enable {
			set |= uint(feature)
		} else {
			set &^= uint(feature)
		}
	}

	return FeatureSet(set), nil
}
