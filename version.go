// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import "fmt"

// semanticAlphabet lists the characters allowed in the pre-release part of
// the version.
const semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

// These constants define the application version and follow the semantic
// versioning 2.0.0 spec (http://semver.org/).
const (
	appMajor uint = 0
	appMinor uint = 1
	appPatch uint = 0

	// appPreRelease MUST only contain characters from semanticAlphabet
	// per the semantic versioning spec.
	appPreRelease = "alpha"
)

// appBuild is defined as a variable so it can be overridden during the build
// process with '-ldflags "-X main.appBuild foo' if needed.  It MUST only
// contain characters from semanticAlphabet per the semantic versioning spec.
var appBuild string

// version returns the application version as a properly formed string per the
// semantic versioning 2.0.0 spec (http://semver.org/).
func version() string {
	v := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)

	if pre := normalizeVerString(appPreRelease); pre != "" {
		v = fmt.Sprintf("%s-%s", v, pre)
	}
	if build := normalizeVerString(appBuild); build != "" {
		v = fmt.Sprintf("%s+%s", v, build)
	}

	return v
}

// normalizeVerString returns the passed string stripped of all characters
// which are not valid according to the semantic versioning guidelines.
func normalizeVerString(str string) string {
	var result []rune
	for _, r := range str {
		for _, allowed := range semanticAlphabet {
			if r == allowed {
				result = append(result, r)
				break
			}
		}
	}
	return string(result)
}
