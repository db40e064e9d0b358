/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo reports which version of the library a binary was built with.
package libinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const moduleName = "github.com/acronis/go-cachekit"

// PrometheusLibVersionLabel is a const label attached to every cache metric.
const PrometheusLibVersionLabel = "go_cachekit_version"

// AddPrometheusLibVersionLabel returns a copy of labels with the library version label added.
func AddPrometheusLibVersionLabel(labels prometheus.Labels) prometheus.Labels {
	res := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		res[k] = v
	}
	res[PrometheusLibVersionLabel] = GetLibVersion()
	return res
}

var (
	libVersion     string
	libVersionOnce sync.Once
)

// GetLibVersion returns the module version from the build info, or "v0.0.0" when it is unknown
// (tests, replace directives, builds inside this module).
func GetLibVersion() string {
	libVersionOnce.Do(func() {
		if info, ok := debug.ReadBuildInfo(); ok {
			libVersion = findModuleVersion(info, moduleName)
		}
		if libVersion == "" {
			libVersion = "v0.0.0"
		}
	})
	return libVersion
}

// findModuleVersion looks for modName, optionally followed by a major version suffix, among the dependencies.
func findModuleVersion(info *buildinfo.BuildInfo, modName string) string {
	if info == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	for _, dep := range info.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
