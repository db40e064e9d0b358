/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package libinfo

import (
	"debug/buildinfo"
	"runtime/debug"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestFindModuleVersion(t *testing.T) {
	tests := []struct {
		name string
		info *buildinfo.BuildInfo
		want string
	}{
		{
			name: "direct dependency",
			info: &buildinfo.BuildInfo{Deps: []*debug.Module{
				{Path: "github.com/ssgreg/logf", Version: "v1.4.2"},
				{Path: moduleName, Version: "v1.2.3"},
			}},
			want: "v1.2.3",
		},
		{
			name: "major version suffix",
			info: &buildinfo.BuildInfo{Deps: []*debug.Module{{Path: moduleName + "/v2", Version: "v2.0.1"}}},
			want: "v2.0.1",
		},
		{
			name: "similar module name",
			info: &buildinfo.BuildInfo{Deps: []*debug.Module{{Path: moduleName + "-extra", Version: "v1.0.0"}}},
			want: "",
		},
		{
			name: "nil build info",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, findModuleVersion(tt.info, moduleName))
		})
	}
}

func TestAddPrometheusLibVersionLabel(t *testing.T) {
	labels := prometheus.Labels{"service": "sessions"}
	got := AddPrometheusLibVersionLabel(labels)
	require.Equal(t, "sessions", got["service"])
	require.NotEmpty(t, got[PrometheusLibVersionLabel])
	require.NotContains(t, labels, PrometheusLibVersionLabel)
}
