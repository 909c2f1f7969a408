package pathmap_test

import (
	"testing"

	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/pathmap"
)

func newTestMapper() *pathmap.Mapper {
	return pathmap.New(configs.MountsConfig{
		ToFarm: []configs.MountRule{
			{From: "/prod", To: "//nas/prod"},
			{From: "/prod/cache", To: "//cachenas/cache"}, // 更长前缀应优先
		},
		FromFarm: []configs.MountRule{
			{From: "//nas/prod", To: "/prod"},
		},
	})
}

func TestMapperToFarm(t *testing.T) {
	m := newTestMapper()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"基本前缀重写", "/prod/shots/sh010/comp.exr", "//nas/prod/shots/sh010/comp.exr"},
		{"最长前缀优先", "/prod/cache/fx/sim.vdb", "//cachenas/cache/fx/sim.vdb"},
		{"无匹配原样返回", "/other/path/file.ma", "/other/path/file.ma"},
		{"Windows 分隔符归一化", `\prod\shots\sh010\comp.exr`, "//nas/prod/shots/sh010/comp.exr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.ToFarm(tt.in); got != tt.want {
				t.Errorf("ToFarm(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMapperFromFarm(t *testing.T) {
	m := newTestMapper()

	got := m.FromFarm(`\\nas\prod\shots\sh010\comp.exr`)
	want := "/prod/shots/sh010/comp.exr"

	if got != want {
		t.Errorf("FromFarm = %q, want %q", got, want)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`P:\prod\file.exr`, "P:/prod/file.exr"},
		{`\\nas\prod`, "//nas/prod"},
		{"/a//b///c", "/a/b/c"},
		{"/already/clean", "/already/clean"},
	}

	for _, tt := range tests {
		if got := pathmap.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
