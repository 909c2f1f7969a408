// Package pathmap 在异构挂载点之间转换文件路径.
// 工作站、渲染节点与服务端对同一存储卷的挂载前缀各不相同
// （如 //nas/prod、/prod、P:\prod），落库路径需按方向重写后才能打开.
package pathmap

import (
	"sort"
	"strings"

	"github.com/yeisme/outputvault/pkg/configs"
)

// Direction 路径映射方向.
type Direction int

const (
	// ToFarm 本地路径转渲染节点路径（提交作业前）.
	ToFarm Direction = iota
	// FromFarm 渲染节点路径转本地路径（回收产物时）.
	FromFarm
)

// Mapper 按前缀规则表重写路径，规则来自配置而非硬编码.
// 同方向多条规则时最长前缀优先，无匹配则原样返回.
type Mapper struct {
	toFarm   []configs.MountRule
	fromFarm []configs.MountRule
}

// New 从挂载配置构建 Mapper，规则按前缀长度降序排好.
func New(cfg configs.MountsConfig) *Mapper {
	m := &Mapper{
		toFarm:   append([]configs.MountRule(nil), cfg.ToFarm...),
		fromFarm: append([]configs.MountRule(nil), cfg.FromFarm...),
	}

	sortRules(m.toFarm)
	sortRules(m.fromFarm)

	return m
}

func sortRules(rules []configs.MountRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].From) > len(rules[j].From)
	})
}

// Apply 按方向重写路径前缀. 输入先做分隔符归一化.
func (m *Mapper) Apply(path string, dir Direction) string {
	p := Normalize(path)

	rules := m.toFarm
	if dir == FromFarm {
		rules = m.fromFarm
	}

	for _, r := range rules {
		from := Normalize(r.From)
		if strings.HasPrefix(p, from) {
			return r.To + p[len(from):]
		}
	}

	return p
}

// ToFarm 本地路径 -> 渲染节点路径.
func (m *Mapper) ToFarm(path string) string { return m.Apply(path, ToFarm) }

// FromFarm 渲染节点路径 -> 本地路径.
func (m *Mapper) FromFarm(path string) string { return m.Apply(path, FromFarm) }

// Normalize 统一分隔符：反斜杠转正斜杠，保留 UNC 开头的双斜杠.
func Normalize(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")

	unc := strings.HasPrefix(p, "//")
	for strings.Contains(p[boolToInt(unc):], "//") {
		idx := boolToInt(unc)
		p = p[:idx] + strings.ReplaceAll(p[idx:], "//", "/")
	}

	return p
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
