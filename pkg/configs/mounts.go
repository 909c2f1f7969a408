package configs

import "github.com/spf13/viper"

// MountRule 单条挂载点前缀映射规则.
type MountRule struct {
	From string `mapstructure:"from" rule:"required"` // 源路径前缀
	To   string `mapstructure:"to"   rule:"required"` // 目标路径前缀
}

// MountsConfig 挂载点路径映射表.
// 工作站与渲染节点看到的存储挂载点往往不同（/prod vs //nas/prod），
// 提交作业与回收产物时需要按方向重写路径前缀.
type MountsConfig struct {
	ToFarm   []MountRule `mapstructure:"to_farm"`   // 本地路径 -> 渲染节点路径
	FromFarm []MountRule `mapstructure:"from_farm"` // 渲染节点路径 -> 本地路径
}

func (c *MountsConfig) setDefaults(v *viper.Viper) {
	// 默认不做映射，路径原样透传
	v.SetDefault("mounts.to_farm", []map[string]string{})
	v.SetDefault("mounts.from_farm", []map[string]string{})
}
