package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled  bool                 `mapstructure:"enabled"` // 总开关
	Output   OutputEventsConfig   `mapstructure:"output"`
	Children ChildrenEventsConfig `mapstructure:"children"`
	Preview  PreviewEventsConfig  `mapstructure:"preview"`
}

// OutputEventsConfig 针对输出文件领域的事件开关。
type OutputEventsConfig struct {
	New        bool `mapstructure:"new"`
	WorkingNew bool `mapstructure:"working_new"`
}

// ChildrenEventsConfig 针对衍生文件领域的事件开关。
type ChildrenEventsConfig struct {
	New     bool `mapstructure:"new"`
	Updated bool `mapstructure:"updated"`
}

// PreviewEventsConfig 针对预览图片领域的事件开关。
type PreviewEventsConfig struct {
	Updated bool `mapstructure:"updated"`
	Deleted bool `mapstructure:"deleted"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	// 输出文件登记事件：衍生流水线依赖 output.new，必须默认开启
	v.SetDefault("events.output.new", true)
	v.SetDefault("events.output.working_new", true)

	// 衍生文件事件：new 驱动生成流程，updated 供外部消费
	v.SetDefault("events.children.new", true)
	v.SetDefault("events.children.updated", true)

	// 预览图片事件：默认开启，供资产浏览端刷新缩略图
	v.SetDefault("events.preview.updated", true)
	v.SetDefault("events.preview.deleted", true)
}
