package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultFFmpegBin   = "ffmpeg"   // ffmpeg 可执行文件
	DefaultOiiotoolBin = "oiiotool" // OpenImageIO 命令行工具
	// DefaultMediaTimeoutSeconds 为 0 表示不限制转码时长，
	// 长序列 EXR 转码可能远超常规 HTTP 超时.
	DefaultMediaTimeoutSeconds = 0
	DefaultMediaWorkDir        = "/tmp/outputvault-media" // 中间产物目录
)

// MediaConfig 媒体工具链（ffmpeg / oiiotool）配置.
type MediaConfig struct {
	FFmpegBin      string `mapstructure:"ffmpeg_bin"      rule:"required"`
	OiiotoolBin    string `mapstructure:"oiiotool_bin"    rule:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" rule:"min=0"`
	WorkDir        string `mapstructure:"work_dir"        rule:"required"`
}

// GetTimeout 返回转码超时；0 表示无超时.
func (c *MediaConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *MediaConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("media.ffmpeg_bin", DefaultFFmpegBin)
	v.SetDefault("media.oiiotool_bin", DefaultOiiotoolBin)
	v.SetDefault("media.timeout_seconds", DefaultMediaTimeoutSeconds)
	v.SetDefault("media.work_dir", DefaultMediaWorkDir)
}
