package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultFarmPollIntervalSeconds = 60    // 作业轮询周期，单位秒
	DefaultFarmRequeueLimit        = 10    // 分块重排队次数上限，超过判定失败
	DefaultFarmPoolCacheTTLSeconds = 300   // 渲染池/实例缓存的有效期
	DefaultFarmRequestTimeout      = 15    // 单次 HTTP 请求超时，单位秒
	DefaultFarmEnabled             = false // 默认不接入渲染农场
)

// RenderFarmConfig 渲染农场（farm manager）接入配置.
type RenderFarmConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	Endpoint            string `mapstructure:"endpoint"       rule:"omitempty,url"` // manager REST 根地址
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds" rule:"min=1"`
	RequeueLimit        int    `mapstructure:"requeue_limit"         rule:"min=1"`
	PoolCacheTTLSeconds int    `mapstructure:"pool_cache_ttl_seconds"`
	RequestTimeout      int    `mapstructure:"request_timeout_seconds" rule:"min=1,max=300"`
	DefaultPool         string `mapstructure:"default_pool"`     // 作业提交缺省渲染池
	DefaultPriority     int    `mapstructure:"default_priority"` // 作业提交缺省优先级
}

// GetPollInterval 返回轮询周期.
func (c *RenderFarmConfig) GetPollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// GetPoolCacheTTL 返回渲染池缓存有效期.
func (c *RenderFarmConfig) GetPoolCacheTTL() time.Duration {
	return time.Duration(c.PoolCacheTTLSeconds) * time.Second
}

// GetRequestTimeout 返回单次请求超时.
func (c *RenderFarmConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c *RenderFarmConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("render_farm.enabled", DefaultFarmEnabled)
	v.SetDefault("render_farm.endpoint", "http://localhost:9780")
	v.SetDefault("render_farm.username", "admin")
	v.SetDefault("render_farm.password", "")
	v.SetDefault("render_farm.poll_interval_seconds", DefaultFarmPollIntervalSeconds)
	v.SetDefault("render_farm.requeue_limit", DefaultFarmRequeueLimit)
	v.SetDefault("render_farm.pool_cache_ttl_seconds", DefaultFarmPoolCacheTTLSeconds)
	v.SetDefault("render_farm.request_timeout_seconds", DefaultFarmRequestTimeout)
	v.SetDefault("render_farm.default_pool", "")
	v.SetDefault("render_farm.default_priority", 50)
}
