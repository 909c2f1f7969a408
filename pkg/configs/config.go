// Package configs 管理应用程序配置，包括数据库、对象存储、消息队列、
// 渲染农场与媒体工具链的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "path/to/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing DB config:
//
//	config := configs.GetConfig()
//	dsn := config.DB.GetDSN()
//	fmt.Println("DSN:", dsn)
//
// Example accessing RenderFarm config:
//
//	config := configs.GetConfig()
//	fmt.Println("farm endpoint:", config.RenderFarm.Endpoint)
package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 数据库配置
		S3             S3Config             `mapstructure:"s3"`              // S3Config 对象存储配置
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值缓存配置
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器端口、超时等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 指标导出配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 分布式追踪配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件发布开关
		RenderFarm     RenderFarmConfig     `mapstructure:"render_farm"`     // RenderFarmConfig 渲染农场接入配置
		Media          MediaConfig          `mapstructure:"media"`           // MediaConfig 媒体工具链配置
		Mounts         MountsConfig         `mapstructure:"mounts"`          // MountsConfig 挂载点路径映射
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断器配置
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 速率限制配置
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(path + "/configs")

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.AutomaticEnv()
	appViper.SetEnvPrefix("OUTPUTVAULT")

	// 读取配置
	if err := appViper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// 解析到全局配置
	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var serverConfig ServerConfig

	var dbConfig DBConfig

	var s3Config S3Config

	var mqConfig MQConfig

	var kvConfig KVConfig

	var logConfig LogConfig

	var metricsConfig MetricsConfig

	var tracingConfig TracingConfig

	var eventsConfig EventsConfig

	var renderFarmConfig RenderFarmConfig

	var mediaConfig MediaConfig

	var mountsConfig MountsConfig

	var cbConfig CircuitBreakerConfig

	var rlConfig RateLimitConfig

	serverConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	s3Config.setDefaults(v)
	mqConfig.setDefaults(v)
	kvConfig.setDefaults(v)
	logConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	eventsConfig.setDefaults(v)
	renderFarmConfig.setDefaults(v)
	mediaConfig.setDefaults(v)
	mountsConfig.setDefaults(v)
	cbConfig.setDefaults(v)
	rlConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

func GetViper() *viper.Viper {
	return appViper
}
