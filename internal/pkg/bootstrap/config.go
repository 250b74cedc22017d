// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 是 time.Duration 的别名，支持从 yaml 中以 "5s"、"1m" 的形式解析。
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config 是所有服务共享的配置结构。
type Config struct {
	App struct {
		LogLevel string `yaml:"log_level"`
		// OperationTimeout 单个协调操作（含补偿）的超时上限
		OperationTimeout Duration `yaml:"operation_timeout"`
		// StockCallTimeout 单次远程库存调用的超时，调用失败不重试
		StockCallTimeout Duration `yaml:"stock_call_timeout"`
		IdempotencyTTL   Duration `yaml:"idempotency_ttl"`
		// AlertRules 是一组 CEL 表达式，变量为 delta/stock/price/category
		AlertRules []string `yaml:"alert_rules"`
	} `yaml:"app"`

	Infra struct {
		Mysql struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"db_name"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers       []string `yaml:"brokers"`
			MovementTopic string   `yaml:"movement_topic"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			Enabled     bool   `yaml:"enabled"`
			ServerAddrs string `yaml:"server_addrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`

	// Services 是下游服务的静态地址，Nacos 不可用或未启用时作为兜底
	Services struct {
		ProductServiceURL string `yaml:"product_service_url"`
	} `yaml:"services"`
}

var currentConfig atomic.Pointer[Config]

// defaultConfig 返回内置默认值，保证在没有配置文件时服务也能本地启动。
func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.LogLevel = "info"
	cfg.App.OperationTimeout = Duration(30 * time.Second)
	cfg.App.StockCallTimeout = Duration(5 * time.Second)
	cfg.App.IdempotencyTTL = Duration(24 * time.Hour)
	cfg.App.AlertRules = []string{"stock < 10"}
	cfg.Infra.Mysql.Host = "localhost"
	cfg.Infra.Mysql.Port = 3306
	cfg.Infra.Mysql.User = "root"
	cfg.Infra.Mysql.Password = "root"
	cfg.Infra.Mysql.DBName = "stockledger"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.MovementTopic = "stock.movements"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.Services.ProductServiceURL = "http://localhost:8081"
	return cfg
}

// Init 加载配置。优先读取 CONFIG_PATH 指向的 yaml 文件，
// 文件不存在时退回内置默认值。
func Init() {
	cfg := defaultConfig()

	path := getEnv("CONFIG_PATH", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("FATAL: cannot read config file %s: %v", path, err)
		}
		log.Printf("WARN: config file %s not found, using built-in defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Fatalf("FATAL: cannot parse config file %s: %v", path, err)
	}

	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前生效的配置。
func GetCurrentConfig() *Config {
	if cfg := currentConfig.Load(); cfg != nil {
		return cfg
	}
	cfg := defaultConfig()
	currentConfig.Store(cfg)
	return cfg
}
