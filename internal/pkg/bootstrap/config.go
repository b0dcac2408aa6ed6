package bootstrap

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"gopkg.in/yaml.v3"

	"academy/internal/pkg/nacos"
)

// Config 是所有服务共享的配置结构。
// 基础配置来自本地 YAML 文件，若配置了 Nacos 则由配置中心覆盖并支持热更新。
type Config struct {
	App struct {
		Name         string          `yaml:"name"`
		FeatureFlags map[string]bool `yaml:"featureFlags"`
	} `yaml:"app"`

	Infra struct {
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`

		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`

		Kafka struct {
			Brokers []string `yaml:"brokers"`
		} `yaml:"kafka"`

		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`

		Zookeeper struct {
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`

		// Gateway 是第三方支付网关的接入配置
		Gateway struct {
			BaseURL   string `yaml:"baseUrl"`
			KeyID     string `yaml:"keyId"`
			KeySecret string `yaml:"keySecret"`
			Currency  string `yaml:"currency"`
		} `yaml:"gateway"`
	} `yaml:"infra"`
}

var (
	currentConfig     atomic.Pointer[Config]
	nacosConfigClient config_client.IConfigClient
)

// GetCurrentConfig 返回当前生效的配置快照。
// 配置热更新时整体替换指针，调用方拿到的快照始终是一致的。
func GetCurrentConfig() *Config {
	cfg := currentConfig.Load()
	if cfg == nil {
		log.Fatal("FATAL: config accessed before InitConfig")
	}
	return cfg
}

// InitConfig 加载配置：先读本地 YAML，再视环境变量决定是否接入 Nacos 配置中心。
func InitConfig() error {
	cfg := defaultConfig()

	if path := getEnv("CONFIG_FILE", "config.yaml"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	currentConfig.Store(cfg)

	// Nacos 配置中心为可选项，本地开发时仅靠 YAML 即可
	nacosAddrs := os.Getenv("NACOS_SERVER_ADDRS")
	dataID := getEnv("NACOS_CONFIG_DATA_ID", "academy-config")
	group := getEnv("NACOS_GROUP", "DEFAULT_GROUP")
	if nacosAddrs == "" {
		return nil
	}

	client, err := nacos.NewConfigClient(nacosAddrs, os.Getenv("NACOS_NAMESPACE"))
	if err != nil {
		return fmt.Errorf("failed to init nacos config client: %w", err)
	}
	nacosConfigClient = client

	content, err := client.GetConfig(vo.ConfigParam{DataId: dataID, Group: group})
	if err != nil {
		return fmt.Errorf("failed to fetch config from nacos: %w", err)
	}
	if err := applyRemoteConfig(content); err != nil {
		return err
	}

	// 监听远端变更，整体替换配置快照
	err = client.ListenConfig(vo.ConfigParam{
		DataId: dataID,
		Group:  group,
		OnChange: func(namespace, group, dataId, data string) {
			if err := applyRemoteConfig(data); err != nil {
				log.Printf("ERROR: invalid config pushed from nacos, keeping previous: %v", err)
				return
			}
			log.Printf("Config reloaded from nacos (dataId=%s)", dataId)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to listen nacos config: %w", err)
	}
	return nil
}

func applyRemoteConfig(content string) error {
	cfg := defaultConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return fmt.Errorf("failed to parse remote config: %w", err)
	}
	currentConfig.Store(cfg)
	return nil
}

// defaultConfig 给出一套可直接在本地 docker-compose 环境运行的默认值。
func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "academy"
	cfg.App.FeatureFlags = map[string]bool{}
	cfg.Infra.Mysql.DSN = getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/academy?charset=utf8mb4&parseTime=True&loc=Local")
	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Infra.Kafka.Brokers = []string{getEnv("KAFKA_BROKER", "localhost:9092")}
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
	cfg.Infra.Zookeeper.Servers = []string{getEnv("ZOOKEEPER_SERVER", "localhost:2181")}
	cfg.Infra.Gateway.BaseURL = getEnv("GATEWAY_BASE_URL", "https://api.razorpay.com/v1")
	cfg.Infra.Gateway.KeyID = getEnv("GATEWAY_KEY_ID", "rzp_test_key")
	cfg.Infra.Gateway.KeySecret = getEnv("GATEWAY_KEY_SECRET", "rzp_test_secret")
	cfg.Infra.Gateway.Currency = getEnv("GATEWAY_CURRENCY", "INR")
	return cfg
}
