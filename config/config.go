package config

import (
	"github.com/skyagarwal/mangwale-flow/analytics"
	"github.com/skyagarwal/mangwale-flow/persistence/redis"
)

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	HttpPort            int
	StorageType         StorageType
	RedisConfig         redis.Config
	FlowsDir            string
	SweepIntervalMs     int
	FallbackMessage     string
	NotifyQueueCapacity int
	LogLevel            string
	Backend             HttpClientConfig
	WhatsApp            HttpClientConfig
	LLM                 LLMConfig
	AnalyticsConfig     analytics.DataCollectorConfig
}

// HttpClientConfig covers one outbound HTTP dependency.
type HttpClientConfig struct {
	BaseUrl   string
	ApiKey    string
	TimeoutMs int
}

type LLMConfig struct {
	BaseUrl   string
	ApiKey    string
	Model     string
	TimeoutMs int
}
