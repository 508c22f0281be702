package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skyagarwal/mangwale-flow/agent"
	"github.com/skyagarwal/mangwale-flow/analytics"
	"github.com/skyagarwal/mangwale-flow/config"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "mangwale", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("flows-dir", "flows", "directory of flow definition files")
	cmd.Flags().Int("sweep-interval-ms", 1000, "wait timeout sweep interval in millis")
	cmd.Flags().String("fallback-message", "", "reply used when no flow matches")
	cmd.Flags().Int("notify-capacity", 512, "outbound notify queue capacity")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().String("backend-url", "http://localhost:9000", "commerce backend base url")
	cmd.Flags().Int("backend-timeout-ms", 5000, "commerce backend timeout in millis")
	cmd.Flags().String("whatsapp-url", "http://localhost:9001", "whatsapp gateway base url")
	cmd.Flags().String("whatsapp-token", "", "whatsapp gateway token")
	cmd.Flags().String("llm-url", "http://localhost:9002", "llm endpoint base url")
	cmd.Flags().String("llm-api-key", "", "llm api key")
	cmd.Flags().String("llm-model", "gpt-4o-mini", "llm model name")
	cmd.Flags().String("analytics-impl", "NOOP", "flow data collector implementation")
	cmd.Flags().String("analytics-file", "flow-analytics.log", "flow data collector output file")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.FlowsDir = viper.GetString("flows-dir")
	c.cfg.SweepIntervalMs = viper.GetInt("sweep-interval-ms")
	c.cfg.FallbackMessage = viper.GetString("fallback-message")
	c.cfg.NotifyQueueCapacity = viper.GetInt("notify-capacity")
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.Backend.BaseUrl = viper.GetString("backend-url")
	c.cfg.Backend.TimeoutMs = viper.GetInt("backend-timeout-ms")
	c.cfg.WhatsApp.BaseUrl = viper.GetString("whatsapp-url")
	c.cfg.WhatsApp.ApiKey = viper.GetString("whatsapp-token")
	c.cfg.LLM.BaseUrl = viper.GetString("llm-url")
	c.cfg.LLM.ApiKey = viper.GetString("llm-api-key")
	c.cfg.LLM.Model = viper.GetString("llm-model")
	c.cfg.AnalyticsConfig.CollectorType = analytics.DataCollectorType(viper.GetString("analytics-impl"))
	c.cfg.AnalyticsConfig.FileName = viper.GetString("analytics-file")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	var err error
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "mangwale-flow",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
