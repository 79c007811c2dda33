package config

import "time"

// KafkaConfig holds the Consumer Loop's broker and batch-tuning settings
// (§4.7's "recognized options"). Defaults match the original source's
// config.py values where spec.md is silent on a concrete number.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	GroupID           string
	MaxPollRecords    int
	MaxPollInterval   time.Duration
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	FetchMaxWait      time.Duration
}

// LoadKafkaConfig reads Kafka tuning from the environment, falling back to
// this service's defaults for every option §4.7 recognizes.
func LoadKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:           ParseCommaSeparatedList(GetEnvStr("KAFKA_BROKERS", "localhost:9092")),
		Topic:             GetEnvStr("KAFKA_TOPIC", "warehouse_movements"),
		GroupID:           GetEnvStr("KAFKA_GROUP_ID", "warehouse_service_group"),
		MaxPollRecords:    GetEnvInt("KAFKA_MAX_POLL_RECORDS", 50),
		MaxPollInterval:   GetEnvDuration("KAFKA_MAX_POLL_INTERVAL", 5*time.Minute),
		SessionTimeout:    GetEnvDuration("KAFKA_SESSION_TIMEOUT", 30*time.Second),
		HeartbeatInterval: GetEnvDuration("KAFKA_HEARTBEAT_INTERVAL", 10*time.Second),
		FetchMaxWait:      GetEnvDuration("KAFKA_FETCH_MAX_WAIT", 500*time.Millisecond),
	}
}

// ApplyOverlay merges any non-zero Kafka tuning values from the optional
// YAML overlay (WarehouseOverlay) over the environment-derived defaults, so
// an operator can retune batching without redeploying.
func (c *KafkaConfig) ApplyOverlay(overlay *WarehouseOverlay) {
	if overlay == nil {
		return
	}

	if overlay.Kafka.MaxPollRecords > 0 {
		c.MaxPollRecords = overlay.Kafka.MaxPollRecords
	}

	if overlay.Kafka.FetchMaxWait > 0 {
		c.FetchMaxWait = overlay.Kafka.FetchMaxWait
	}

	if overlay.Kafka.SessionTimeout > 0 {
		c.SessionTimeout = overlay.Kafka.SessionTimeout
	}
}
