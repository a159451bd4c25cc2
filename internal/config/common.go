package config

// Config 配置主体
type Config struct {
	Sync              SyncConfig        `mapstructure:"sync"`
	Redis             RedisConfig       `mapstructure:"redis"`
	Mongo             MongoConfig       `mapstructure:"mongo"`
	Kafka             KafkaConfig       `mapstructure:"kafka"`
	KafkaPushConsumer KafkaPushConsumer `mapstructure:"kafka_push_consumer"`
}

// SyncConfig 同步引擎配置
type SyncConfig struct {
	Identity         string `mapstructure:"identity"`          // 当前登录身份（邮箱形式）
	RefreshSpec      string `mapstructure:"refresh_spec"`      // 未读数刷新 cron 表达式
	ResubscribeDelay int    `mapstructure:"resubscribe_delay"` // 订阅失败重试基础间隔（秒）
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig 远端消息库配置
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

// KafkaPushConsumer 推送通知消费者配置
type KafkaPushConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}
