package main

type ServiceConfig struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	Port        int    `env:"PORT" env-default:"8080"`

	SentryDSN string `env:"SENTRY_DSN"`

	// Exactly one of BadgerDBPath / ProfilesBucket selects the storage
	// provider; a Badger path wins when both are set.
	BadgerDBPath   string `env:"BADGER_DB_PATH"`
	ProfilesBucket string `env:"PROFILES_BUCKET_NAME" env-default:"profiles"`

	ProfilingKafkaBrokers []string `env:"PROFILING_KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	CallTreesKafkaTopic   string   `env:"CALL_TREES_KAFKA_TOPIC" env-default:"profiles-call-tree"`
}
