package redis

import "time"

type RedisStreamConfig struct {
	RedisAddr     string
	RedisPassword string
	Stream        string
	ResultsStream string
	Group         string
	ConsumerName  string
	ClaimMinIdle  time.Duration
}

func NewRedisStreamConfig(redisAddr, redisPassword, stream, resultsStream, group, consumerName string) *RedisStreamConfig {
	return &RedisStreamConfig{
		RedisAddr:     redisAddr,
		RedisPassword: redisPassword,
		Stream:        stream,
		ResultsStream: resultsStream,
		Group:         group,
		ConsumerName:  consumerName,
	}
}
