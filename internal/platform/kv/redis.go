package kv

import (
	"context"
	"fmt"
	"log"
	"time"

	"hackathon_portal/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// RDB stays nil when Redis is unreachable at startup; every Redis consumer
// has an in-process fallback.
var RDB *redis.Client

func ConnectRedis() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("WARN: Could not connect to Redis at %s, continuing without it: %v", config.AppConfig.RedisAddr, err)
		client.Close()
		return
	}
	RDB = client
	fmt.Println("Successfully connected to Redis!")
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		fmt.Println("Redis connection closed.")
	}
}
