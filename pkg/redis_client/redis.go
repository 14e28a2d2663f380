package redis_client

import (
	"context"
	"errors"
	"strconv"

	"github.com/klmilton/tfl-bus-prediction/pkg/util"
	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

const defaultConnectionPassword = ""
const defaultDatabase = 0

// ErrNotConfigured means no redis address was given, callers run without a cache
var ErrNotConfigured = errors.New("TFLBUS_REDIS_ADDRESS is not set")

func Connect() error {
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	address := env["TFLBUS_REDIS_ADDRESS"]
	if address == "" {
		return ErrNotConfigured
	}

	if env["TFLBUS_REDIS_PASSWORD"] != "" {
		password = env["TFLBUS_REDIS_PASSWORD"]
	}

	if env["TFLBUS_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["TFLBUS_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return err
	}

	Client = client

	return nil
}
