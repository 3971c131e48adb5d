package redisstore

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "xrp-monitor:"

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func quoteKey(ch fmt.Stringer) string { return keyPrefix + "quote:" + ch.String() }
func lockKey(ch fmt.Stringer) string  { return keyPrefix + "lock:" + ch.String() }
