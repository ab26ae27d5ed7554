package persistence

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NewMongoDb connects to the audit store. The caller is expected to Ping.
func NewMongoDb(host, port, user, password, name string) (*mongo.Client, error) {
	if host == "" {
		return nil, errors.New("mongo host not configured")
	}
	if port == "" {
		port = "27017"
	}
	opts := options.Client().
		ApplyURI(fmt.Sprintf("mongodb://%s:%s", host, port)).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)
	if user != "" {
		opts.SetAuth(options.Credential{Username: user, Password: password, AuthSource: name})
	}
	return mongo.Connect(opts)
}
