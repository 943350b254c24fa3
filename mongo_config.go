package crudboot

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig describes the MongoDB database holding the Mongo response cache.
type MongoConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Options  map[string]string
}

func NewMongoConfig() *MongoConfig {
	return &MongoConfig{
		Host:     "localhost",
		Port:     27017,
		Database: "crudboot",
		Options:  make(map[string]string),
	}
}

func (c *MongoConfig) WithCredentials(username, password string) *MongoConfig {
	c.Username = username
	c.Password = password
	return c
}

func (c *MongoConfig) WithHost(host string, port int) *MongoConfig {
	c.Host = host
	c.Port = port
	return c
}

func (c *MongoConfig) WithDatabase(database string) *MongoConfig {
	c.Database = database
	return c
}

func (c *MongoConfig) WithOption(key, value string) *MongoConfig {
	c.Options[key] = value
	return c
}

// LoadMongoConfigFromEnv reads <prefix>_HOST, <prefix>_PORT, <prefix>_USER,
// <prefix>_PASSWORD and <prefix>_DATABASE. Unset values keep their defaults.
func LoadMongoConfigFromEnv(prefix string) (*MongoConfig, error) {
	c := NewMongoConfig()
	if v := os.Getenv(prefix + "_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv(prefix + "_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s_PORT %q: %w", prefix, v, err)
		}
		c.Port = port
	}
	if v := os.Getenv(prefix + "_DATABASE"); v != "" {
		c.Database = v
	}
	c.WithCredentials(os.Getenv(prefix+"_USER"), os.Getenv(prefix+"_PASSWORD"))
	return c, nil
}

// BuildURI returns the connection URI. Options are written in key order.
func (c *MongoConfig) BuildURI() string {
	uri := url.URL{
		Scheme: "mongodb",
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/",
	}
	if c.Username != "" && c.Password != "" {
		uri.User = url.UserPassword(c.Username, c.Password)
	}

	keys := make([]string, 0, len(c.Options))
	for key := range c.Options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	query := url.Values{}
	for _, key := range keys {
		query.Set(key, c.Options[key])
	}
	uri.RawQuery = query.Encode()
	return uri.String()
}

// Connect opens a client and pings it before returning the database.
func (c *MongoConfig) Connect(ctx context.Context) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.BuildURI()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(c.Database), nil
}
