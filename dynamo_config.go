package crudboot

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoDBConfig describes the table holding the DynamoDB response cache.
type DynamoDBConfig struct {
	Region            string
	Endpoint          string
	AccessKey         string
	SecretKey         string
	TableName         string
	SkipTableCreation bool
}

func NewDynamoDBConfig() *DynamoDBConfig {
	return &DynamoDBConfig{
		Region:    "us-east-1",
		TableName: "crudboot-cache",
	}
}

func (c *DynamoDBConfig) WithRegion(region string) *DynamoDBConfig {
	c.Region = region
	return c
}

// WithEndpoint points the client at a local or emulated DynamoDB.
func (c *DynamoDBConfig) WithEndpoint(endpoint string) *DynamoDBConfig {
	c.Endpoint = endpoint
	return c
}

func (c *DynamoDBConfig) WithCredentials(accessKey, secretKey string) *DynamoDBConfig {
	c.AccessKey = accessKey
	c.SecretKey = secretKey
	return c
}

func (c *DynamoDBConfig) WithTableName(name string) *DynamoDBConfig {
	c.TableName = name
	return c
}

func (c *DynamoDBConfig) WithSkipTableCreation(skip bool) *DynamoDBConfig {
	c.SkipTableCreation = skip
	return c
}

// LoadDynamoDBConfigFromEnv reads <prefix>_REGION, <prefix>_ENDPOINT,
// <prefix>_ACCESS_KEY, <prefix>_SECRET_KEY, <prefix>_TABLE and
// <prefix>_SKIP_TABLE_CREATION. Unset values keep their defaults.
func LoadDynamoDBConfigFromEnv(prefix string) *DynamoDBConfig {
	c := NewDynamoDBConfig()
	if v := os.Getenv(prefix + "_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv(prefix + "_TABLE"); v != "" {
		c.TableName = v
	}
	c.Endpoint = os.Getenv(prefix + "_ENDPOINT")
	c.AccessKey = os.Getenv(prefix + "_ACCESS_KEY")
	c.SecretKey = os.Getenv(prefix + "_SECRET_KEY")
	c.SkipTableCreation = os.Getenv(prefix+"_SKIP_TABLE_CREATION") == "true"
	return c
}

// NewClient loads the default AWS configuration for the region. Static
// credentials and the endpoint override it when set.
func (c *DynamoDBConfig) NewClient(ctx context.Context) (*dynamodb.Client, error) {
	opts := []func(*awsConfig.LoadOptions) error{awsConfig.WithRegion(c.Region)}
	if c.AccessKey != "" && c.SecretKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		))
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}
