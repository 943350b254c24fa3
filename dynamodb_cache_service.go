package crudboot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	dynamoEntryPrefix = "entry#"
	dynamoTagPrefix   = "tag#"
	dynamoEntrySort   = "entry"
	dynamoTTLField    = "ttl"
)

// DynamoDBAPI is the part of the DynamoDB client the cache uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// dynamoCacheItem is either an entry (pk "entry#<key>", sk "entry") or a
// tag link (pk "tag#<tag>", sk "<key>").
type dynamoCacheItem struct {
	PK        string   `dynamodbav:"pk"`
	SK        string   `dynamodbav:"sk"`
	Data      []byte   `dynamodbav:"data,omitempty"`
	Tags      []string `dynamodbav:"tags,omitempty"`
	TTL       int64    `dynamodbav:"ttl"`
	CreatedAt int64    `dynamodbav:"created_at,omitempty"`
}

// DynamoDBCacheService keeps the cache in a single DynamoDB table. Expired
// items are removed by DynamoDB TTL on the "ttl" attribute and are never
// served in the meantime.
type DynamoDBCacheService struct {
	client DynamoDBAPI
	config *DynamoDBConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewDynamoDBCacheService(client DynamoDBAPI, config *DynamoDBConfig, logger *zap.Logger) *DynamoDBCacheService {
	if config == nil {
		config = NewDynamoDBConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamoDBCacheService{
		client: client,
		config: config,
		logger: logger.Named("cache"),
		now:    time.Now,
	}
}

// EnsureTable creates the cache table and enables TTL on it unless the
// table exists or creation is disabled.
func (s *DynamoDBCacheService) EnsureTable(ctx context.Context) error {
	if s.config.SkipTableCreation {
		return nil
	}
	table := aws.String(s.config.TableName)

	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: table,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.config.TableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: table}, time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", s.config.TableName, err)
	}

	_, err = s.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: table,
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String(dynamoTTLField),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		s.logger.Warn("unable to enable ttl", zap.String("table", s.config.TableName), zap.Error(err))
	}
	s.logger.Info("cache table created", zap.String("table", s.config.TableName))
	return nil
}

func (s *DynamoDBCacheService) Set(ctx context.Context, key string, data []byte, tags []string, duration time.Duration) error {
	now := s.now()
	expiresAt := now.Add(duration).Unix()

	previous, err := s.entry(ctx, key)
	if err != nil {
		return err
	}

	if err := s.put(ctx, dynamoCacheItem{
		PK:        dynamoEntryPrefix + key,
		SK:        dynamoEntrySort,
		Data:      data,
		Tags:      tags,
		TTL:       expiresAt,
		CreatedAt: now.Unix(),
	}); err != nil {
		return err
	}

	if previous != nil {
		for _, tag := range previous.Tags {
			if slices.Contains(tags, tag) {
				continue
			}
			if err := s.delete(ctx, dynamoTagPrefix+tag, key); err != nil {
				return err
			}
		}
	}
	for _, tag := range tags {
		if err := s.put(ctx, dynamoCacheItem{PK: dynamoTagPrefix + tag, SK: key, TTL: expiresAt}); err != nil {
			return err
		}
	}
	return nil
}

func (s *DynamoDBCacheService) Get(ctx context.Context, key string) ([]byte, error) {
	item, err := s.entry(ctx, key)
	if err != nil || item == nil {
		return nil, err
	}
	if s.now().Unix() > item.TTL {
		if err := s.delete(ctx, item.PK, item.SK); err != nil {
			s.logger.Warn("unable to drop expired entry", zap.String("key", key), zap.Error(err))
		}
		return nil, nil
	}
	return item.Data, nil
}

func (s *DynamoDBCacheService) Invalidate(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
			TableName:              aws.String(s.config.TableName),
			KeyConditionExpression: aws.String("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: dynamoTagPrefix + tag},
			},
		})

		removed := 0
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("query tag %s: %w", tag, err)
			}
			var links []dynamoCacheItem
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &links); err != nil {
				return err
			}
			for _, link := range links {
				if err := s.delete(ctx, dynamoEntryPrefix+link.SK, dynamoEntrySort); err != nil {
					return err
				}
				if err := s.delete(ctx, link.PK, link.SK); err != nil {
					return err
				}
				removed++
			}
		}
		s.logger.Debug("invalidated", zap.String("tag", tag), zap.Int("entries", removed))
	}
	return nil
}

func (s *DynamoDBCacheService) entry(ctx context.Context, key string) (*dynamoCacheItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.TableName),
		Key:       dynamoKey(dynamoEntryPrefix+key, dynamoEntrySort),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var item dynamoCacheItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *DynamoDBCacheService) put(ctx context.Context, item dynamoCacheItem) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.TableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", item.PK, item.SK, err)
	}
	return nil
}

func (s *DynamoDBCacheService) delete(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.TableName),
		Key:       dynamoKey(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", pk, sk, err)
	}
	return nil
}

func dynamoKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: pk},
		"sk": &types.AttributeValueMemberS{Value: sk},
	}
}
