package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/rs/zerolog"
)

// DynamoStore implements Store using AWS DynamoDB, for deployments where
// the backend runs on ephemeral hosts and a local file would not survive
type DynamoStore struct {
	client *dynamodb.Client
	config Config
	logger zerolog.Logger
}

type overrideItem struct {
	AgentKey  string `dynamodbav:"AgentKey"`
	Status    string `dynamodbav:"Status"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// NewDynamoStore creates a new DynamoDB-backed override store
func NewDynamoStore(ctx context.Context, cfg Config, logger zerolog.Logger) (*DynamoStore, error) {
	var client *dynamodb.Client

	if cfg.Mode == ModeDynamoLocal {
		// For local mode, build the client directly without LoadDefaultConfig.
		// LoadDefaultConfig probes the EC2 IMDS endpoint which hangs on EC2
		// instances when static credentials are intended.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	s := &DynamoStore{
		client: client,
		config: cfg,
		logger: logger.With().Str("component", "dynamo_store").Logger(),
	}

	// Create the table in local mode
	if cfg.Mode == ModeDynamoLocal {
		if err := s.createTableIfNotExists(ctx); err != nil {
			return nil, err
		}
	}

	s.logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("region", cfg.Region).
		Str("table", cfg.Table).
		Msg("DynamoDB override store initialized")

	return s, nil
}

func (s *DynamoStore) createTableIfNotExists(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.config.Table),
	})
	if err == nil {
		s.logger.Info().Str("table", s.config.Table).Msg("table already exists")
		return nil
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.config.Table),
		KeySchema: []dbtypes.KeySchemaElement{
			{AttributeName: aws.String("AgentKey"), KeyType: dbtypes.KeyTypeHash},
		},
		AttributeDefinitions: []dbtypes.AttributeDefinition{
			{AttributeName: aws.String("AgentKey"), AttributeType: dbtypes.ScalarAttributeTypeS},
		},
		BillingMode: dbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.config.Table, err)
	}
	s.logger.Info().Str("table", s.config.Table).Msg("table created")
	return nil
}

// Overrides scans the full override table. The table holds one item per
// agent, so a scan stays small.
func (s *DynamoStore) Overrides(ctx context.Context) (map[string]types.AgentStatus, error) {
	overrides := make(map[string]types.AgentStatus)
	var lastKey map[string]dbtypes.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(s.config.Table),
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overrides: %w", err)
		}

		var items []overrideItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal overrides: %w", err)
		}
		for _, item := range items {
			overrides[item.AgentKey] = types.AgentStatus(item.Status)
		}

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}
	return overrides, nil
}

// SetStatus puts one override item. Last write wins.
func (s *DynamoStore) SetStatus(ctx context.Context, agentKey string, status types.AgentStatus) error {
	if agentKey == "" {
		return fmt.Errorf("agent key is required")
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(overrideItem{
		AgentKey:  agentKey,
		Status:    string(status),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal override: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.Table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to persist override: %w", err)
	}
	return nil
}

// Close is a no-op; the DynamoDB client holds no connection state
func (s *DynamoStore) Close() error { return nil }
