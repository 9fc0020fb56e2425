package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"teleasistencia-backend/internal/types"
)

// reportPartition is the fixed partition key for report snapshots. All
// snapshots share one partition so the latest can be read with a single
// descending query on GeneratedAt.
const reportPartition = "report"

// DynamoDBStore implements Store using AWS DynamoDB
type DynamoDBStore struct {
	client *dynamodb.Client
	config StoreConfig
	logger zerolog.Logger
}

// NewDynamoDBStore creates a new DynamoDB store
func NewDynamoDBStore(ctx context.Context, cfg StoreConfig, logger zerolog.Logger) (*DynamoDBStore, error) {
	var client *dynamodb.Client

	if cfg.Mode == StoreModeLocal {
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

	store := &DynamoDBStore{
		client: client,
		config: cfg,
		logger: logger,
	}

	// Create tables in local mode
	if cfg.Mode == StoreModeLocal {
		if err := CreateTablesIfNotExist(ctx, client, cfg, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("region", cfg.Region).
		Msg("DynamoDB store initialized")

	return store, nil
}

func (s *DynamoDBStore) SaveReport(ctx context.Context, snapshot *types.ReportSnapshot) error {
	item, err := attributevalue.MarshalMap(snapshot)
	if err != nil {
		return &StorageError{Op: "save report", Err: err}
	}
	item["PK"] = &dbtypes.AttributeValueMemberS{Value: reportPartition}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.ReportsTable),
		Item:      item,
	})
	if err != nil {
		return &StorageError{Op: "save report", Err: err}
	}
	return nil
}

func (s *DynamoDBStore) GetLatestReport(ctx context.Context) (*types.ReportSnapshot, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(reportPartition))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, &StorageError{Op: "get latest report", Err: err}
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.ReportsTable),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, &StorageError{Op: "get latest report", Err: err}
	}
	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}

	var snapshot types.ReportSnapshot
	if err := attributevalue.UnmarshalMap(result.Items[0], &snapshot); err != nil {
		return nil, &StorageError{Op: "get latest report", Err: err}
	}
	return &snapshot, nil
}

func (s *DynamoDBStore) SaveAssignments(ctx context.Context, assignments []types.Assignment) error {
	// BatchWriteItem caps at 25 requests per call
	for i := 0; i < len(assignments); i += 25 {
		end := i + 25
		if end > len(assignments) {
			end = len(assignments)
		}

		requests := make([]dbtypes.WriteRequest, 0, end-i)
		for _, a := range assignments[i:end] {
			item, err := attributevalue.MarshalMap(a)
			if err != nil {
				return &StorageError{Op: "save assignments", Err: err}
			}
			requests = append(requests, dbtypes.WriteRequest{
				PutRequest: &dbtypes.PutRequest{Item: item},
			})
		}

		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]dbtypes.WriteRequest{
				s.config.AssignmentsTable: requests,
			},
		})
		if err != nil {
			return &StorageError{Op: "save assignments", Err: err}
		}
	}
	return nil
}

func (s *DynamoDBStore) ListAssignments(ctx context.Context) ([]types.Assignment, error) {
	var assignments []types.Assignment
	var lastKey map[string]dbtypes.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(s.config.AssignmentsTable),
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, &StorageError{Op: "list assignments", Err: err}
		}

		var page []types.Assignment
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, &StorageError{Op: "list assignments", Err: err}
		}
		assignments = append(assignments, page...)

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}
	return assignments, nil
}

// NewStore creates the appropriate store based on configuration
func NewStore(ctx context.Context, logger zerolog.Logger) (Store, error) {
	cfg := LoadStoreConfig()

	switch cfg.Mode {
	case StoreModeLocal, StoreModeAWS:
		return NewDynamoDBStore(ctx, cfg, logger)
	case StoreModeSQLite:
		return NewSQLiteStore(cfg.SQLitePath, logger)
	default:
		logger.Info().Msg("persistence disabled (STORE_MODE=none)")
		return NewNoopStore(), nil
	}
}

// TruncateAll deletes all items from both DynamoDB tables (scan + batch delete)
func (s *DynamoDBStore) TruncateAll(ctx context.Context) error {
	tables := []struct {
		name string
		pk   string
		sk   string
	}{
		{s.config.ReportsTable, "PK", "GeneratedAt"},
		{s.config.AssignmentsTable, "Beneficiary", "ID"},
	}

	for _, table := range tables {
		if err := s.truncateTable(ctx, table.name, table.pk, table.sk); err != nil {
			return &StorageError{Op: "truncate " + table.name, Err: err}
		}
	}
	return nil
}

func (s *DynamoDBStore) truncateTable(ctx context.Context, tableName, pk, sk string) error {
	var lastKey map[string]dbtypes.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName:            aws.String(tableName),
			ProjectionExpression: aws.String("#pk, #sk"),
			ExpressionAttributeNames: map[string]string{
				"#pk": pk,
				"#sk": sk,
			},
			Limit: aws.Int32(500),
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return err
		}

		// Batch delete in groups of 25
		for i := 0; i < len(result.Items); i += 25 {
			end := i + 25
			if end > len(result.Items) {
				end = len(result.Items)
			}

			requests := make([]dbtypes.WriteRequest, 0, end-i)
			for _, item := range result.Items[i:end] {
				requests = append(requests, dbtypes.WriteRequest{
					DeleteRequest: &dbtypes.DeleteRequest{
						Key: map[string]dbtypes.AttributeValue{
							pk: item[pk],
							sk: item[sk],
						},
					},
				})
			}

			_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]dbtypes.WriteRequest{
					tableName: requests,
				},
			})
			if err != nil {
				return err
			}
		}

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	s.logger.Info().Str("table", tableName).Msg("table truncated")
	return nil
}
