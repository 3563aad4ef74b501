package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/thoran/Dynamoid/codec"
)

// DynamoClient is the subset of *dynamodb.Client used by the DynamoDB
// adapter. It is satisfied by the AWS client and by test doubles.
type DynamoClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoDBConfig holds configuration for the DynamoDB adapter.
type DynamoDBConfig struct {
	// TableWait bounds how long CreateTable waits for a new table to
	// become active. Zero skips waiting.
	// Default: 2 minutes
	TableWait time.Duration

	// ConsistentRead makes GetItem strongly consistent.
	// Default: true
	ConsistentRead bool
}

// DefaultDynamoDBConfig returns sensible defaults.
func DefaultDynamoDBConfig() DynamoDBConfig {
	return DynamoDBConfig{
		TableWait:      2 * time.Minute,
		ConsistentRead: true,
	}
}

func (c *DynamoDBConfig) validate() {
	if c.TableWait < 0 {
		c.TableWait = 0
	}
}

// DynamoDB is an Adapter backed by Amazon DynamoDB. Preconditions are sent
// as condition expressions so each write is a single atomic request.
type DynamoDB struct {
	client DynamoClient
	config DynamoDBConfig
}

// NewDynamoDB creates a DynamoDB adapter.
func NewDynamoDB(client DynamoClient, config DynamoDBConfig) *DynamoDB {
	config.validate()
	return &DynamoDB{client: client, config: config}
}

// CreateTable implements Adapter.
func (d *DynamoDB) CreateTable(ctx context.Context, spec TableSpec) error {
	input := &dynamodb.CreateTableInput{
		TableName: aws.String(spec.Name),
		AttributeDefinitions: []types.AttributeDefinition{{
			AttributeName: aws.String(spec.HashKey.Name),
			AttributeType: types.ScalarAttributeType(spec.HashKey.Category),
		}},
		KeySchema: []types.KeySchemaElement{{
			AttributeName: aws.String(spec.HashKey.Name),
			KeyType:       types.KeyTypeHash,
		}},
	}
	if spec.RangeKey != nil {
		input.AttributeDefinitions = append(input.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(spec.RangeKey.Name),
			AttributeType: types.ScalarAttributeType(spec.RangeKey.Category),
		})
		input.KeySchema = append(input.KeySchema, types.KeySchemaElement{
			AttributeName: aws.String(spec.RangeKey.Name),
			KeyType:       types.KeyTypeRange,
		})
	}
	if spec.ReadCapacity > 0 || spec.WriteCapacity > 0 {
		input.BillingMode = types.BillingModeProvisioned
		input.ProvisionedThroughput = &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(max(spec.ReadCapacity, 1)),
			WriteCapacityUnits: aws.Int64(max(spec.WriteCapacity, 1)),
		}
	} else {
		input.BillingMode = types.BillingModePayPerRequest
	}

	_, err := d.client.CreateTable(ctx, input)

	// Already created, possibly by another process
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return nil
	}
	if err != nil {
		return mapError(err)
	}

	if d.config.TableWait == 0 {
		return nil
	}
	waiter := dynamodb.NewTableExistsWaiter(d.client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.Name)}, d.config.TableWait)
}

// GetItem implements Adapter.
func (d *DynamoDB) GetItem(ctx context.Context, table string, key Key) (codec.Record, error) {
	k, err := MarshalRecord(key.Record())
	if err != nil {
		return nil, err
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            k,
		ConsistentRead: aws.Bool(d.config.ConsistentRead),
	})
	if err != nil {
		return nil, mapError(err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return UnmarshalRecord(out.Item)
}

// Write implements Adapter.
func (d *DynamoDB) Write(ctx context.Context, table string, record codec.Record, conds Conditions) error {
	item, err := MarshalRecord(record)
	if err != nil {
		return err
	}
	expr := newExpression()
	cond, err := expr.condition(conds)
	if err != nil {
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName:                 aws.String(table),
		Item:                      item,
		ExpressionAttributeNames:  expr.attributeNames(),
		ExpressionAttributeValues: expr.attributeValues(),
	}
	if cond != "" {
		input.ConditionExpression = aws.String(cond)
	}
	_, err = d.client.PutItem(ctx, input)
	return mapError(err)
}

// UpdateItem implements Adapter.
func (d *DynamoDB) UpdateItem(ctx context.Context, table string, key Key, conds Conditions, m *Mutation) (codec.Record, error) {
	k, err := MarshalRecord(key.Record())
	if err != nil {
		return nil, err
	}
	expr := newExpression()
	update, err := expr.update(m)
	if err != nil {
		return nil, err
	}
	cond, err := expr.condition(conds)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       k,
		ExpressionAttributeNames:  expr.attributeNames(),
		ExpressionAttributeValues: expr.attributeValues(),
		ReturnValues:              types.ReturnValueAllNew,
	}
	if update != "" {
		input.UpdateExpression = aws.String(update)
	}
	if cond != "" {
		input.ConditionExpression = aws.String(cond)
	}

	out, err := d.client.UpdateItem(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return UnmarshalRecord(out.Attributes)
}

// Delete implements Adapter.
func (d *DynamoDB) Delete(ctx context.Context, table string, key Key, conds Conditions) error {
	k, err := MarshalRecord(key.Record())
	if err != nil {
		return err
	}
	expr := newExpression()
	cond, err := expr.condition(conds)
	if err != nil {
		return err
	}

	input := &dynamodb.DeleteItemInput{
		TableName:                 aws.String(table),
		Key:                       k,
		ExpressionAttributeNames:  expr.attributeNames(),
		ExpressionAttributeValues: expr.attributeValues(),
	}
	if cond != "" {
		input.ConditionExpression = aws.String(cond)
	}
	_, err = d.client.DeleteItem(ctx, input)
	return mapError(err)
}

// mapError translates DynamoDB exceptions to store sentinels, keeping the
// original error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return fmt.Errorf("%w: %w", ErrConditionalCheckFailed, err)
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %w", ErrTableNotFound, err)
	}
	return err
}
