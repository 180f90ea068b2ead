// Package dynamo implements a document service on Amazon DynamoDB.
// Queries translate to Scan operations; native queries run as PartiQL
// statements.
package dynamo

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/preslavrachev/cloudkit/core"
	"github.com/preslavrachev/cloudkit/document"
)

// DefaultKeyAttribute is the partition key used for whereid clauses
const DefaultKeyAttribute = "id"

// Client is the subset of *dynamodb.Client the adapter uses
type Client interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	ListTables(ctx context.Context, in *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	ExecuteStatement(ctx context.Context, in *dynamodb.ExecuteStatementInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ExecuteStatementOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

// Adapter implements document.Adapter over DynamoDB tables
type Adapter struct {
	client       Client
	log          *zap.Logger
	strict       bool
	keyAttribute string
}

var _ document.Adapter = (*Adapter)(nil)

// New creates a DynamoDB adapter. A nil logger discards output.
func New(client Client, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		client:       client,
		log:          log.Named("dynamodb"),
		keyAttribute: DefaultKeyAttribute,
	}
}

// SetStrict makes queries carrying unknown clause kinds fail with
// document.ErrUnsupportedClause instead of skipping those clauses.
func (a *Adapter) SetStrict(strict bool) {
	a.strict = strict
}

// SetKeyAttribute changes the partition key attribute
func (a *Adapter) SetKeyAttribute(name string) error {
	if name == "" {
		return fmt.Errorf("%w: key attribute cannot be empty", core.ErrInvalidArgument)
	}
	a.keyAttribute = name
	return nil
}

// Select starts a new query
func (a *Adapter) Select(fields any) (*document.Query, error) {
	return document.NewQuery().Select(fields)
}

// ListCollections returns every table name, following pagination
func (a *Adapter) ListCollections(ctx context.Context) ([]string, error) {
	var names []string
	in := &dynamodb.ListTablesInput{}
	for {
		out, err := a.client.ListTables(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		names = append(names, out.TableNames...)
		if out.LastEvaluatedTableName == nil {
			return names, nil
		}
		in.ExclusiveStartTableName = out.LastEvaluatedTableName
	}
}

// Query scans collection for the items matching q. A NativeQuery runs
// its Statement as PartiQL with Args as parameters.
func (a *Adapter) Query(ctx context.Context, collection string, q document.Assembler) ([]document.Document, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: query cannot be nil", core.ErrInvalidArgument)
	}
	if native, ok := q.Assemble().(document.NativeQuery); ok {
		return a.execute(ctx, native)
	}

	plan, err := a.Translate(collection, q)
	if err != nil {
		return nil, err
	}

	a.log.Debug("scan",
		zap.String("table", aws.ToString(plan.Input.TableName)),
		zap.String("filter", aws.ToString(plan.Input.FilterExpression)))

	// without ordering the scan can stop as soon as enough items matched
	stopEarly := plan.Limit > 0 && len(plan.Sort) == 0

	var items []map[string]types.AttributeValue
	in := plan.Input
	for {
		out, err := a.client.Scan(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("error scanning table %s: %w", aws.ToString(in.TableName), err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 || (stopEarly && len(items) >= plan.Limit) {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	docs, err := a.toDocuments(items)
	if err != nil {
		return nil, err
	}
	if len(plan.Sort) > 0 {
		sortDocuments(docs, plan.Sort)
	}
	if plan.Limit > 0 && len(docs) > plan.Limit {
		docs = docs[:plan.Limit]
	}
	return docs, nil
}

func (a *Adapter) execute(ctx context.Context, native document.NativeQuery) ([]document.Document, error) {
	in := &dynamodb.ExecuteStatementInput{Statement: aws.String(native.Statement)}
	for _, arg := range native.Args {
		av, err := attributevalue.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot marshal %T: %v", core.ErrInvalidArgument, arg, err)
		}
		in.Parameters = append(in.Parameters, av)
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := a.client.ExecuteStatement(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("failed to execute statement: %w", err)
		}
		items = append(items, out.Items...)
		if out.NextToken == nil {
			break
		}
		in.NextToken = out.NextToken
	}
	return a.toDocuments(items)
}

// FetchDocument retrieves a single item by its partition key
func (a *Adapter) FetchDocument(ctx context.Context, collection string, id any) (*document.Document, error) {
	key, err := a.key(collection, id)
	if err != nil {
		return nil, err
	}

	out, err := a.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(collection),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %v in %s", document.ErrDocumentNotFound, id, collection)
	}

	docs, err := a.toDocuments([]map[string]types.AttributeValue{out.Item})
	if err != nil {
		return nil, err
	}
	return &docs[0], nil
}

// InsertDocument puts doc into collection. A non-nil doc.ID is stored
// under the key attribute.
func (a *Adapter) InsertDocument(ctx context.Context, collection string, doc document.Document) error {
	if collection == "" {
		return fmt.Errorf("%w: collection name cannot be empty", core.ErrInvalidArgument)
	}

	row := make(map[string]any, len(doc.Fields)+1)
	for k, v := range doc.Fields {
		row[k] = v
	}
	if doc.ID != nil {
		row[a.keyAttribute] = doc.ID
	}
	if _, ok := row[a.keyAttribute]; !ok {
		return fmt.Errorf("%w: document has no %s attribute", core.ErrInvalidArgument, a.keyAttribute)
	}

	item, err := attributevalue.MarshalMap(row)
	if err != nil {
		return fmt.Errorf("%w: error marshaling item: %v", core.ErrInvalidArgument, err)
	}

	if _, err := a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(collection),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// DeleteDocument deletes an item by its partition key
func (a *Adapter) DeleteDocument(ctx context.Context, collection string, id any) error {
	key, err := a.key(collection, id)
	if err != nil {
		return err
	}

	out, err := a.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(collection),
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if len(out.Attributes) == 0 {
		return fmt.Errorf("%w: %v in %s", document.ErrDocumentNotFound, id, collection)
	}
	return nil
}

func (a *Adapter) key(collection string, id any) (map[string]types.AttributeValue, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name cannot be empty", core.ErrInvalidArgument)
	}
	av, err := attributevalue.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot marshal id %T: %v", core.ErrInvalidArgument, id, err)
	}
	return map[string]types.AttributeValue{a.keyAttribute: av}, nil
}

func (a *Adapter) toDocuments(items []map[string]types.AttributeValue) ([]document.Document, error) {
	docs := make([]document.Document, 0, len(items))
	for _, item := range items {
		fields := make(map[string]any)
		if err := attributevalue.UnmarshalMap(item, &fields); err != nil {
			return nil, fmt.Errorf("error unmarshaling DynamoDB item: %w", err)
		}
		docs = append(docs, document.Document{
			ID:     fields[a.keyAttribute],
			Fields: fields,
		})
	}
	return docs, nil
}

func sortDocuments(docs []document.Document, keys []SortKey) {
	slices.SortStableFunc(docs, func(x, y document.Document) int {
		for _, key := range keys {
			c := compareValues(x.Fields[key.Field], y.Fields[key.Field])
			if key.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// compareValues orders missing values first, then numbers, strings and
// booleans; values of other types compare equal.
func compareValues(x, y any) int {
	rx, ry := rank(x), rank(y)
	if rx != ry {
		return cmp.Compare(rx, ry)
	}
	switch xv := x.(type) {
	case float64:
		return cmp.Compare(xv, y.(float64))
	case string:
		return cmp.Compare(xv, y.(string))
	case bool:
		yv := y.(bool)
		switch {
		case xv == yv:
			return 0
		case !xv:
			return -1
		}
		return 1
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case float64:
		return 1
	case string:
		return 2
	case bool:
		return 3
	}
	return 4
}
