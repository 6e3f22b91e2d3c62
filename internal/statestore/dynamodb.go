package statestore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	attrPK     = "PK"
	attrSK     = "SK"
	attrEntity = "Entity"
	attrData   = "Data"
)

const (
	entitySession      = "session"
	entityQuery        = "query"
	entityQueryReqLink = "query_request_index"
)

// DynamoDBStore is the DynamoDB-backed StateStore. Grounded on
// original_source/crates/state-store/src/state_store.rs's single-table
// design (PK/SK/Entity/Data), translated from the Rust client's
// hand-built AttributeValue maps to attributevalue.MarshalMap/
// UnmarshalMap, the idiomatic Go SDK v2 equivalent.
type DynamoDBStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoDBStore builds a store from an existing table name,
// loading AWS credentials/region from the default SDK v2 chain (env
// vars, shared config, web identity, ECS, EC2 IMDSv2 — the same
// resolution order original_source's CredentialsProviderChain
// documents) and configuring the SDK's adaptive retryer, per
// SPEC_FULL.md §4.9.
func NewDynamoDBStore(ctx context.Context, tableName string) (*DynamoDBStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewAdaptiveMode(), 5)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &DynamoDBStore{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
	}, nil
}

func sessionKey(id string) string       { return "SESSION#" + id }
func queryKey(id string) string         { return "QUERY#" + id }
func queryReqKey(id string) string      { return "QUERYREQ#" + id }
func sessionSK(sessionID string) string { return "SESSION#" + sessionID }

type item struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	Entity string `dynamodbav:"Entity"`
	Data   string `dynamodbav:"Data"`
}

func (d *DynamoDBStore) putItem(ctx context.Context, pk, sk, entity string, data []byte) error {
	av, err := attributevalue.MarshalMap(item{PK: pk, SK: sk, Entity: entity, Data: string(data)})
	if err != nil {
		return fmt.Errorf("marshaling statestore item: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put item: %w", err)
	}
	return nil
}

func (d *DynamoDBStore) getItem(ctx context.Context, pk, sk string) (item, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: pk},
			attrSK: &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return item{}, fmt.Errorf("dynamodb get item: %w", err)
	}
	if out.Item == nil {
		return item{}, ErrNotFound
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return item{}, fmt.Errorf("unmarshaling statestore item: %w", err)
	}
	return it, nil
}

func (d *DynamoDBStore) deleteItem(ctx context.Context, pk, sk string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: pk},
			attrSK: &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb delete item: %w", err)
	}
	return nil
}

func (d *DynamoDBStore) PutSession(ctx context.Context, rec SessionRecord) error {
	data, err := marshalJSON(rec)
	if err != nil {
		return err
	}
	key := sessionKey(rec.SessionID)
	return d.putItem(ctx, key, key, entitySession, data)
}

func (d *DynamoDBStore) GetSession(ctx context.Context, sessionID string) (SessionRecord, error) {
	key := sessionKey(sessionID)
	it, err := d.getItem(ctx, key, key)
	if err != nil {
		return SessionRecord{}, err
	}
	var rec SessionRecord
	return rec, unmarshalJSON(it.Data, &rec)
}

func (d *DynamoDBStore) DeleteSession(ctx context.Context, sessionID string) error {
	key := sessionKey(sessionID)
	return d.deleteItem(ctx, key, key)
}

func (d *DynamoDBStore) UpdateSession(ctx context.Context, rec SessionRecord) error {
	now := unixNow()
	rec.UpdatedAt = &now
	return d.PutSession(ctx, rec)
}

func (d *DynamoDBStore) PutQuery(ctx context.Context, rec QueryRecord) error {
	data, err := marshalJSON(rec)
	if err != nil {
		return err
	}
	if err := d.putItem(ctx, queryKey(rec.QueryID), sessionSK(rec.SessionID), entityQuery, data); err != nil {
		return err
	}
	// Secondary item emulating a request_id GSI: points request_id lookups
	// at the query_id, since this adapter provisions no real index.
	linkData, err := marshalJSON(map[string]string{"query_id": rec.QueryID})
	if err != nil {
		return err
	}
	reqKey := queryReqKey(rec.RequestID)
	return d.putItem(ctx, reqKey, reqKey, entityQueryReqLink, linkData)
}

func (d *DynamoDBStore) GetQuery(ctx context.Context, queryID string) (QueryRecord, error) {
	// SK is unknown here (it's keyed by session_id), so scan the
	// partition rather than a point GetItem.
	out, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: queryKey(queryID)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return QueryRecord{}, fmt.Errorf("dynamodb query item: %w", err)
	}
	if len(out.Items) == 0 {
		return QueryRecord{}, ErrNotFound
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return QueryRecord{}, fmt.Errorf("unmarshaling statestore item: %w", err)
	}
	var rec QueryRecord
	return rec, unmarshalJSON(it.Data, &rec)
}

func (d *DynamoDBStore) GetQueryByRequestID(ctx context.Context, requestID string) (QueryRecord, error) {
	reqKey := queryReqKey(requestID)
	it, err := d.getItem(ctx, reqKey, reqKey)
	if err != nil {
		return QueryRecord{}, err
	}
	var link struct {
		QueryID string `json:"query_id"`
	}
	if err := unmarshalJSON(it.Data, &link); err != nil {
		return QueryRecord{}, err
	}
	return d.GetQuery(ctx, link.QueryID)
}

func (d *DynamoDBStore) GetQueriesBySessionID(ctx context.Context, sessionID string) ([]QueryRecord, error) {
	// No GSI is provisioned by this adapter, so the session_id-prefixed
	// SK is matched with a filtered Scan rather than a Query; acceptable
	// for the low-volume query-history lookups this endpoint serves.
	out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(d.tableName),
		FilterExpression: aws.String("SK = :sk AND Entity = :entity"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sk":     &types.AttributeValueMemberS{Value: sessionSK(sessionID)},
			":entity": &types.AttributeValueMemberS{Value: entityQuery},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb scan: %w", err)
	}
	recs := make([]QueryRecord, 0, len(out.Items))
	for _, raw := range out.Items {
		var it item
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, fmt.Errorf("unmarshaling statestore item: %w", err)
		}
		var rec QueryRecord
		if err := unmarshalJSON(it.Data, &rec); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (d *DynamoDBStore) DeleteQuery(ctx context.Context, queryID string) error {
	rec, err := d.GetQuery(ctx, queryID)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}
	if err := d.deleteItem(ctx, queryKey(queryID), sessionSK(rec.SessionID)); err != nil {
		return err
	}
	return d.deleteItem(ctx, queryReqKey(rec.RequestID), queryReqKey(rec.RequestID))
}

func (d *DynamoDBStore) UpdateQuery(ctx context.Context, rec QueryRecord) error {
	return d.PutQuery(ctx, rec)
}
