// Package dynamostore is a DynamoDB-backed wish.Repository.
//
// Table layout:
//
//	partition key  id (S)
//	GSI            invitationId (S) + createdAt (N, unix microseconds)
//
// DynamoDB has no read-then-write transaction that fits a single record, so
// CreateIfAbsent uses a conditional put (attribute_not_exists(id)); the
// condition is evaluated atomically by DynamoDB and only one of any number of
// concurrent puts for the same ID succeeds.
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/meimodev/activid-web-sub001/internal/clock"
	"github.com/meimodev/activid-web-sub001/internal/wish"
)

// DefaultIndex is the GSI used to list an invitation's wishes.
const DefaultIndex = "invitationId-createdAt-index"

// API is the subset of *dynamodb.Client used by Store.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ wish.Repository = (*Store)(nil)

// Store reads and writes wishes in one DynamoDB table.
type Store struct {
	client API
	table  string
	index  string
	clock  clock.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithIndex overrides the GSI name. Default: DefaultIndex.
func WithIndex(name string) Option {
	return func(s *Store) {
		s.index = name
	}
}

// WithClock sets the clock that stamps createdAt. Default: clock.NewMonotonic().
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// New creates a Store over an existing client.
func New(client API, table string, opts ...Option) *Store {
	s := &Store{client: client, table: table, index: DefaultIndex}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.NewMonotonic()
	}
	return s
}

// NewFromConfig loads the default AWS configuration for region and creates a
// Store. A non-empty endpoint points the client at DynamoDB Local or another
// compatible service.
func NewFromConfig(ctx context.Context, table, region, endpoint string, opts ...Option) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return New(client, table, opts...), nil
}

// item is the stored shape of a wish.
type item struct {
	ID           string `dynamodbav:"id"`
	InvitationID string `dynamodbav:"invitationId"`
	Name         string `dynamodbav:"name"`
	NameKey      string `dynamodbav:"nameKey,omitempty"`
	Attendance   string `dynamodbav:"attendance,omitempty"`
	Message      string `dynamodbav:"message"`
	CreatedAt    int64  `dynamodbav:"createdAt"`
}

func toItem(w *wish.Wish) item {
	return item{
		ID:           w.ID,
		InvitationID: w.InvitationID,
		Name:         w.Name,
		NameKey:      w.NameKey,
		Attendance:   string(w.Attendance),
		Message:      w.Message,
		CreatedAt:    w.CreatedAt.UnixMicro(),
	}
}

func (it item) toWish() wish.Wish {
	return wish.Wish{
		ID:           it.ID,
		InvitationID: it.InvitationID,
		Name:         it.Name,
		NameKey:      it.NameKey,
		Attendance:   wish.Attendance(it.Attendance),
		Message:      it.Message,
		CreatedAt:    time.UnixMicro(it.CreatedAt).UTC(),
	}
}

// CreateIfAbsent puts w on the condition that its ID is unused.
func (s *Store) CreateIfAbsent(ctx context.Context, w *wish.Wish) error {
	createdAt := s.clock.Now()
	it := toItem(w)
	it.CreatedAt = createdAt.UnixMicro()

	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return wish.ErrAlreadyExists
		}
		return fmt.Errorf("failed to put item in table '%s': %w", s.table, err)
	}

	w.CreatedAt = time.UnixMicro(it.CreatedAt).UTC()
	return nil
}

// Get reads the wish with a strongly consistent read, so a re-read right
// after a lost conditional put sees the winner.
func (s *Store) Get(ctx context.Context, id string) (*wish.Wish, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", s.table, err)
	}
	if out.Item == nil {
		return nil, wish.ErrNotFound
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	w := it.toWish()
	return &w, nil
}

// ListByInvitation queries the invitation GSI newest first, following
// pagination to the end.
func (s *Store) ListByInvitation(ctx context.Context, invitationID string) ([]wish.Wish, error) {
	wishes := make([]wish.Wish, 0)
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			IndexName:              aws.String(s.index),
			KeyConditionExpression: aws.String("invitationId = :inv"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":inv": &types.AttributeValueMemberS{Value: invitationID},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query GSI '%s': %w", s.index, err)
		}

		var items []item
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
		for _, it := range items {
			wishes = append(wishes, it.toWish())
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	// The GSI orders by createdAt only; settle ties by ID.
	wish.Sort(wishes)
	return wishes, nil
}
