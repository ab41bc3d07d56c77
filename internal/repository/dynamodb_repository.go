package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/fathima-sithara/video-service/internal/models"
)

type DynamoRepository struct {
	client    *dynamodb.Client
	tableName string
}

var _ VideoRepository = (*DynamoRepository)(nil)

// videoItem is the DynamoDB item layout; timestamps are unix nanoseconds.
type videoItem struct {
	ID           string  `dynamodbav:"id"`
	UserID       string  `dynamodbav:"userId"`
	Title        string  `dynamodbav:"title"`
	Description  string  `dynamodbav:"description"`
	ThumbnailURL *string `dynamodbav:"thumbnailUrl,omitempty"`
	VideoURL     *string `dynamodbav:"videoUrl,omitempty"`
	VideoKey     string  `dynamodbav:"videoKey,omitempty"`
	CreatedAt    int64   `dynamodbav:"createdAt"`
	UpdatedAt    int64   `dynamodbav:"updatedAt"`
}

func toItem(v *models.Video) videoItem {
	return videoItem{
		ID: v.ID, UserID: v.UserID, Title: v.Title, Description: v.Description,
		ThumbnailURL: v.ThumbnailURL, VideoURL: v.VideoURL, VideoKey: v.VideoKey,
		CreatedAt: v.CreatedAt.UnixNano(), UpdatedAt: v.UpdatedAt.UnixNano(),
	}
}

func (it videoItem) toModel() *models.Video {
	return &models.Video{
		ID: it.ID, UserID: it.UserID, Title: it.Title, Description: it.Description,
		ThumbnailURL: it.ThumbnailURL, VideoURL: it.VideoURL, VideoKey: it.VideoKey,
		CreatedAt: time.Unix(0, it.CreatedAt).UTC(), UpdatedAt: time.Unix(0, it.UpdatedAt).UTC(),
	}
}

func NewDynamoRepository(ctx context.Context, region, tableName string) (*DynamoRepository, error) {
	if tableName == "" {
		return nil, errors.New("dynamodb table name cannot be empty")
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &DynamoRepository{client: dynamodb.NewFromConfig(cfg), tableName: tableName}, nil
}

func (r *DynamoRepository) Insert(ctx context.Context, v *models.Video) error {
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	av, err := attributevalue.MarshalMap(toItem(v))
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return ErrDuplicateID
	}
	return err
}

func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*models.Video, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var it videoItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return it.toModel(), nil
}

func (r *DynamoRepository) Update(ctx context.Context, v *models.Video) error {
	v.UpdatedAt = time.Now().UTC()
	av, err := attributevalue.MarshalMap(toItem(v))
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return ErrNotFound
	}
	return err
}

func (r *DynamoRepository) Close(ctx context.Context) error { return nil }
