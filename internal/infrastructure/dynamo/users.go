package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-accounts-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
//
// Username and email uniqueness is enforced by the store itself: Insert
// writes the user item together with one guard item per unique attribute in
// a single transaction, each conditioned on the item not existing. Two
// concurrent registrations of the same username therefore race inside
// DynamoDB, and exactly one transaction commits.
type UserRepo struct {
	client      *dynamodb.Client
	tableName   string
	uniquesName string
}

func NewUserRepo(client *dynamodb.Client, tableName, uniquesName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, uniquesName: uniquesName}
}

// Insert creates a new user. Returns domain.ErrConflict when the username or
// email is already taken.
func (r *UserRepo) Insert(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
			guardPut(r.uniquesName, "username#"+u.Username, u.UserID),
			guardPut(r.uniquesName, "email#"+u.Email, u.UserID),
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) && hasConditionFailure(canceled) {
			return fmt.Errorf("username or email already registered: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryGSI(ctx, "username-index", "username", username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

// GetByEmailAndResetCode resolves the user only when a reset is pending and
// the code matches. Both misses collapse into ErrNotFound so callers cannot
// tell an unknown email from a wrong code.
func (r *UserRepo) GetByEmailAndResetCode(ctx context.Context, email, resetCode string) (*domain.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.ResetCode == nil || *u.ResetCode != resetCode {
		return nil, fmt.Errorf("no matching reset code: %w", domain.ErrNotFound)
	}
	return u, nil
}

// Update applies a partial update. A nil value in updates removes the
// attribute, which is how verification and reset codes are cleared.
func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func guardPut(table, id, userID string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(table),
		Item: map[string]types.AttributeValue{
			"id":      &types.AttributeValueMemberS{Value: id},
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	}}
}

func hasConditionFailure(e *types.TransactionCanceledException) bool {
	for _, reason := range e.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
