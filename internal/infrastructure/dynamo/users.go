package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/auth-actions/internal/domain"
	"github.com/auth-actions/internal/pkg/id"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/crypto/bcrypt"
)

// emailMarkerPrefix keys the item that reserves an email address. Markers live
// in the users table but carry no email attribute, so the email index and the
// scan fallback never see them.
const emailMarkerPrefix = "EMAIL#"

// UserRepo is a self-hosted identity provider backed by the users table.
// PK: user_id, GSI email-index on email.
type UserRepo struct {
	client    DB
	tableName string
}

func NewUserRepo(client DB, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

// CreateUser stores a new unconfirmed account with a bcrypt password hash. The
// account and its email marker are written in one transaction, so two signups
// for the same email cannot both succeed.
func (r *UserRepo) CreateUser(ctx context.Context, p domain.CreateUserParams) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        p.Email,
		PasswordHash: string(hash),
		UserMetadata: p.Data,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	notExists := aws.String("attribute_not_exists(#id)")
	names := map[string]string{"#id": attrUserID}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     emailMarker(p.Email, u.UserID),
				ConditionExpression:      notExists,
				ExpressionAttributeNames: names,
			}},
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      notExists,
				ExpressionAttributeNames: names,
			}},
		},
	})
	if isTransactionConditionFailed(err) {
		return nil, domain.NewError(domain.ErrDependency, "A user with this email address has already been registered")
	}
	if err != nil {
		return nil, fmt.Errorf("put user: %w", err)
	}
	return u, nil
}

// LookupUserID resolves an account id by exact email. The email GSI is tried
// first; since GSIs are eventually consistent, a miss falls back to a
// consistent scan of the base table so a just-created account is still found.
func (r *UserRepo) LookupUserID(ctx context.Context, email string) (string, error) {
	userID, err := r.queryEmailIndex(ctx, email)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("email index lookup failed, falling back to scan", "err", err)
	}
	return r.scanByEmail(ctx, email)
}

// ConfirmEmail flags the account's email as confirmed.
func (r *UserRepo) ConfirmEmail(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	return r.update(ctx, userID, map[string]interface{}{
		fieldEmailConfirmed:   true,
		fieldEmailConfirmedAt: now,
	})
}

// SetPassword replaces the account's password hash.
func (r *UserRepo) SetPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return r.update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

func (r *UserRepo) update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#pk"] = attrUserID
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return domain.NewError(domain.ErrNotFound, "User not found")
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepo) queryEmailIndex(ctx context.Context, email string) (string, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexEmail),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attrEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: email}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return "", err
	}
	if len(out.Items) == 0 {
		return "", fmt.Errorf("user not in email index: %w", domain.ErrNotFound)
	}
	return userIDOf(out.Items[0])
}

func (r *UserRepo) scanByEmail(ctx context.Context, email string) (string, error) {
	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("#a = :v"),
		ProjectionExpression:      aws.String("#id"),
		ExpressionAttributeNames:  map[string]string{"#a": attrEmail, "#id": attrUserID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: email}},
		ConsistentRead:            aws.Bool(true),
	}
	p := dynamodb.NewScanPaginator(r.client, input)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("scan users: %w", err)
		}
		if len(out.Items) > 0 {
			return userIDOf(out.Items[0])
		}
	}
	return "", fmt.Errorf("user %q: %w", email, domain.ErrNotFound)
}

func emailMarker(email, userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrUserID:   &types.AttributeValueMemberS{Value: emailMarkerPrefix + email},
		fieldOwnerID: &types.AttributeValueMemberS{Value: userID},
	}
}

func userIDOf(item map[string]types.AttributeValue) (string, error) {
	v, ok := item[attrUserID].(*types.AttributeValueMemberS)
	if !ok || v.Value == "" {
		return "", fmt.Errorf("user item without %s", attrUserID)
	}
	return v.Value, nil
}
