package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/auth-actions/internal/domain"
	"github.com/auth-actions/internal/pkg/id"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CodeRepo manages verification codes.
// PK: email, SK: purpose. One item per pair, so a put replaces the live code.
type CodeRepo struct {
	client    DB
	tableName string
}

func NewCodeRepo(client DB, tableName string) *CodeRepo {
	return &CodeRepo{client: client, tableName: tableName}
}

// Replace stores v as the only live code for (v.Email, v.Purpose), assigning
// v.ID. Any previous code for the pair, claimed or not, is overwritten.
func (r *CodeRepo) Replace(ctx context.Context, v *domain.VerificationCode) error {
	v.ID = id.New()
	v.ClaimID = ""
	v.ClaimedUntil = 0
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put verification code: %w", err)
	}
	return nil
}

// Get returns the code for (email, purpose) using a strongly consistent read.
func (r *CodeRepo) Get(ctx context.Context, email string, purpose domain.Purpose) (*domain.VerificationCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey(attrEmail, email, attrPurpose, string(purpose)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get verification code: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	var v domain.VerificationCode
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, fmt.Errorf("unmarshal verification code: %w", err)
	}
	return &v, nil
}

// ListByEmail returns every code stored for email, whatever its purpose.
func (r *CodeRepo) ListByEmail(ctx context.Context, email string) ([]domain.VerificationCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String("#e = :e"),
		ExpressionAttributeNames:  map[string]string{"#e": attrEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: email}},
		ConsistentRead:            aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query verification codes: %w", err)
	}
	var codes []domain.VerificationCode
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &codes); err != nil {
		return nil, fmt.Errorf("unmarshal verification codes: %w", err)
	}
	return codes, nil
}

// Claim takes a consumption lease on v until the given time. It succeeds only if
// the stored item is still v (same id) and carries no unexpired lease; otherwise
// it returns an error wrapping domain.ErrNotFound. On success v holds the lease.
func (r *CodeRepo) Claim(ctx context.Context, v *domain.VerificationCode, claimID string, now, until time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldClaimID:      claimID,
		fieldClaimedUntil: until.Unix(),
	})
	if err != nil {
		return err
	}
	ue.Names["#id"] = attrID
	ue.Names["#cid"] = fieldClaimID
	ue.Names["#cu"] = fieldClaimedUntil
	ue.Values[":id"] = &types.AttributeValueMemberS{Value: v.ID}
	ue.Values[":now"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey(attrEmail, v.Email, attrPurpose, string(v.Purpose)),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#id = :id AND (attribute_not_exists(#cid) OR #cu <= :now)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("verification code changed or already claimed: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("claim verification code: %w", err)
	}
	v.ClaimID = claimID
	v.ClaimedUntil = until.Unix()
	return nil
}

// Release drops the lease held by v so the code can be consumed again.
// It is a no-op if the lease was already lost to another consumer or a newer code.
func (r *CodeRepo) Release(ctx context.Context, v *domain.VerificationCode) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey(attrEmail, v.Email, attrPurpose, string(v.Purpose)),
		UpdateExpression:          aws.String("REMOVE #cid, #cu"),
		ConditionExpression:       aws.String("#cid = :cid"),
		ExpressionAttributeNames:  map[string]string{"#cid": fieldClaimID, "#cu": fieldClaimedUntil},
		ExpressionAttributeValues: map[string]types.AttributeValue{":cid": &types.AttributeValueMemberS{Value: v.ClaimID}},
	})
	if err != nil && !isConditionFailed(err) {
		return fmt.Errorf("release verification code: %w", err)
	}
	v.ClaimID = ""
	v.ClaimedUntil = 0
	return nil
}

// Delete removes v. When v holds a lease only that leased item is deleted, so a
// code issued after the claim survives.
func (r *CodeRepo) Delete(ctx context.Context, v *domain.VerificationCode) error {
	cond, names, values := "#id = :id", map[string]string{"#id": attrID},
		map[string]types.AttributeValue{":id": &types.AttributeValueMemberS{Value: v.ID}}
	if v.ClaimID != "" {
		cond = "#id = :id AND #cid = :cid"
		names["#cid"] = fieldClaimID
		values[":cid"] = &types.AttributeValueMemberS{Value: v.ClaimID}
	}
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey(attrEmail, v.Email, attrPurpose, string(v.Purpose)),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("verification code already replaced: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete verification code: %w", err)
	}
	return nil
}
