package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/auth-actions/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const usersTable = "users"

func userItem(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{attrUserID: &types.AttributeValueMemberS{Value: userID}}
}

func TestUserRepo_LookupUsesEmailIndexFirst(t *testing.T) {
	db := &mockDB{}
	db.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.IndexName) == indexEmail &&
			in.ExpressionAttributeNames["#a"] == attrEmail &&
			strVal(in.ExpressionAttributeValues[":v"]) == "a@x.com"
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{userItem("u1")}}, nil)

	id, err := NewUserRepo(db, usersTable).LookupUserID(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
	db.AssertNotCalled(t, "Scan", mock.Anything, mock.Anything)
}

func TestUserRepo_LookupFallsBackToConsistentScan(t *testing.T) {
	db := &mockDB{}
	db.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)
	db.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return aws.ToBool(in.ConsistentRead) &&
			aws.ToString(in.FilterExpression) == "#a = :v" &&
			strVal(in.ExpressionAttributeValues[":v"]) == "new@x.com"
	})).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{userItem("u2")}}, nil)

	id, err := NewUserRepo(db, usersTable).LookupUserID(context.Background(), "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u2", id)
	db.AssertExpectations(t)
}

func TestUserRepo_LookupScansWhenIndexFails(t *testing.T) {
	db := &mockDB{}
	db.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("index backfilling"))
	db.On("Scan", mock.Anything, mock.Anything).
		Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{userItem("u3")}}, nil)

	id, err := NewUserRepo(db, usersTable).LookupUserID(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u3", id)
}

func TestUserRepo_LookupScansEveryPage(t *testing.T) {
	db := &mockDB{}
	db.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)
	db.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.ScanOutput{LastEvaluatedKey: userItem("page-1")}, nil).Once()
	db.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return strVal(in.ExclusiveStartKey[attrUserID]) == "page-1"
	})).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{userItem("u4")}}, nil).Once()

	id, err := NewUserRepo(db, usersTable).LookupUserID(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u4", id)
}

func TestUserRepo_LookupMissIsNotFound(t *testing.T) {
	db := &mockDB{}
	db.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)
	db.On("Scan", mock.Anything, mock.Anything).Return(&dynamodb.ScanOutput{}, nil)

	_, err := NewUserRepo(db, usersTable).LookupUserID(context.Background(), "nobody@x.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUserRepo_CreateUserReservesEmailInSameTransaction(t *testing.T) {
	db := &mockDB{}
	var in *dynamodb.TransactWriteItemsInput
	db.On("TransactWriteItems", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { in = args.Get(1).(*dynamodb.TransactWriteItemsInput) }).
		Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	u, err := NewUserRepo(db, usersTable).CreateUser(context.Background(), domain.CreateUserParams{
		Email: "a@x.com", Password: "s3cret-pw", Data: map[string]any{"name": "Ana"},
	})
	require.NoError(t, err)
	require.NotNil(t, in)
	require.Len(t, in.TransactItems, 2)

	marker, user := in.TransactItems[0].Put, in.TransactItems[1].Put
	require.NotNil(t, marker)
	require.NotNil(t, user)
	for _, p := range []*types.Put{marker, user} {
		assert.Equal(t, usersTable, aws.ToString(p.TableName))
		assert.Equal(t, "attribute_not_exists(#id)", aws.ToString(p.ConditionExpression))
		assert.Equal(t, attrUserID, p.ExpressionAttributeNames["#id"])
	}
	assert.Equal(t, "EMAIL#a@x.com", strVal(marker.Item[attrUserID]))
	assert.Equal(t, u.UserID, strVal(marker.Item[fieldOwnerID]))
	_, markerHasEmail := marker.Item[attrEmail]
	assert.False(t, markerHasEmail, "markers must stay out of the email index")

	assert.Equal(t, u.UserID, strVal(user.Item[attrUserID]))
	assert.Equal(t, "a@x.com", strVal(user.Item[attrEmail]))
	assert.False(t, u.EmailConfirmed)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pw")))
}

func TestUserRepo_CreateUserDuplicateEmail(t *testing.T) {
	db := &mockDB{}
	db.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("ConditionalCheckFailed")},
			{Code: aws.String("None")},
		},
	})

	_, err := NewUserRepo(db, usersTable).CreateUser(context.Background(), domain.CreateUserParams{Email: "a@x.com", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, "A user with this email address has already been registered", domain.Message(err))
}

func TestUserRepo_CreateUserOtherCancellation(t *testing.T) {
	db := &mockDB{}
	db.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("ThrottlingError")}},
	})

	_, err := NewUserRepo(db, usersTable).CreateUser(context.Background(), domain.CreateUserParams{Email: "a@x.com", Password: "pw"})
	require.Error(t, err)
	var de *domain.Error
	assert.False(t, errors.As(err, &de))
}

func TestUserRepo_SetPasswordRequiresExistingAccount(t *testing.T) {
	db := &mockDB{}
	var in *dynamodb.UpdateItemInput
	db.On("UpdateItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { in = args.Get(1).(*dynamodb.UpdateItemInput) }).
		Return(nil, &types.ConditionalCheckFailedException{})

	err := NewUserRepo(db, usersTable).SetPassword(context.Background(), "u9", "n3w-pw")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, "User not found", domain.Message(err))

	require.NotNil(t, in)
	assert.Equal(t, "attribute_exists(#pk)", aws.ToString(in.ConditionExpression))
	assert.Equal(t, attrUserID, in.ExpressionAttributeNames["#pk"])
	assert.Equal(t, "u9", strVal(in.Key[attrUserID]))
}

func TestUserRepo_ConfirmEmailSetsFlag(t *testing.T) {
	db := &mockDB{}
	db.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		for name, attr := range in.ExpressionAttributeNames {
			if attr != fieldEmailConfirmed {
				continue
			}
			b, ok := in.ExpressionAttributeValues[":v"+name[2:]].(*types.AttributeValueMemberBOOL)
			return ok && b.Value
		}
		return false
	})).Return(&dynamodb.UpdateItemOutput{}, nil)

	require.NoError(t, NewUserRepo(db, usersTable).ConfirmEmail(context.Background(), "u1"))
	db.AssertExpectations(t)
}
