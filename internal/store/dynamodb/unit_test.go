package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// mockDDB is a minimal mock of the DDBAPI interface for unit testing.
type mockDDB struct {
	putItemFn       func(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	getItemFn       func(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	queryFn         func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	deleteItemFn    func(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	scanFn          func(ctx context.Context, input *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	describeTableFn func(ctx context.Context, input *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	createTableFn   func(ctx context.Context, input *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

func (m *mockDDB) PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putItemFn != nil {
		return m.putItemFn(ctx, input, opts...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDB) GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getItemFn != nil {
		return m.getItemFn(ctx, input, opts...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDDB) Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, input, opts...)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (m *mockDDB) DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if m.deleteItemFn != nil {
		return m.deleteItemFn(ctx, input, opts...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDDB) Scan(ctx context.Context, input *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, input, opts...)
	}
	return &dynamodb.ScanOutput{}, nil
}

func (m *mockDDB) DescribeTable(ctx context.Context, input *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if m.describeTableFn != nil {
		return m.describeTableFn(ctx, input, opts...)
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func (m *mockDDB) CreateTable(ctx context.Context, input *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if m.createTableFn != nil {
		return m.createTableFn(ctx, input, opts...)
	}
	return &dynamodb.CreateTableOutput{}, nil
}

func newTestStore(mock *mockDDB) *Store {
	return &Store{
		client:    mock,
		tableName: "test-table",
		logger:    slog.Default(),
	}
}

// ---------------------------------------------------------------------------
// Catalog marshaling tests
// ---------------------------------------------------------------------------

func TestPutCourses_MarshaledData(t *testing.T) {
	var captured *dynamodb.PutItemInput
	mock := &mockDDB{
		putItemFn: func(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			captured = input
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := newTestStore(mock)

	course := types.Course{Code: "cs101", Title: "Intro to CS", Term: "2026FA", Institution: "state-u", Credits: 3}
	err := s.PutCourses(context.Background(), []types.Course{course})
	if err != nil {
		t.Fatalf("PutCourses: %v", err)
	}

	if captured == nil {
		t.Fatal("PutItem was not called")
	}
	if *captured.TableName != "test-table" {
		t.Errorf("table = %q, want %q", *captured.TableName, "test-table")
	}

	pk := captured.Item["PK"].(*ddbtypes.AttributeValueMemberS).Value
	sk := captured.Item["SK"].(*ddbtypes.AttributeValueMemberS).Value
	if pk != "COURSES#state-u#2026FA" {
		t.Errorf("PK = %q, want %q", pk, "COURSES#state-u#2026FA")
	}
	if sk != "COURSE#CS101" {
		t.Errorf("SK = %q, want %q", sk, "COURSE#CS101")
	}

	dataStr := captured.Item["data"].(*ddbtypes.AttributeValueMemberS).Value
	var roundTrip types.Course
	if err := json.Unmarshal([]byte(dataStr), &roundTrip); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if roundTrip.Code != "cs101" {
		t.Errorf("code = %q, want %q", roundTrip.Code, "cs101")
	}
	if roundTrip.Title != "Intro to CS" {
		t.Errorf("title = %q, want %q", roundTrip.Title, "Intro to CS")
	}
}

func TestGetCourses_FiltersAndSorts(t *testing.T) {
	courses := []types.Course{
		{Code: "MATH200", Term: "2026FA", Institution: "state-u"},
		{Code: "CS101", Term: "2026FA", Institution: "state-u"},
		{Code: "ART110", Term: "2026FA", Institution: "state-u"},
	}
	var items []map[string]ddbtypes.AttributeValue
	for _, c := range courses {
		data, _ := json.Marshal(c)
		items = append(items, map[string]ddbtypes.AttributeValue{
			"data": &ddbtypes.AttributeValueMemberS{Value: string(data)},
		})
	}

	var capturedPK string
	mock := &mockDDB{
		queryFn: func(_ context.Context, input *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			capturedPK = input.ExpressionAttributeValues[":pk"].(*ddbtypes.AttributeValueMemberS).Value
			return &dynamodb.QueryOutput{Items: items}, nil
		},
	}
	s := newTestStore(mock)

	got, err := s.GetCourses(context.Background(), "2026FA", "state-u", []string{"cs101", "math200"})
	if err != nil {
		t.Fatalf("GetCourses: %v", err)
	}
	if capturedPK != "COURSES#state-u#2026FA" {
		t.Errorf("query PK = %q, want %q", capturedPK, "COURSES#state-u#2026FA")
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Code != "CS101" || got[1].Code != "MATH200" {
		t.Errorf("codes = %q, %q; want CS101, MATH200", got[0].Code, got[1].Code)
	}
}

func TestGetCourses_PaginatesQuery(t *testing.T) {
	c1 := types.Course{Code: "CS101", Term: "2026FA", Institution: "state-u"}
	c2 := types.Course{Code: "MATH200", Term: "2026FA", Institution: "state-u"}
	data1, _ := json.Marshal(c1)
	data2, _ := json.Marshal(c2)

	calls := 0
	mock := &mockDDB{
		queryFn: func(_ context.Context, input *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			calls++
			if calls == 1 {
				if input.ExclusiveStartKey != nil {
					t.Error("first page should have no start key")
				}
				return &dynamodb.QueryOutput{
					Items: []map[string]ddbtypes.AttributeValue{
						{"data": &ddbtypes.AttributeValueMemberS{Value: string(data1)}},
					},
					LastEvaluatedKey: map[string]ddbtypes.AttributeValue{
						"PK": &ddbtypes.AttributeValueMemberS{Value: "COURSES#state-u#2026FA"},
					},
				}, nil
			}
			if input.ExclusiveStartKey == nil {
				t.Error("second page should carry the start key")
			}
			return &dynamodb.QueryOutput{
				Items: []map[string]ddbtypes.AttributeValue{
					{"data": &ddbtypes.AttributeValueMemberS{Value: string(data2)}},
				},
			}, nil
		},
	}
	s := newTestStore(mock)

	got, err := s.GetCourses(context.Background(), "2026FA", "state-u", nil)
	if err != nil {
		t.Fatalf("GetCourses: %v", err)
	}
	if calls != 2 {
		t.Fatalf("query calls = %d, want 2", calls)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestGetSections_CorruptData(t *testing.T) {
	mock := &mockDDB{
		queryFn: func(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{
				Items: []map[string]ddbtypes.AttributeValue{
					{"data": &ddbtypes.AttributeValueMemberS{Value: "not-json{{{"}},
				},
			}, nil
		},
	}
	s := newTestStore(mock)

	_, err := s.GetSections(context.Background(), "2026FA", "state-u", nil)
	if err == nil {
		t.Fatal("expected error for corrupt JSON data")
	}
}

func TestPutInstructors_KeyFormat(t *testing.T) {
	var captured *dynamodb.PutItemInput
	mock := &mockDDB{
		putItemFn: func(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			captured = input
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := newTestStore(mock)

	ins := types.Instructor{Name: "Dr. Smith", Institution: "state-u", Rating: 4.5}
	if err := s.PutInstructors(context.Background(), []types.Instructor{ins}); err != nil {
		t.Fatalf("PutInstructors: %v", err)
	}

	pk := captured.Item["PK"].(*ddbtypes.AttributeValueMemberS).Value
	sk := captured.Item["SK"].(*ddbtypes.AttributeValueMemberS).Value
	if pk != "INSTRUCTORS#state-u" {
		t.Errorf("PK = %q, want %q", pk, "INSTRUCTORS#state-u")
	}
	if sk != "INSTRUCTOR#DR. SMITH" {
		t.Errorf("SK = %q, want %q", sk, "INSTRUCTOR#DR. SMITH")
	}
}

// ---------------------------------------------------------------------------
// Sync metadata tests
// ---------------------------------------------------------------------------

func TestGetSyncMetadata_RoundTrip(t *testing.T) {
	meta := types.SyncMetadata{
		EntityType:  types.EntityCourses,
		Term:        "2026FA",
		Institution: "state-u",
		Status:      types.SyncSuccess,
		AttemptID:   "01ARZ3NDEKTSV4RRFFQ69G5FAV",
	}
	data, _ := json.Marshal(meta)

	var capturedKey map[string]ddbtypes.AttributeValue
	mock := &mockDDB{
		getItemFn: func(_ context.Context, input *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			capturedKey = input.Key
			return &dynamodb.GetItemOutput{
				Item: map[string]ddbtypes.AttributeValue{
					"data": &ddbtypes.AttributeValueMemberS{Value: string(data)},
				},
			}, nil
		},
	}
	s := newTestStore(mock)

	got, err := s.GetSyncMetadata(context.Background(), types.EntityCourses, "2026FA", "state-u")
	if err != nil {
		t.Fatalf("GetSyncMetadata: %v", err)
	}
	if got == nil {
		t.Fatal("expected metadata")
	}
	if got.Status != types.SyncSuccess {
		t.Errorf("status = %q, want %q", got.Status, types.SyncSuccess)
	}
	if got.AttemptID != meta.AttemptID {
		t.Errorf("attemptID = %q, want %q", got.AttemptID, meta.AttemptID)
	}

	pk := capturedKey["PK"].(*ddbtypes.AttributeValueMemberS).Value
	sk := capturedKey["SK"].(*ddbtypes.AttributeValueMemberS).Value
	if pk != "SYNC#state-u" {
		t.Errorf("PK = %q, want %q", pk, "SYNC#state-u")
	}
	if sk != "SYNC#courses#2026FA" {
		t.Errorf("SK = %q, want %q", sk, "SYNC#courses#2026FA")
	}
}

func TestGetSyncMetadata_NeverSynced(t *testing.T) {
	mock := &mockDDB{
		getItemFn: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: nil}, nil
		},
	}
	s := newTestStore(mock)

	got, err := s.GetSyncMetadata(context.Background(), types.EntityCourses, "2026FA", "state-u")
	if err != nil {
		t.Fatalf("GetSyncMetadata: %v", err)
	}
	if got != nil {
		t.Error("expected nil for never-synced tuple")
	}
}

func TestListSyncMetadata_AllInstitutionsUsesScan(t *testing.T) {
	meta := types.SyncMetadata{EntityType: types.EntitySections, Term: "2026FA", Institution: "state-u", Status: types.SyncFailed}
	data, _ := json.Marshal(meta)

	scanned := false
	mock := &mockDDB{
		scanFn: func(_ context.Context, input *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			scanned = true
			prefix := input.ExpressionAttributeValues[":prefix"].(*ddbtypes.AttributeValueMemberS).Value
			if prefix != "SYNC#" {
				t.Errorf("scan prefix = %q, want %q", prefix, "SYNC#")
			}
			return &dynamodb.ScanOutput{
				Items: []map[string]ddbtypes.AttributeValue{
					{"data": &ddbtypes.AttributeValueMemberS{Value: string(data)}},
				},
			}, nil
		},
	}
	s := newTestStore(mock)

	got, err := s.ListSyncMetadata(context.Background(), "")
	if err != nil {
		t.Fatalf("ListSyncMetadata: %v", err)
	}
	if !scanned {
		t.Fatal("expected Scan for the all-institutions listing")
	}
	if len(got) != 1 || got[0].Status != types.SyncFailed {
		t.Fatalf("got = %+v, want one FAILED tuple", got)
	}
}

// ---------------------------------------------------------------------------
// Lock conditional expression tests
// ---------------------------------------------------------------------------

func TestAcquireLock_Success(t *testing.T) {
	var captured *dynamodb.PutItemInput
	mock := &mockDDB{
		putItemFn: func(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			captured = input
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := newTestStore(mock)

	acquired, err := s.AcquireLock(context.Background(), "refresh:courses:2026FA:state-u", 30*time.Second)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if !acquired {
		t.Error("expected lock to be acquired")
	}

	if captured.ConditionExpression == nil {
		t.Fatal("expected ConditionExpression to be set")
	}
	if *captured.ConditionExpression != "attribute_not_exists(PK) OR expiresAt < :now" {
		t.Errorf("condition = %q, want %q", *captured.ConditionExpression, "attribute_not_exists(PK) OR expiresAt < :now")
	}

	pk := captured.Item["PK"].(*ddbtypes.AttributeValueMemberS).Value
	if pk != "LOCK#refresh:courses:2026FA:state-u" {
		t.Errorf("PK = %q, want %q", pk, "LOCK#refresh:courses:2026FA:state-u")
	}
}

func TestAcquireLock_AlreadyHeld(t *testing.T) {
	mock := &mockDDB{
		putItemFn: func(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			return nil, &ddbtypes.ConditionalCheckFailedException{
				Message: strPtr("The conditional request failed"),
			}
		},
	}
	s := newTestStore(mock)

	acquired, err := s.AcquireLock(context.Background(), "held-lock", time.Minute)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if acquired {
		t.Error("expected lock NOT to be acquired")
	}
}

func TestAcquireLock_OtherError(t *testing.T) {
	mock := &mockDDB{
		putItemFn: func(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			return nil, fmt.Errorf("network timeout")
		},
	}
	s := newTestStore(mock)

	_, err := s.AcquireLock(context.Background(), "lock", time.Minute)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestReleaseLock_DeletesCorrectKey(t *testing.T) {
	var captured *dynamodb.DeleteItemInput
	mock := &mockDDB{
		deleteItemFn: func(_ context.Context, input *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			captured = input
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}
	s := newTestStore(mock)

	if err := s.ReleaseLock(context.Background(), "my-lock"); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}

	pk := captured.Key["PK"].(*ddbtypes.AttributeValueMemberS).Value
	sk := captured.Key["SK"].(*ddbtypes.AttributeValueMemberS).Value
	if pk != "LOCK#my-lock" {
		t.Errorf("PK = %q, want %q", pk, "LOCK#my-lock")
	}
	if sk != "LOCK" {
		t.Errorf("SK = %q, want %q", sk, "LOCK")
	}
}

// ---------------------------------------------------------------------------
// Error classification tests
// ---------------------------------------------------------------------------

func TestIsConditionalCheckFailed(t *testing.T) {
	ccfe := &ddbtypes.ConditionalCheckFailedException{Message: strPtr("failed")}
	if !isConditionalCheckFailed(ccfe) {
		t.Error("expected true for ConditionalCheckFailedException")
	}

	wrapped := fmt.Errorf("wrapped: %w", ccfe)
	if !isConditionalCheckFailed(wrapped) {
		t.Error("expected true for wrapped ConditionalCheckFailedException")
	}

	other := errors.New("some other error")
	if isConditionalCheckFailed(other) {
		t.Error("expected false for non-conditional error")
	}
}

// ---------------------------------------------------------------------------
// Ping / ensureTable tests
// ---------------------------------------------------------------------------

func TestPing_PropagatesError(t *testing.T) {
	mock := &mockDDB{
		describeTableFn: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			return nil, fmt.Errorf("table not found")
		},
	}
	s := newTestStore(mock)

	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error from Ping")
	}
}

func TestEnsureTable_AlreadyExists(t *testing.T) {
	mock := &mockDDB{
		createTableFn: func(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
			return nil, &ddbtypes.ResourceInUseException{Message: strPtr("already exists")}
		},
	}
	s := newTestStore(mock)

	if err := s.ensureTable(context.Background()); err != nil {
		t.Fatalf("ensureTable should ignore ResourceInUseException, got: %v", err)
	}
}

func strPtr(s string) *string { return &s }
