//go:build e2e

// Package e2e contains end-to-end tests against a real DynamoDB table.
// Run with: go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/meridianquant/docvault/marketdata"
	"github.com/meridianquant/docvault/store"
)

// Table name is unique per test run to avoid conflicts.
const tablePrefix = "docvault-e2e-test"

var (
	testTable string

	ddbClient *dynamodb.Client
	testStore *store.Store
)

func TestMain(m *testing.M) {
	testTable = fmt.Sprintf("%s-%s", tablePrefix, uuid.New().String()[:8])
	fmt.Printf("Test table: %s\n", testTable)

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}
	ddbClient = dynamodb.NewFromConfig(cfg)

	if err := createTable(ctx); err != nil {
		fmt.Printf("Failed to create table: %v\n", err)
		os.Exit(1)
	}

	storeCfg := store.DefaultConfig()
	storeCfg.TableName = testTable
	testStore = store.New(ddbClient, storeCfg)

	code := m.Run()

	if err := deleteTable(ctx); err != nil {
		fmt.Printf("Failed to delete table: %v\n", err)
	}
	os.Exit(code)
}

func createTable(ctx context.Context) error {
	fmt.Println("Creating test table...")

	str := types.ScalarAttributeTypeS
	num := types.ScalarAttributeTypeN
	allAttrs := types.ProjectionTypeAll

	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(testTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: str},
			{AttributeName: aws.String("sk"), AttributeType: str},
			{AttributeName: aws.String("bk"), AttributeType: str},
			{AttributeName: aws.String("version"), AttributeType: num},
			{AttributeName: aws.String("type_key"), AttributeType: str},
			{AttributeName: aws.String("as_of_date"), AttributeType: str},
			{AttributeName: aws.String("entity_type"), AttributeType: str},
			{AttributeName: aws.String("create_ts"), AttributeType: str},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String("bk-version-index"),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("bk"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("version"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: allAttrs},
			},
			{
				IndexName: aws.String("type-date-index"),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("type_key"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("as_of_date"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: allAttrs},
			},
			{
				IndexName: aws.String("type-created-index"),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("entity_type"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("create_ts"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: allAttrs},
			},
			{
				IndexName: aws.String("id-index"),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("sk"), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{ProjectionType: allAttrs},
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", testTable, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(ddbClient)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(testTable),
	}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", testTable, err)
	}

	fmt.Println("Table created and active")
	return nil
}

func deleteTable(ctx context.Context) error {
	fmt.Println("Deleting test table...")
	_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(testTable),
	})
	return err
}

// newSpot builds an fx-spot document with a unique asset id per test so runs
// never collide on business keys.
func newSpot(asset string, asOf time.Time) *marketdata.FxSpotPrice {
	price, _ := marketdata.ParseDecimal("1.0843")
	return &marketdata.FxSpotPrice{
		Core: marketdata.Core{
			DataType:      "price.spot",
			AssetClass:    "fx",
			AssetID:       asset,
			Region:        "global",
			DocumentType:  "official",
			SchemaVersion: "0.0.0",
			AsOfDate:      asOf,
		},
		Price:         price,
		Side:          marketdata.SideMid,
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
	}
}

func uniqueAsset() string {
	return "e2e-" + uuid.New().String()[:8]
}

// GSI propagation is eventually consistent; retry reads briefly.
func eventually(t *testing.T, check func() (bool, error)) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for {
		ok, err := check()
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func TestVersionSequence(t *testing.T) {
	ctx := context.Background()
	asset := uniqueAsset()
	asOf := time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC)

	for want := 1; want <= 3; want++ {
		var res store.WriteResult
		eventually(t, func() (bool, error) {
			res = testStore.Add(ctx, newSpot(asset, asOf))
			// A stale version index surfaces as a conflict; retry.
			return res.Ok(), nil
		})
		if res.Version != want {
			t.Fatalf("expected version %d, got %d", want, res.Version)
		}
	}
}

func TestGetByIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	asset := uniqueAsset()
	asOf := time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC)

	res := testStore.Add(ctx, newSpot(asset, asOf))
	if !res.Ok() {
		t.Fatalf("Add failed: %+v", res)
	}

	eventually(t, func() (bool, error) {
		doc, err := testStore.GetByID(ctx, res.ID)
		if err != nil {
			return false, err
		}
		return doc != nil, nil
	})

	doc, err := testStore.GetByID(ctx, res.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	spot, ok := doc.(*marketdata.FxSpotPrice)
	if !ok {
		t.Fatalf("expected *FxSpotPrice, got %T", doc)
	}
	if spot.DocumentCore().ID() != res.ID {
		t.Errorf("expected id %q, got %q", res.ID, spot.DocumentCore().ID())
	}
	if spot.Price.String() != "1.0843" {
		t.Errorf("expected price 1.0843, got %s", spot.Price)
	}
}

func TestSoftDeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	asset := uniqueAsset()
	asOf := time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC)

	res := testStore.Add(ctx, newSpot(asset, asOf))
	if !res.Ok() {
		t.Fatalf("Add failed: %+v", res)
	}

	eventually(t, func() (bool, error) {
		doc, err := testStore.GetByID(ctx, res.ID)
		if err != nil {
			return false, err
		}
		return doc != nil, nil
	})

	del := testStore.Delete(ctx, res.ID, true)
	if !del.Ok() || !del.Deleted {
		t.Fatalf("soft delete failed: %+v", del)
	}

	doc, err := testStore.GetByID(ctx, res.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if doc != nil {
		t.Error("expected soft-deleted document to be filtered")
	}

	bk := marketdata.Key(newSpot(asset, asOf)).ID()
	eventually(t, func() (bool, error) {
		all, err := testStore.GetAllVersions(ctx, bk, true)
		if err != nil {
			return false, err
		}
		return len(all) == 1 && all[0].DocumentCore().IsDeleted, nil
	})

	// The next write never reuses the deleted version.
	var next store.WriteResult
	eventually(t, func() (bool, error) {
		next = testStore.Add(ctx, newSpot(asset, asOf))
		return next.Ok(), nil
	})
	if next.Version != 2 {
		t.Errorf("expected version 2 after soft delete, got %d", next.Version)
	}

	purged, err := testStore.PurgeSoftDeleted(ctx)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if purged < 1 {
		t.Errorf("expected at least 1 purged document, got %d", purged)
	}
}

func TestRangeQuery(t *testing.T) {
	ctx := context.Background()
	asset := uniqueAsset()

	days := []time.Time{
		time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}
	for _, day := range days {
		if res := testStore.Add(ctx, newSpot(asset, day)); !res.Ok() {
			t.Fatalf("Add failed: %+v", res)
		}
	}

	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	eventually(t, func() (bool, error) {
		result, err := testStore.QueryByRange(ctx, store.RangeQuery{
			DataType:   "price.spot",
			AssetClass: "fx",
			AssetID:    asset,
			From:       &from,
			To:         &to,
		})
		if err != nil {
			return false, err
		}
		return len(result.Documents) == 2, nil
	})
}

func TestGetLatest(t *testing.T) {
	ctx := context.Background()
	asset := uniqueAsset()
	asOf := time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		var res store.WriteResult
		eventually(t, func() (bool, error) {
			res = testStore.Add(ctx, newSpot(asset, asOf))
			return res.Ok(), nil
		})
	}

	key := marketdata.Key(newSpot(asset, asOf))
	eventually(t, func() (bool, error) {
		latest, err := testStore.GetLatest(ctx, key)
		if err != nil {
			return false, err
		}
		return latest != nil && *latest.DocumentCore().Version == 2, nil
	})
}
