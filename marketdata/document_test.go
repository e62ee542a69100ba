package marketdata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCore() Core {
	return Core{
		DataType:      "price.spot",
		AssetClass:    "fx",
		AssetID:       "EURUSD",
		Region:        "global",
		DocumentType:  "official",
		SchemaVersion: "0.0.0",
		AsOfDate:      time.Date(2025, time.May, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestCoreID(t *testing.T) {
	c := testCore()
	assert.Equal(t, "price.spot__fx__eurusd__global__2025-05-14__official__0.0.0", c.ID())

	v := 1
	c.Version = &v
	assert.Equal(t, "price.spot__fx__eurusd__global__2025-05-14__official__0.0.0__1", c.ID())
}

func TestCoreID_TagsDoNotAffectIdentity(t *testing.T) {
	c := testCore()
	before := c.ID()

	c.AddTag("intraday")
	c.AddTag("reviewed")
	assert.Equal(t, before, c.ID())
}

func TestCoreID_DisplayAssetIDDoesNotAffectIdentity(t *testing.T) {
	c := testCore()
	before := c.ID()

	c.DisplayAssetID = "EurUsd"
	assert.Equal(t, before, c.ID())
}

func TestCoreID_RecomputedAfterFieldChange(t *testing.T) {
	c := testCore()
	first := c.ID()

	c.AssetID = "GBPUSD"
	second := c.ID()

	assert.NotEqual(t, first, second)
	assert.Contains(t, second, "gbpusd")
}

func TestAddTag_SetSemantics(t *testing.T) {
	c := testCore()
	c.AddTag("b")
	c.AddTag("a")
	c.AddTag("b")
	c.AddTag("")

	assert.Equal(t, []string{"a", "b"}, c.Tags)
	assert.True(t, c.HasTag("a"))
	assert.False(t, c.HasTag("c"))
}

func TestBusinessKeyID_MatchesCore(t *testing.T) {
	doc := &FxSpotPrice{
		Core:          testCore(),
		Price:         NewDecimal(decimal.NewFromFloat(1.1)),
		Side:          SideMid,
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
	}
	v := 3
	doc.Version = &v

	key := Key(doc)
	assert.Equal(t, doc.BusinessKeyID(), key.ID())
	assert.Equal(t, "eurusd", key.PartitionKey())
}

func TestDecode_RoundTripsEachType(t *testing.T) {
	now := time.Date(2025, time.May, 14, 9, 30, 0, 0, time.UTC)

	docs := []Document{
		&FxSpotPrice{
			Core:          testCore(),
			Price:         NewDecimal(decimal.NewFromFloat(1.1)),
			Side:          SideBid,
			BaseCurrency:  "EUR",
			QuoteCurrency: "USD",
		},
		&OrdinalPrice{
			Core: Core{
				DataType:      "price.ordinal",
				AssetClass:    "crypto",
				AssetID:       "btc-ordinal-42",
				Region:        "global",
				DocumentType:  "official",
				SchemaVersion: "0.0.0",
				AsOfDate:      now,
			},
			Collection:        "punks",
			InscriptionNumber: 42,
			Price:             NewDecimal(decimal.NewFromInt(100)),
			Currency:          "BTC",
		},
		&VolatilitySurface{
			Core: Core{
				DataType:      "vol.surface",
				AssetClass:    "fx",
				AssetID:       "EURUSD",
				Region:        "global",
				DocumentType:  "official",
				SchemaVersion: "0.0.0",
				AsOfDate:      now,
			},
			Currency: "USD",
			Points: []SurfacePoint{
				{Tenor: "1M", Strike: NewDecimal(decimal.NewFromFloat(1.05)), Volatility: NewDecimal(decimal.NewFromFloat(0.095))},
			},
		},
	}

	for _, doc := range docs {
		t.Run(doc.EntityType(), func(t *testing.T) {
			item, err := doc.PayloadAttributes()
			require.NoError(t, err)

			decoded, err := Decode(doc.EntityType(), *doc.DocumentCore(), item)
			require.NoError(t, err)
			assert.Equal(t, doc, decoded)
		})
	}
}

func TestDecode_UnknownEntityType(t *testing.T) {
	_, err := Decode("bond-curve", Core{}, map[string]types.AttributeValue{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no decoder registered")
}

func TestDocumentJSON_FlattensCore(t *testing.T) {
	doc := &FxSpotPrice{
		Core:          testCore(),
		Price:         NewDecimal(decimal.NewFromFloat(1.1)),
		Side:          SideMid,
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
	}
	doc.DisplayAssetID = "EurUsd"

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "EURUSD", got["assetId"])
	assert.Equal(t, "EurUsd", got["displayAssetId"])
	assert.Equal(t, "mid", got["side"])
	assert.Equal(t, "1.1", got["price"])
}
