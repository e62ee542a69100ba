package marketdata

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EntityTypeFxSpotPrice is the stable type name for FX spot price documents.
const EntityTypeFxSpotPrice = "fx-spot-price"

// Quote sides.
const (
	SideBid = "bid"
	SideMid = "mid"
	SideAsk = "ask"
)

// FxSpotPrice is a spot price observation for a currency pair.
type FxSpotPrice struct {
	Core

	Price         Decimal `json:"price"`
	Side          string  `json:"side"`
	BaseCurrency  string  `json:"baseCurrency"`
	QuoteCurrency string  `json:"quoteCurrency"`
}

type fxSpotPayload struct {
	Price         Decimal `dynamodbav:"price"`
	Side          string  `dynamodbav:"side"`
	BaseCurrency  string  `dynamodbav:"base_currency"`
	QuoteCurrency string  `dynamodbav:"quote_currency"`
}

func init() {
	RegisterDecoder(EntityTypeFxSpotPrice, decodeFxSpotPrice)
}

func (p *FxSpotPrice) DocumentCore() *Core      { return &p.Core }
func (p *FxSpotPrice) EntityType() string       { return EntityTypeFxSpotPrice }
func (p *FxSpotPrice) SupportsSoftDelete() bool { return true }

// PayloadAttributes marshals the price fields.
func (p *FxSpotPrice) PayloadAttributes() (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(fxSpotPayload{
		Price:         p.Price,
		Side:          p.Side,
		BaseCurrency:  p.BaseCurrency,
		QuoteCurrency: p.QuoteCurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal fx spot payload: %w", err)
	}
	return item, nil
}

func decodeFxSpotPrice(core Core, item map[string]types.AttributeValue) (Document, error) {
	var payload fxSpotPayload
	if err := attributevalue.UnmarshalMap(item, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal fx spot payload: %w", err)
	}
	return &FxSpotPrice{
		Core:          core,
		Price:         payload.Price,
		Side:          payload.Side,
		BaseCurrency:  payload.BaseCurrency,
		QuoteCurrency: payload.QuoteCurrency,
	}, nil
}
