package marketdata

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EntityTypeOrdinalPrice is the stable type name for crypto ordinal prices.
const EntityTypeOrdinalPrice = "ordinal-price"

// OrdinalPrice is a price observation for a crypto ordinal inscription.
type OrdinalPrice struct {
	Core

	Collection        string  `json:"collection"`
	InscriptionNumber int64   `json:"inscriptionNumber"`
	Price             Decimal `json:"price"`
	Currency          string  `json:"currency"`
}

type ordinalPayload struct {
	Collection        string  `dynamodbav:"collection"`
	InscriptionNumber int64   `dynamodbav:"inscription_number"`
	Price             Decimal `dynamodbav:"price"`
	Currency          string  `dynamodbav:"currency"`
}

func init() {
	RegisterDecoder(EntityTypeOrdinalPrice, decodeOrdinalPrice)
}

func (p *OrdinalPrice) DocumentCore() *Core      { return &p.Core }
func (p *OrdinalPrice) EntityType() string       { return EntityTypeOrdinalPrice }
func (p *OrdinalPrice) SupportsSoftDelete() bool { return true }

func (p *OrdinalPrice) PayloadAttributes() (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(ordinalPayload{
		Collection:        p.Collection,
		InscriptionNumber: p.InscriptionNumber,
		Price:             p.Price,
		Currency:          p.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ordinal payload: %w", err)
	}
	return item, nil
}

func decodeOrdinalPrice(core Core, item map[string]types.AttributeValue) (Document, error) {
	var payload ordinalPayload
	if err := attributevalue.UnmarshalMap(item, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal ordinal payload: %w", err)
	}
	return &OrdinalPrice{
		Core:              core,
		Collection:        payload.Collection,
		InscriptionNumber: payload.InscriptionNumber,
		Price:             payload.Price,
		Currency:          payload.Currency,
	}, nil
}
