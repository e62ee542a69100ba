package marketdata

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EntityTypeVolatilitySurface is the stable type name for volatility surfaces.
const EntityTypeVolatilitySurface = "volatility-surface"

// SurfacePoint is one node of a volatility surface.
type SurfacePoint struct {
	Tenor      string  `json:"tenor" dynamodbav:"tenor"`
	Strike     Decimal `json:"strike" dynamodbav:"strike"`
	Volatility Decimal `json:"volatility" dynamodbav:"volatility"`
}

// VolatilitySurface is a full surface snapshot for an underlying.
type VolatilitySurface struct {
	Core

	Currency string         `json:"currency"`
	Points   []SurfacePoint `json:"points"`
}

type volSurfacePayload struct {
	Currency string         `dynamodbav:"currency"`
	Points   []SurfacePoint `dynamodbav:"points"`
}

func init() {
	RegisterDecoder(EntityTypeVolatilitySurface, decodeVolatilitySurface)
}

func (s *VolatilitySurface) DocumentCore() *Core      { return &s.Core }
func (s *VolatilitySurface) EntityType() string       { return EntityTypeVolatilitySurface }
func (s *VolatilitySurface) SupportsSoftDelete() bool { return true }

func (s *VolatilitySurface) PayloadAttributes() (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(volSurfacePayload{
		Currency: s.Currency,
		Points:   s.Points,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal surface payload: %w", err)
	}
	return item, nil
}

func decodeVolatilitySurface(core Core, item map[string]types.AttributeValue) (Document, error) {
	var payload volSurfacePayload
	if err := attributevalue.UnmarshalMap(item, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal surface payload: %w", err)
	}
	return &VolatilitySurface{
		Core:     core,
		Currency: payload.Currency,
		Points:   payload.Points,
	}, nil
}
