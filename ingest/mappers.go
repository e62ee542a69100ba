package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/meridianquant/docvault/marketdata"
)

// DefaultMappers returns the mapper registry for the known document types.
func DefaultMappers() *Mappers {
	m := NewMappers()
	m.Register("price.spot", "fx", mapFxSpot)
	m.Register("price.ordinal", "crypto", mapOrdinal)
	m.Register("vol.surface", "fx", mapVolSurface)
	return m
}

// commonDTO carries the identity fields shared by every payload.
type commonDTO struct {
	AssetID      string `json:"assetId"`
	Region       string `json:"region"`
	DocumentType string `json:"documentType"`
	AsOfDate     string `json:"asOfDate"`
	AsOfTime     string `json:"asOfTime"`
}

// core builds the document core from the shared fields, preserving the
// payload's original asset-id casing for display.
func (d commonDTO) core(req Request) (marketdata.Core, error) {
	asOfDate, err := time.Parse("2006-01-02", d.AsOfDate)
	if err != nil {
		return marketdata.Core{}, fmt.Errorf("parse asOfDate %q: %w", d.AsOfDate, err)
	}

	core := marketdata.Core{
		DataType:       req.DataType,
		AssetClass:     req.AssetClass,
		AssetID:        d.AssetID,
		DisplayAssetID: d.AssetID,
		Region:         d.Region,
		DocumentType:   d.DocumentType,
		SchemaVersion:  req.SchemaVersion,
		AsOfDate:       asOfDate,
	}
	if d.AsOfTime != "" {
		clock, err := time.Parse("15:04:05", d.AsOfTime)
		if err != nil {
			return marketdata.Core{}, fmt.Errorf("parse asOfTime %q: %w", d.AsOfTime, err)
		}
		at := time.Date(asOfDate.Year(), asOfDate.Month(), asOfDate.Day(),
			clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
		core.AsOfTime = &at
	}
	return core, nil
}

func mapFxSpot(req Request) (marketdata.Document, error) {
	var dto struct {
		commonDTO
		Price         marketdata.Decimal `json:"price"`
		Side          string             `json:"side"`
		BaseCurrency  string             `json:"baseCurrency"`
		QuoteCurrency string             `json:"quoteCurrency"`
	}
	if err := json.Unmarshal(req.Body, &dto); err != nil {
		return nil, err
	}
	core, err := dto.core(req)
	if err != nil {
		return nil, err
	}
	return &marketdata.FxSpotPrice{
		Core:          core,
		Price:         dto.Price,
		Side:          dto.Side,
		BaseCurrency:  dto.BaseCurrency,
		QuoteCurrency: dto.QuoteCurrency,
	}, nil
}

func mapOrdinal(req Request) (marketdata.Document, error) {
	var dto struct {
		commonDTO
		Collection        string             `json:"collection"`
		InscriptionNumber int64              `json:"inscriptionNumber"`
		Price             marketdata.Decimal `json:"price"`
		Currency          string             `json:"currency"`
	}
	if err := json.Unmarshal(req.Body, &dto); err != nil {
		return nil, err
	}
	core, err := dto.core(req)
	if err != nil {
		return nil, err
	}
	return &marketdata.OrdinalPrice{
		Core:              core,
		Collection:        dto.Collection,
		InscriptionNumber: dto.InscriptionNumber,
		Price:             dto.Price,
		Currency:          dto.Currency,
	}, nil
}

func mapVolSurface(req Request) (marketdata.Document, error) {
	var dto struct {
		commonDTO
		Currency string                    `json:"currency"`
		Points   []marketdata.SurfacePoint `json:"points"`
	}
	if err := json.Unmarshal(req.Body, &dto); err != nil {
		return nil, err
	}
	core, err := dto.core(req)
	if err != nil {
		return nil, err
	}
	return &marketdata.VolatilitySurface{
		Core:     core,
		Currency: dto.Currency,
		Points:   dto.Points,
	}, nil
}
