// File: internal/listing/esutil/util.go
package esutil

import (
	"encoding/json"
	"errors"
	"fmt"

	"marketplace_backend/internal/listing"
)

// ListingToElasticsearchDoc converts a listing to its Elasticsearch document.
// Detail associations must be preloaded.
func ListingToElasticsearchDoc(l *listing.Listing) (string, error) {
	doc, err := listingDocument(l)
	if err != nil {
		return "", err
	}
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("error marshalling listing to JSON for ES: %w", err)
	}
	return string(docBytes), nil
}

func listingDocument(l *listing.Listing) (map[string]interface{}, error) {
	if l == nil {
		return nil, errors.New("listing cannot be nil")
	}

	doc := map[string]interface{}{
		"title":        l.Title,
		"listing_type": string(l.ListingType),
		"status":       string(l.Status),
		"plan":         string(l.Plan),
		"user_id":      l.UserID,
		"industry":     l.Industry,
		"country":      l.Country,
		"city":         l.City,
		"created_at":   l.CreatedAt,
		"updated_at":   l.UpdatedAt,
	}
	if l.Slug != nil {
		doc["slug"] = *l.Slug
	}
	if l.ImageURL != nil {
		doc["image_url"] = *l.ImageURL
	}

	switch d := l.Details().(type) {
	case *listing.BusinessDetails:
		doc["name"] = d.BusinessName
		doc["summary"] = d.Description
		doc["year_founded"] = d.YearEstablished
		doc["price"] = d.AskingPrice
		doc["annual_revenue"] = d.AnnualRevenue
		doc["annual_profit"] = d.AnnualProfit
		doc["owner_involvement"] = d.OwnerInvolvement
	case *listing.FranchiseDetails:
		doc["name"] = d.BrandName
		doc["summary"] = d.Concept
		doc["year_founded"] = d.YearFounded
		doc["price"] = d.InitialInvestment
		doc["total_units"] = d.TotalUnits
		doc["royalty_percentage"] = d.RoyaltyPercentage
		doc["support_provided"] = []string(d.SupportProvided)
		if d.AverageUnitRevenue != nil {
			doc["annual_revenue"] = *d.AverageUnitRevenue
		}
	case *listing.InvestmentDetails:
		doc["name"] = d.CompanyName
		doc["summary"] = d.Overview
		doc["year_founded"] = d.YearFounded
		doc["price"] = d.FundingAmount
		doc["investment_type"] = d.InvestmentType
		doc["minimum_investment"] = d.MinimumInvestment
		if d.EquityOfferedPercentage != nil {
			doc["equity_offered_percentage"] = *d.EquityOfferedPercentage
		}
		if d.AnnualRevenue != nil {
			doc["annual_revenue"] = *d.AnnualRevenue
		}
	}
	return doc, nil
}
