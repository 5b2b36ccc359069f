package upstream

import (
	"context"
	"net/url"
	"strings"

	"trademinutes-gateway/internal/models"
)

// MinGeocodeQuery is the shortest query sent to the provider.
const MinGeocodeQuery = 3

// Geocoder autocompletes free-text addresses, biased to one country and city.
type Geocoder struct {
	c       *Client
	token   string
	country string
	city    string
}

// NewGeocoder wraps c as the geocoding provider.
func NewGeocoder(c *Client, token, country, city string) *Geocoder {
	return &Geocoder{c: c, token: token, country: country, city: city}
}

// Suggest returns up to five address candidates for query. Short queries
// return no suggestions without calling the provider.
func (g *Geocoder) Suggest(ctx context.Context, query string) ([]models.GeocodeSuggestion, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinGeocodeQuery {
		return []models.GeocodeSuggestion{}, nil
	}
	search := query
	if g.city != "" {
		search += " " + g.city
	}
	q := url.Values{}
	q.Set("access_token", g.token)
	q.Set("autocomplete", "true")
	if g.country != "" {
		q.Set("country", g.country)
	}
	q.Set("types", "address")
	q.Set("limit", "5")
	path := "/geocoding/v5/mapbox.places/" + url.PathEscape(search) + ".json?" + q.Encode()
	body, err := g.c.Get(ctx, path, "")
	if err != nil {
		return nil, err
	}
	return models.DecodeGeocode(body)
}
