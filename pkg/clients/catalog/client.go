package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/agromarket/internal/config"
	"github.com/mamadbah2/agromarket/internal/domain/models"
	"github.com/mamadbah2/agromarket/internal/repository"
)

// APIClient reads farm profiles and the product catalog from the catalog service.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a catalog API client using the provided configuration values.
func NewClient(cfg config.CatalogConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	return &APIClient{httpClient: restyClient}
}

// apiError represents the catalog service error payload.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FarmByID fetches a farm profile. A 404 maps to repository.ErrNotFound.
func (c *APIClient) FarmByID(ctx context.Context, farmID string) (models.Farm, error) {
	result := new(models.Farm)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr).
		Get("/farms/" + url.PathEscape(farmID))
	if err != nil {
		return models.Farm{}, fmt.Errorf("fetch farm %s: %w", farmID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return models.Farm{}, repository.ErrNotFound
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return models.Farm{}, statusError(resp.StatusCode(), apiErr)
	}
	if !result.WaterSource.Valid() {
		return models.Farm{}, fmt.Errorf("farm %s: unknown water source %q", farmID, result.WaterSource)
	}

	return *result, nil
}

// ListProducts fetches the full product catalog in the order the service returns it.
func (c *APIClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	var result []models.Product
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(apiErr).
		Get("/products")
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, statusError(resp.StatusCode(), apiErr)
	}

	if result == nil {
		result = []models.Product{}
	}
	return result, nil
}

func statusError(status int, apiErr *apiError) error {
	message := ""
	if apiErr != nil {
		message = apiErr.Error.Message
	}
	return fmt.Errorf("catalog api error: status=%d, message=%s", status, message)
}
