package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/carpool/internal/models"
)

// HTTPClient talks to a remote carpool API over JSON.
type HTTPClient struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{Endpoint: strings.TrimRight(endpoint, "/"), Client: &http.Client{Timeout: 10 * time.Second}}
}

func (c *HTTPClient) Search(ctx context.Context, q models.SearchQuery) ([]models.RideOffer, error) {
	var out struct {
		Rides []models.RideOffer `json:"rides"`
	}
	if err := c.do(ctx, http.MethodPost, "/rides/search", q, &out); err != nil {
		return nil, err
	}
	return out.Rides, nil
}

func (c *HTTPClient) Authenticate(ctx context.Context, email, password string) (models.Identity, error) {
	var id models.Identity
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/auth/login", body, &id)
	return id, err
}

func (c *HTTPClient) CreateAccount(ctx context.Context, p models.Profile) (models.Identity, error) {
	var id models.Identity
	err := c.do(ctx, http.MethodPost, "/auth/register", p, &id)
	return id, err
}

func (c *HTTPClient) Book(ctx context.Context, req models.BookingRequest) (models.Booking, error) {
	var b models.Booking
	err := c.do(ctx, http.MethodPost, "/bookings", req, &b)
	return b, err
}

func (c *HTTPClient) PublishRide(ctx context.Context, driver models.Identity, d models.RideDraft) (models.Ride, error) {
	var r models.Ride
	body := struct {
		DriverID string `json:"driver_id"`
		models.RideDraft
	}{driver.ID, d}
	err := c.do(ctx, http.MethodPost, "/rides", body, &r)
	return r, err
}

func (c *HTTPClient) PopularRoutes(ctx context.Context) ([]models.PopularRoute, error) {
	var out struct {
		Routes []models.PopularRoute `json:"routes"`
	}
	if err := c.do(ctx, http.MethodGet, "/routes/popular", nil, &out); err != nil {
		return nil, err
	}
	return out.Routes, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Endpoint+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", models.ErrNetwork, path, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	var e struct {
		Error  string   `json:"error"`
		Fields []string `json:"fields"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return models.ErrAuth
	case http.StatusConflict:
		return models.ErrInsufficientSeats
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return models.NewValidationError(e.Error, e.Fields...)
	case http.StatusGatewayTimeout:
		return models.ErrTimeout
	default:
		return fmt.Errorf("%w: status %d %s", models.ErrNetwork, resp.StatusCode, e.Error)
	}
}
