package pms

import (
	"context"
	"fmt"
	"hbs/src/types"
	"hbs/src/worker"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	pageSize = 100
	maxPages = 200

	// A checkout-cutoff fetch walks unfiltered pages, so it stops after
	// this many consecutive pages with no matching record. Bounds the
	// worst case, at the cost of missing matches that only appear later
	// in the listing order.
	maxConsecutiveNonMatching = 3
)

// Client is a typed HTTP client for one tenant's PMS credentials. Build
// one per reconciliation run via the vault; never reuse across runs.
type Client struct {
	http       *http.Client
	apiUrl     string
	apiKey     string
	propertyID string
	tenant     types.Tenant
	retry      worker.RetryPolicy
}

func NewClient(settings *types.PmsSettings, tenant types.Tenant) *Client {
	return &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		apiUrl:     settings.ApiUrl,
		apiKey:     settings.ApiKey,
		propertyID: settings.PropertyID,
		tenant:     tenant,
		retry:      worker.DefaultRetryPolicy(),
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error) {
	u := c.apiUrl + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxRetries+1; attempt++ {
		if attempt > 1 {
			delay := c.retry.NextDelay(attempt - 1)
			log.Printf("[LobbyPMS] retrying %s in %s (attempt %d)\n", endpoint, delay, attempt)
			select {
			case <-ctx.Done():
				return gjson.Result{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return gjson.Result{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = &types.IntegrationError{
				Integration: types.INTEGRATION_PMS,
				Tenant:      c.tenant,
				Endpoint:    endpoint,
				Err:         err,
			}
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = &types.IntegrationError{
				Integration: types.INTEGRATION_PMS,
				Tenant:      c.tenant,
				Endpoint:    endpoint,
				StatusCode:  resp.StatusCode,
				Err:         err,
			}
			continue
		}

		if resp.StatusCode >= 400 {
			ierr := &types.IntegrationError{
				Integration: types.INTEGRATION_PMS,
				Tenant:      c.tenant,
				Endpoint:    endpoint,
				StatusCode:  resp.StatusCode,
				Err:         fmt.Errorf("pms returned %s", resp.Status),
			}
			if !ierr.Retriable() {
				return gjson.Result{}, ierr
			}
			lastErr = ierr
			continue
		}

		raw := string(body)
		// A 200 with an HTML body means the endpoint path is wrong
		// (the dashboard host serves an HTML 404 page).
		if strings.Contains(raw, "<!DOCTYPE") {
			return gjson.Result{}, &types.IntegrationError{
				Integration: types.INTEGRATION_PMS,
				Tenant:      c.tenant,
				Endpoint:    endpoint,
				StatusCode:  resp.StatusCode,
				Err:         fmt.Errorf("pms endpoint returned HTML, check the configured api url"),
			}
		}
		if !gjson.Valid(raw) {
			return gjson.Result{}, &types.IntegrationError{
				Integration: types.INTEGRATION_PMS,
				Tenant:      c.tenant,
				Endpoint:    endpoint,
				StatusCode:  resp.StatusCode,
				Err:         fmt.Errorf("pms returned invalid json"),
			}
		}
		return gjson.Parse(raw), nil
	}
	return gjson.Result{}, lastErr
}

// records extracts the listing array: {data: [...]}, a bare array, or the
// {success, data} wrapper some endpoints still use.
func records(response gjson.Result) []gjson.Result {
	if data := response.Get("data"); data.IsArray() {
		return data.Array()
	}
	if response.IsArray() {
		return response.Array()
	}
	if response.Get("success").Bool() {
		if data := response.Get("data"); data.IsArray() {
			return data.Array()
		}
	}
	return nil
}

// ListReservations fetches every booking in the window. For an absolute
// window the API filters server-side on the check-in range; for a
// checkout cutoff the pages are unfiltered and matching happens here via
// the alias-resolved checkout date.
func (c *Client) ListReservations(ctx context.Context, window types.SyncWindow) ([]ExternalReservation, error) {
	if window.IsCheckoutCutoff() {
		return c.listByCheckoutCutoff(ctx, window.CheckoutOnAfter)
	}

	params := url.Values{}
	params.Set("start_date", window.Start.Format("2006-01-02"))
	params.Set("end_date", window.End.Format("2006-01-02"))
	if c.propertyID != "" {
		params.Set("property_id", c.propertyID)
	}
	params.Set("per_page", strconv.Itoa(pageSize))

	var out []ExternalReservation
	for page := 1; page <= maxPages; page++ {
		params.Set("page", strconv.Itoa(page))
		response, err := c.get(ctx, "/api/v1/bookings", params)
		if err != nil {
			return out, err
		}
		pageRecords := records(response)
		for _, record := range pageRecords {
			ext, err := ParseExternalReservation(record)
			if err != nil {
				log.Printf("[LobbyPMS] skipping unmappable record: %s\n", err.Error())
				continue
			}
			out = append(out, *ext)
		}
		totalPages := response.Get("meta.total_pages").Int()
		if len(pageRecords) == 0 || (totalPages > 0 && int64(page) >= totalPages) {
			break
		}
	}
	return out, nil
}

func (c *Client) listByCheckoutCutoff(ctx context.Context, cutoff time.Time) ([]ExternalReservation, error) {
	params := url.Values{}
	if c.propertyID != "" {
		params.Set("property_id", c.propertyID)
	}
	params.Set("per_page", strconv.Itoa(pageSize))

	var out []ExternalReservation
	nonMatching := 0
	for page := 1; page <= maxPages; page++ {
		params.Set("page", strconv.Itoa(page))
		response, err := c.get(ctx, "/api/v1/bookings", params)
		if err != nil {
			return out, err
		}
		pageRecords := records(response)
		matched := 0
		for _, record := range pageRecords {
			ext, err := ParseExternalReservation(record)
			if err != nil {
				log.Printf("[LobbyPMS] skipping unmappable record: %s\n", err.Error())
				continue
			}
			if ext.CheckOutDate.Before(cutoff) {
				continue
			}
			out = append(out, *ext)
			matched++
		}
		if matched == 0 {
			nonMatching++
		} else {
			nonMatching = 0
		}
		totalPages := response.Get("meta.total_pages").Int()
		if len(pageRecords) == 0 || (totalPages > 0 && int64(page) >= totalPages) {
			break
		}
		if nonMatching >= maxConsecutiveNonMatching {
			log.Printf("[LobbyPMS] stopping catch-up fetch after %d non-matching pages\n", nonMatching)
			break
		}
	}
	return out, nil
}

// GetReservation fetches one booking by its external id.
func (c *Client) GetReservation(ctx context.Context, externalID string) (*ExternalReservation, error) {
	response, err := c.get(ctx, "/api/v1/bookings/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	record := response
	if data := response.Get("data"); data.IsObject() {
		record = data
	}
	return ParseExternalReservation(record)
}

// FetchArrivalsForDate lists reservations checking in on date, optionally
// keeping only those with an arrival time at or after afterTime ("HH:MM").
// Records with no arrival time are excluded when a threshold is set.
func (c *Client) FetchArrivalsForDate(ctx context.Context, date time.Time, afterTime string) ([]ExternalReservation, error) {
	window := types.SyncWindow{Start: date, End: date.AddDate(0, 0, 1)}
	reservations, err := c.ListReservations(ctx, window)
	if err != nil {
		return nil, err
	}
	if afterTime == "" {
		return reservations, nil
	}
	parts := strings.SplitN(afterTime, ":", 2)
	if len(parts) != 2 {
		return reservations, nil
	}
	hours, err1 := strconv.Atoi(parts[0])
	minutes, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return reservations, nil
	}
	threshold := time.Date(date.Year(), date.Month(), date.Day(), hours, minutes, 0, 0, time.UTC)

	var out []ExternalReservation
	for _, r := range reservations {
		if r.ArrivalTime == nil {
			continue
		}
		if !r.ArrivalTime.Before(threshold) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ValidateConnection probes the API with the tenant's credentials.
func (c *Client) ValidateConnection(ctx context.Context) bool {
	params := url.Values{}
	params.Set("per_page", "1")
	if c.propertyID != "" {
		params.Set("property_id", c.propertyID)
	}
	_, err := c.get(ctx, "/api/v1/bookings", params)
	return err == nil
}
