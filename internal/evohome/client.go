package evohome

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://tccna.honeywell.com/WebAPI/emea/api/v1"
	DefaultAuthURL = "https://tccna.honeywell.com/Auth/OAuth/Token"

	defaultTimeout = 10 * time.Second
	userAgent      = "evohome-gateway"
	maxErrorBody   = 1 << 10
)

// Operation names, used in errors.
const (
	opAuthenticate   = "authenticate"
	opAccount        = "get user account"
	opLocations      = "get locations"
	opLocationStatus = "get location status"
	opZoneSchedule   = "get zone schedule"
	opHeatSetpoint   = "set heat set point"
)

// Config holds the endpoints and application identity of the API.
type Config struct {
	BaseURL       string
	AuthURL       string
	ApplicationID string
	Timeout       time.Duration
	HTTPClient    *http.Client // optional; overrides Timeout
}

// Client performs the typed requests of the evohome v2 API. It holds no session state:
// every authenticated call receives the bearer token from the caller.
type Client struct {
	baseURL    string
	authURL    string
	appID      string
	httpClient *http.Client
}

// NewClient builds a Client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authURL:    cfg.AuthURL,
		appID:      cfg.ApplicationID,
		httpClient: cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.authURL == "" {
		c.authURL = DefaultAuthURL
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c
}

// Grant is the credential part of a token request.
type Grant struct {
	values url.Values
}

// PasswordGrant authenticates with the account's username and password.
func PasswordGrant(username, password string) Grant {
	v := url.Values{}
	v.Set("grant_type", "password")
	v.Set("Username", username)
	v.Set("Password", password)
	return Grant{values: v}
}

// RefreshTokenGrant exchanges a refresh token for a new token pair.
func RefreshTokenGrant(refreshToken string) Grant {
	v := url.Values{}
	v.Set("grant_type", "refresh_token")
	v.Set("refresh_token", refreshToken)
	return Grant{values: v}
}

// Type returns the grant_type of the request.
func (g Grant) Type() string { return g.values.Get("grant_type") }

// Authenticate posts the grant to the token endpoint.
func (c *Client) Authenticate(ctx context.Context, g Grant) (TokenResponse, error) {
	form := url.Values{}
	for k, vs := range g.values {
		form[k] = vs
	}
	form.Set("Host", "rs.alarmnet.com/")
	form.Set("Pragma", "no-cache")
	form.Set("Cache-Control", "no-store no-cache")
	form.Set("scope", "EMEA-V1-Basic EMEA-V1-Anonymous EMEA-V1-Get-Current-User-Account")
	form.Set("Connection", "Keep-Alive")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResponse{}, fmt.Errorf("failed to create %s request: %w", opAuthenticate, err)
	}
	req.SetBasicAuth(c.appID, "test")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	var tok TokenResponse
	if err := c.do(req, opAuthenticate, &tok); err != nil {
		return TokenResponse{}, err
	}
	return tok, nil
}

// Account fetches the user account that owns the session.
func (c *Client) Account(ctx context.Context, accessToken string) (UserAccount, error) {
	var acc UserAccount
	err := c.get(ctx, accessToken, opAccount, "/userAccount", &acc)
	return acc, err
}

// Locations fetches the installation info (locations, gateways, systems, zones) of a user.
func (c *Client) Locations(ctx context.Context, accessToken string, userID int) (Locations, error) {
	path := fmt.Sprintf("/location/installationInfo?userId=%d&includeTemperatureControlSystems=True", userID)
	var locs Locations
	err := c.get(ctx, accessToken, opLocations, path, &locs)
	return locs, err
}

// LocationStatus fetches the live status of one location.
func (c *Client) LocationStatus(ctx context.Context, accessToken string, locationID int) (LocationStatus, error) {
	path := fmt.Sprintf("/location/%d/status?includeTemperatureControlSystems=True", locationID)
	var st LocationStatus
	err := c.get(ctx, accessToken, opLocationStatus, path, &st)
	return st, err
}

// ZoneSchedule fetches the weekly program of a zone.
func (c *Client) ZoneSchedule(ctx context.Context, accessToken string, zoneID int) (ZoneSchedule, error) {
	path := fmt.Sprintf("/temperatureZone/%d/schedule", zoneID)
	var sch ZoneSchedule
	err := c.get(ctx, accessToken, opZoneSchedule, path, &sch)
	return sch, err
}

// SetHeatSetpoint overrides (or cancels the override of) a zone's set point.
func (c *Client) SetHeatSetpoint(ctx context.Context, accessToken string, zoneID int, sp HeatSetpoint) error {
	body, err := json.Marshal(sp)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request body: %w", opHeatSetpoint, err)
	}
	path := fmt.Sprintf("/temperatureZone/%d/heatSetpoint", zoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", opHeatSetpoint, err)
	}
	c.setHeaders(req, accessToken)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, opHeatSetpoint, nil)
}

func (c *Client) get(ctx context.Context, accessToken, op, path string, dst validator) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	c.setHeaders(req, accessToken)
	return c.do(req, op, dst)
}

// setHeaders adds the headers of an authenticated request.
func (c *Client) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "bearer "+accessToken)
	req.Header.Set("applicationId", c.appID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

type validator interface {
	validate() error
}

// do executes req and decodes a 2xx body into dst (when dst is non-nil).
func (c *Client) do(req *http.Request, op string, dst validator) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if dst == nil {
		return nil
	}
	return decode(op, resp.Body, dst)
}

func decode(op string, r io.Reader, dst validator) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &DecodeError{Op: op, Field: typeErr.Field, Err: err}
		}
		return &DecodeError{Op: op, Err: err}
	}
	return dst.validate()
}
