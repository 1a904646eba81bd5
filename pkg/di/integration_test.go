package di

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-parcel-cache/pkg/testsupport"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiClient issues requests against a running container on behalf of one
// principal.
type apiClient struct {
	t         *testing.T
	baseURL   string
	principal string
}

func (c apiClient) do(method, path string, body any) (int, []byte) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("X-Principal-ID", c.principal)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

// create posts body and returns the id of the created record.
func (c apiClient) create(path string, body any) string {
	c.t.Helper()

	status, data := c.do(http.MethodPost, path, body)
	require.Equal(c.t, http.StatusCreated, status, string(data))

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(c.t, json.Unmarshal(data, &created))
	require.NotEmpty(c.t, created.ID)
	return created.ID
}

type fullDataResponse struct {
	Parcel struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Centroid *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"centroid"`
	} `json:"parcel"`
	SoilData    json.RawMessage `json:"soil_data"`
	ClimateData json.RawMessage `json:"climate_data"`
	ParcelCrops []struct {
		ID         string   `json:"id"`
		CropName   *string  `json:"crop_name"`
		TotalYield *float64 `json:"total_yield"`
		AvgYield   *float64 `json:"avg_yield"`
	} `json:"parcel_crops"`
	YieldRecords []struct {
		ID          string  `json:"id"`
		YieldAmount float64 `json:"yield_amount"`
		Date        string  `json:"date"`
	} `json:"yield_records"`
}

func (c apiClient) fullData(parcelID, query string) fullDataResponse {
	c.t.Helper()

	path := "/api/parcels-full/" + parcelID + "/full_data"
	if query != "" {
		path += "?" + query
	}
	status, data := c.do(http.MethodGet, path, nil)
	require.Equal(c.t, http.StatusOK, status, string(data))

	var out fullDataResponse
	require.NoError(c.t, json.Unmarshal(data, &out))
	return out
}

type providerStubs struct {
	soil    *testsupport.FixtureServer
	climate *testsupport.FixtureServer
}

func startStack(t *testing.T) (apiClient, providerStubs) {
	t.Helper()

	stubs := providerStubs{
		soil:    testsupport.ServeFixture(t, http.StatusOK, ""),
		climate: testsupport.ServeFixture(t, http.StatusOK, ""),
	}
	stubs.soil.Reply(http.StatusOK, []byte(`{"ph":6.4,"organic_matter":3.1}`))
	stubs.climate.Reply(http.StatusOK, []byte(`{"daily":[{"t":12.5}]}`))

	cfg := testConfig(t)
	cfg.Providers.SoilURL = stubs.soil.URL
	cfg.Providers.ClimateURL = stubs.climate.URL

	c := newTestContainer(t, cfg)
	srv := httptest.NewServer(c.Router())
	t.Cleanup(srv.Close)

	return apiClient{t: t, baseURL: srv.URL, principal: uuid.NewString()}, stubs
}

func TestEndToEndFullDataFlow(t *testing.T) {
	api, stubs := startStack(t)

	cropID := api.create("/api/crops", map[string]any{"name": "wheat"})
	parcelID := api.create("/api/parcels", map[string]any{"name": "North field"})
	api.create("/api/parcel-points", map[string]any{"parcel_id": parcelID, "latitude": 10.0, "longitude": 20.0, "position": 0})
	api.create("/api/parcel-points", map[string]any{"parcel_id": parcelID, "latitude": 12.0, "longitude": 22.0, "position": 1})
	pcID := api.create("/api/parcel-crops", map[string]any{"parcel_id": parcelID, "crop_id": cropID, "planted_at": "2024-03-01"})
	api.create("/api/yield-records", map[string]any{"parcel_crop_id": pcID, "yield_amount": 10.0, "date": "2024-07-01"})

	first := api.fullData(parcelID, "")
	assert.Equal(t, parcelID, first.Parcel.ID)
	require.NotNil(t, first.Parcel.Centroid)
	assert.InDelta(t, 11.0, first.Parcel.Centroid.Latitude, 1e-9)
	assert.InDelta(t, 21.0, first.Parcel.Centroid.Longitude, 1e-9)
	assert.Contains(t, string(first.SoilData), `"ph":6.4`)
	assert.Contains(t, string(first.ClimateData), `"daily"`)
	require.Len(t, first.ParcelCrops, 1)
	require.NotNil(t, first.ParcelCrops[0].CropName)
	assert.Equal(t, "wheat", *first.ParcelCrops[0].CropName)
	require.NotNil(t, first.ParcelCrops[0].TotalYield)
	assert.Equal(t, 10.0, *first.ParcelCrops[0].TotalYield)
	require.Len(t, first.YieldRecords, 1)
	assert.Equal(t, "2024-07-01", first.YieldRecords[0].Date)
	assert.Len(t, stubs.soil.Requests(), 1)
	assert.Len(t, stubs.climate.Requests(), 1)

	// Served from cache: no provider traffic.
	second := api.fullData(parcelID, "")
	assert.Equal(t, first, second)
	assert.Len(t, stubs.soil.Requests(), 1)

	// A yield write cascades to the aggregate through the crop cycle.
	api.create("/api/yield-records", map[string]any{"parcel_crop_id": pcID, "yield_amount": 20.0, "date": "2024-08-01"})

	third := api.fullData(parcelID, "")
	require.Len(t, third.ParcelCrops, 1)
	require.NotNil(t, third.ParcelCrops[0].TotalYield)
	assert.Equal(t, 30.0, *third.ParcelCrops[0].TotalYield)
	require.NotNil(t, third.ParcelCrops[0].AvgYield)
	assert.Equal(t, 15.0, *third.ParcelCrops[0].AvgYield)
	assert.Len(t, third.YieldRecords, 2)
	assert.Len(t, stubs.soil.Requests(), 2)
}

func TestEndToEndClimateRange(t *testing.T) {
	api, stubs := startStack(t)

	parcelID := api.create("/api/parcels", map[string]any{"name": "South field"})
	api.create("/api/parcel-points", map[string]any{"parcel_id": parcelID, "latitude": 45.0, "longitude": 7.0})

	ranged := api.fullData(parcelID, "start=20240101&end=20240131")
	assert.Contains(t, string(ranged.ClimateData), `"start":"20240101"`)

	requests := stubs.climate.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "20240101", requests[0].Query().Get("start"))
	assert.Equal(t, "20240131", requests[0].Query().Get("end"))

	// The unbounded view is a separate entry.
	api.fullData(parcelID, "")
	assert.Len(t, stubs.climate.Requests(), 2)

	// Both variants are cached until a write touches the parcel.
	api.fullData(parcelID, "start=20240101&end=20240131")
	assert.Len(t, stubs.climate.Requests(), 2)

	status, _ := api.do(http.MethodPut, "/api/parcels/"+parcelID, map[string]any{"name": "South field 2"})
	require.Equal(t, http.StatusOK, status)

	renamed := api.fullData(parcelID, "start=20240101&end=20240131")
	assert.Equal(t, "South field 2", renamed.Parcel.Name)
	assert.Len(t, stubs.climate.Requests(), 3)
}

func TestEndToEndProviderOutage(t *testing.T) {
	api, stubs := startStack(t)
	stubs.soil.Reply(http.StatusServiceUnavailable, nil)

	parcelID := api.create("/api/parcels", map[string]any{"name": "East field"})
	api.create("/api/parcel-points", map[string]any{"parcel_id": parcelID, "latitude": 1.0, "longitude": 2.0})

	view := api.fullData(parcelID, "")
	assert.Equal(t, "null", string(view.SoilData))
	assert.Contains(t, string(view.ClimateData), `"daily"`)
	assert.Empty(t, view.ParcelCrops)
	assert.Empty(t, view.YieldRecords)
}

func TestEndToEndOwnership(t *testing.T) {
	api, _ := startStack(t)
	parcelID := api.create("/api/parcels", map[string]any{"name": "Private"})
	api.fullData(parcelID, "")

	intruder := api
	intruder.principal = uuid.NewString()

	status, _ := intruder.do(http.MethodGet, "/api/parcels-full/"+parcelID+"/full_data", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = intruder.do(http.MethodDelete, "/api/parcels/"+parcelID, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(http.MethodDelete, "/api/parcels/"+parcelID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = api.do(http.MethodGet, "/api/parcels-full/"+parcelID+"/full_data", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEndToEndRequiresPrincipal(t *testing.T) {
	api, _ := startStack(t)
	api.principal = ""

	status, _ := api.do(http.MethodGet, "/api/parcels", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
