package soilmap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crop-analyze-pipeline/models"
)

func soilGridsStub(t *testing.T, wrbClass string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/classification/query", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"wrb_class_name": "` + wrbClass + `"}`))
	})
	mux.HandleFunc("/properties/query", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"properties": {
				"layers": [
					{"name": "phh2o", "unit_measure": {"d_factor": 10},
					 "depths": [{"label": "0-5cm", "values": {"mean": 65}}]},
					{"name": "nitrogen", "unit_measure": {"d_factor": 100},
					 "depths": [{"label": "0-5cm", "values": {"mean": 180}}]},
					{"name": "soc", "unit_measure": {"d_factor": 10},
					 "depths": [{"label": "0-5cm", "values": {"mean": 120}}]}
				]
			}
		}`))
	})
	return httptest.NewServer(mux)
}

func TestQueryMapsWRBClassToLocalSoilType(t *testing.T) {
	srv := soilGridsStub(t, "Fluvisols")
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	got, err := client.Query(context.Background(), 26.9, 80.9)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Alluvial Soil", got.SoilType)
	assert.Equal(t, models.SoilSourceMap, got.Source)
	assert.Equal(t, 0.8, got.ConfidenceScore)
	assert.Equal(t, "6.2-6.8", got.PHRange)

	require.Len(t, got.Nutrients, 1)
	assert.Equal(t, "Nitrogen", got.Nutrients[0].Name)
	assert.Equal(t, models.NutrientMedium, got.Nutrients[0].Level)
	assert.InDelta(t, 2.064, got.EstimatedOrganicMatter, 0.001)
}

func TestQueryNoCoverageReturnsNil(t *testing.T) {
	srv := soilGridsStub(t, "")
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	got, err := client.Query(context.Background(), 0.0, -160.0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueryUnmappedClassKeptWithLowerConfidence(t *testing.T) {
	srv := soilGridsStub(t, "Podzols")
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	got, err := client.Query(context.Background(), 60.0, 25.0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Podzols", got.SoilType)
	assert.Equal(t, 0.6, got.ConfidenceScore)
}

func TestQueryServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	_, err := client.Query(context.Background(), 26.9, 80.9)
	assert.Error(t, err)
}

func TestRoundToGridCollapsesNearbyCoordinates(t *testing.T) {
	a := roundToGrid(26.90001)
	b := roundToGrid(26.90002)
	assert.Equal(t, a, b)

	far := roundToGrid(26.95)
	assert.NotEqual(t, a, far)
}

func TestLookupCacheHitSkipsUpstream(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	payload := `{"soil_type":"Black Soil","confidence_score":0.8,"confidence":80,"ph_level":"7.5-8.1","nutrients":null,"organic_solutions":null,"chemical_solutions":null,"suitable_crops":null,"source":"map"}`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT has_coverage, soil_analysis")).
		WillReturnRows(sqlmock.NewRows([]string{"has_coverage", "soil_analysis"}).AddRow(true, payload))

	// No client configured: an upstream call would panic, proving the hit.
	svc := NewCachedService(nil, db)
	got, err := svc.Lookup(context.Background(), 20.5, 78.9)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Black Soil", got.SoilType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupCachedNoCoverage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT has_coverage, soil_analysis")).
		WillReturnRows(sqlmock.NewRows([]string{"has_coverage", "soil_analysis"}).AddRow(false, nil))

	svc := NewCachedService(nil, db)
	got, err := svc.Lookup(context.Background(), 0.0, -160.0)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupMissQueriesUpstreamAndCaches(t *testing.T) {
	srv := soilGridsStub(t, "Vertisols")
	defer srv.Close()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT has_coverage, soil_analysis")).
		WillReturnRows(sqlmock.NewRows([]string{"has_coverage", "soil_analysis"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO soil_map_cache")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	svc := NewCachedService(NewClientWithBaseURL(srv.URL), db)
	got, err := svc.Lookup(context.Background(), 20.5, 78.9)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Black Soil", got.SoilType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupCacheWriteFailureDoesNotFailLookup(t *testing.T) {
	srv := soilGridsStub(t, "Luvisols")
	defer srv.Close()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT has_coverage, soil_analysis")).
		WillReturnRows(sqlmock.NewRows([]string{"has_coverage", "soil_analysis"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO soil_map_cache")).
		WillReturnError(assert.AnError)

	svc := NewCachedService(NewClientWithBaseURL(srv.URL), db)
	got, err := svc.Lookup(context.Background(), 20.5, 78.9)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Loamy Soil", got.SoilType)
}
