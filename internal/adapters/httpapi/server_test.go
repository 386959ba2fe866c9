package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inspector "github.com/vals/anndata-design-inspector"
	"github.com/vals/anndata-design-inspector/internal/adapters/httpapi"
	"github.com/vals/anndata-design-inspector/internal/logging"
	"github.com/vals/anndata-design-inspector/pkg/domain"
)

type staticSource struct{}

func (staticSource) ListFactors(ctx context.Context, path string) ([]string, error) {
	return []string{"genotype", "sample"}, nil
}

func (staticSource) ReadFactor(ctx context.Context, path, name string) (*domain.Factor, error) {
	switch name {
	case "genotype":
		return &domain.Factor{
			Name:       "genotype",
			Categories: []string{"WT", "KO"},
			Counts:     []int{6000, 6000},
		}, nil
	case "sample":
		return &domain.Factor{
			Name:       "sample",
			Categories: []string{"WT_rep1", "WT_rep2", "KO_rep1", "KO_rep2"},
			Counts:     []int{3000, 3000, 3000, 3000},
		}, nil
	}
	return nil, domain.ErrFactorNotFound
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	engine, err := inspector.New(staticSource{})
	require.NoError(t, err)
	srv := httpapi.NewServer(engine, logging.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClassifyEndpoint(t *testing.T) {
	ts := newTestServer(t)

	body := `{"parent_labels":["WT","KO"],"child_labels":["WT_rep1","WT_rep2","KO_rep1","KO_rep2"]}`
	resp, err := http.Post(ts.URL+"/v1/classify", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res struct {
		Tag        string `json:"tag"`
		MatchCount int    `json:"match_count"`
		Total      int    `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "nested", res.Tag)
	assert.Equal(t, 4, res.MatchCount)
	assert.Equal(t, 4, res.Total)
}

func TestGrammarEndpoint(t *testing.T) {
	ts := newTestServer(t)

	body := `{
		"factors": {
			"genotype": {"categories": ["WT","KO"], "counts": [6000,6000]},
			"sample": {"categories": ["WT_rep1","WT_rep2","KO_rep1","KO_rep2"], "counts": [3000,3000,3000,3000]},
			"cell_type": {"categories": ["T_cells","B_cells","Macrophages"], "counts": [5000,4000,3000], "type": "classification"}
		},
		"relationships": [
			{"type": "nested", "parent": "genotype", "child": "sample"},
			{"type": "classification", "factor": "sample", "classifier": "cell_type"}
		]
	}`
	resp, err := http.Post(ts.URL+"/v1/grammar", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res httpapi.GrammarResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "Genotype(2) > Sample(4) : CellType(3)", res.Grammar)
}

func TestGrammarEndpointRejectsInvalidDesign(t *testing.T) {
	ts := newTestServer(t)

	body := `{
		"factors": {
			"genotype": {"categories": ["WT","KO"], "counts": [6000,6000]}
		},
		"relationships": [
			{"type": "nested", "parent": "genotype", "child": "phantom"}
		]
	}`
	resp, err := http.Post(ts.URL+"/v1/grammar", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var res httpapi.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "unknown-factor", res.Rule)
	assert.Equal(t, "phantom", res.Factor)
}

func TestInspectEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/inspect", "application/json", strings.NewReader(`{"path":"pbmc.h5ad"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report inspector.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, "Genotype(2) > Sample(4)", report.Grammar)
	assert.Equal(t, "nested", report.DesignType)
	assert.Equal(t, 12000, report.TotalCells)
}

func TestInspectEndpointRequiresPath(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/inspect", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
