package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sitepilot/sitepilot/internal/database"
	"github.com/sitepilot/sitepilot/internal/middleware"
	"github.com/sitepilot/sitepilot/internal/models"
)

var (
	testTenantID = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000001")
	testSiteID   = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
	testDomainID = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000003")
)

func withMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	original := database.DB
	database.DB = mockDB

	return mock, func() {
		database.DB = original
		_ = mockDB.Close()
	}
}

// asTenant injects an authenticated API key the way APIKeyAuth would.
func asTenant(tenantID uuid.UUID) fiber.Handler {
	return func(c fiber.Ctx) error {
		c.Locals(middleware.LocalsKey, &models.APIKey{
			KeyID:    uuid.New(),
			TenantID: tenantID,
			Scopes:   []string{"*"},
		})
		return c.Next()
	}
}

func jsonRequest(method, path string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		buf, _ := json.Marshal(body)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func siteRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"site_id", "tenant_id", "slug", "name", "theme", "created_at"}).
		AddRow(testSiteID.String(), testTenantID.String(), "acme", "Acme Inc", nil, time.Now())
}

func expectSiteLookup(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT site_id, tenant_id").WillReturnRows(siteRows())
}

func expectDomainOwnership(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT 1 FROM custom_domain").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
}
