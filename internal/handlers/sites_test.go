package handlers

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sitesApp(tenantID uuid.UUID) *fiber.App {
	app := fiber.New()
	api := app.Group("/api", asTenant(tenantID))
	api.Get("/sites", HandleListSites)
	api.Post("/sites", HandleCreateSite)
	api.Get("/sites/:site_id", HandleGetSite)
	return app
}

func TestListSites(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT site_id, tenant_id").
		WithArgs(testTenantID).
		WillReturnRows(siteRows())

	resp, err := sitesApp(testTenantID).Test(jsonRequest("GET", "/api/sites", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSite(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO site").
		WillReturnRows(siteRows())
	mock.ExpectExec("INSERT INTO page").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp, err := sitesApp(testTenantID).Test(jsonRequest("POST", "/api/sites",
		CreateSiteRequest{Slug: "Acme", Name: "Acme Inc"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "acme", body["slug"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSiteRejectsBadSlug(t *testing.T) {
	_, cleanup := withMockDB(t)
	defer cleanup()

	for _, slug := range []string{"", "-leading", "trailing-", "has spaces", "wa&y"} {
		resp, err := sitesApp(testTenantID).Test(jsonRequest("POST", "/api/sites",
			CreateSiteRequest{Slug: slug}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "slug %q", slug)
	}
}

func TestCreateSiteDuplicateSlug(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO site").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	resp, err := sitesApp(testTenantID).Test(jsonRequest("POST", "/api/sites",
		CreateSiteRequest{Slug: "acme"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestGetSite(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	expectSiteLookup(mock)

	resp, err := sitesApp(testTenantID).Test(jsonRequest("GET", "/api/sites/"+testSiteID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "acme", body["slug"])
}

func TestGetSiteOtherTenantForbidden(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	expectSiteLookup(mock)

	resp, err := sitesApp(uuid.New()).Test(jsonRequest("GET", "/api/sites/"+testSiteID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestGetSiteNotFound(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT site_id, tenant_id").
		WillReturnRows(sqlmock.NewRows([]string{"site_id"}))

	resp, err := sitesApp(testTenantID).Test(jsonRequest("GET", "/api/sites/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetSiteBadID(t *testing.T) {
	_, cleanup := withMockDB(t)
	defer cleanup()

	resp, err := sitesApp(testTenantID).Test(jsonRequest("GET", "/api/sites/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
