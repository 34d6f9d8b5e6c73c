package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitepilot/sitepilot/internal/lifecycle"
	"github.com/sitepilot/sitepilot/internal/routing"
)

type stubDNS struct {
	txt   []string
	cname string
}

func (s *stubDNS) LookupTXT(context.Context, string) ([]string, error) { return s.txt, nil }
func (s *stubDNS) LookupCNAME(context.Context, string) (string, error) { return s.cname, nil }

type stubCA struct{}

func (stubCA) Request(context.Context, string) (*lifecycle.CertificateRequest, error) {
	return &lifecycle.CertificateRequest{ARN: "arn:cert/1"}, nil
}
func (stubCA) Describe(context.Context, string) (*lifecycle.CertificateInfo, error) {
	return &lifecycle.CertificateInfo{Status: lifecycle.CertIssued}, nil
}

type stubCDN struct{}

func (stubCDN) EnsureTenant(context.Context, string) (bool, error)                 { return false, nil }
func (stubCDN) AttachDomain(context.Context, string, string, string) (bool, error) { return false, nil }
func (stubCDN) DetachDomain(context.Context, string, string) error                 { return nil }
func (stubCDN) TargetFor(tenantID string) string                                   { return tenantID + ".cdn.sitepilot.dev" }

func domainsApp(dns *stubDNS) *fiber.App {
	mgr := &lifecycle.Manager{
		DNS:          dns,
		CA:           stubCA{},
		CDN:          stubCDN{},
		Table:        routing.NewMemTable(),
		VerifySecret: "handler-test-secret",
	}

	app := fiber.New()
	api := app.Group("/api", asTenant(testTenantID))
	api.Get("/sites/:site_id/domains", HandleListDomains)
	api.Post("/sites/:site_id/domains", HandleRegisterDomain(mgr))
	api.Post("/sites/:site_id/domains/:domain_id/verify", HandleVerifyDomain(mgr))
	api.Post("/sites/:site_id/domains/:domain_id/ssl", HandleRequestSSL(mgr))
	api.Get("/sites/:site_id/domains/:domain_id/ssl", HandlePollSSL(mgr))
	api.Post("/sites/:site_id/domains/:domain_id/activate", HandleActivateDomain(mgr))
	api.Delete("/sites/:site_id/domains/:domain_id", HandleDeleteDomain(mgr))
	return app
}

func managerDomainRows(status, token string, arn any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"domain_id", "site_id", "tenant_id", "domain", "status",
		"verification_record", "certificate_arn", "attached_to_cdn",
	}).AddRow(testDomainID.String(), testSiteID.String(), testTenantID.String(),
		"www.acme.com", status, token, arn, false)
}

func TestRegisterDomainEndpoint(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	expectSiteLookup(mock)
	now := time.Now()
	mock.ExpectQuery("INSERT INTO custom_domain").
		WillReturnRows(sqlmock.NewRows([]string{"domain_id", "created_at", "updated_at"}).
			AddRow(testDomainID.String(), now, now))
	mock.ExpectExec("SELECT pg_notify").
		WillReturnResult(sqlmock.NewResult(0, 0))

	resp, err := domainsApp(&stubDNS{}).
		Test(jsonRequest("POST", "/api/sites/"+testSiteID.String()+"/domains",
			RegisterDomainRequest{Domain: "WWW.Acme.com"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeJSON(t, resp)
	domain := body["domain"].(map[string]any)
	assert.Equal(t, "www.acme.com", domain["domain"])
	assert.Equal(t, "PENDING", domain["status"])

	instructions := body["dnsInstructions"].(map[string]any)
	assert.Equal(t, "TXT", instructions["type"])
	assert.Equal(t, "_sitepilot-verify.www.acme.com", instructions["host"])
	assert.NotEmpty(t, instructions["value"])
}

func TestRegisterDomainEndpointConflict(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	expectSiteLookup(mock)
	mock.ExpectQuery("INSERT INTO custom_domain").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	resp, err := domainsApp(&stubDNS{}).
		Test(jsonRequest("POST", "/api/sites/"+testSiteID.String()+"/domains",
			RegisterDomainRequest{Domain: "www.acme.com"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRegisterDomainEndpointInvalidDomain(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	expectSiteLookup(mock)

	resp, err := domainsApp(&stubDNS{}).
		Test(jsonRequest("POST", "/api/sites/"+testSiteID.String()+"/domains",
			RegisterDomainRequest{Domain: "*.acme.com"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVerifyDomainEndpoint(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	token := lifecycle.VerificationToken("handler-test-secret", "www.acme.com")

	expectSiteLookup(mock)
	expectDomainOwnership(mock)
	mock.ExpectQuery("SELECT d.domain_id").
		WillReturnRows(managerDomainRows("PENDING", token, nil))
	mock.ExpectExec("UPDATE custom_domain").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SELECT pg_notify").
		WillReturnResult(sqlmock.NewResult(0, 0))

	resp, err := domainsApp(&stubDNS{txt: []string{token}}).
		Test(jsonRequest("POST", "/api/sites/"+testSiteID.String()+"/domains/"+testDomainID.String()+"/verify", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, true, body["verified"])
	assert.Equal(t, "VERIFIED", body["status"])
}

func TestVerifyDomainEndpointNotYetPublished(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	token := lifecycle.VerificationToken("handler-test-secret", "www.acme.com")

	expectSiteLookup(mock)
	expectDomainOwnership(mock)
	mock.ExpectQuery("SELECT d.domain_id").
		WillReturnRows(managerDomainRows("PENDING", token, nil))

	resp, err := domainsApp(&stubDNS{txt: []string{"something-else"}}).
		Test(jsonRequest("POST", "/api/sites/"+testSiteID.String()+"/domains/"+testDomainID.String()+"/verify", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, false, body["verified"])
	assert.NotNil(t, body["dnsInstructions"], "repeats the record still missing")
}

func TestRequestSSLEndpointWrongStateConflict(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	expectSiteLookup(mock)
	expectDomainOwnership(mock)
	mock.ExpectQuery("SELECT d.domain_id").
		WillReturnRows(managerDomainRows("PENDING", "tok", nil))

	resp, err := domainsApp(&stubDNS{}).
		Test(jsonRequest("POST", "/api/sites/"+testSiteID.String()+"/domains/"+testDomainID.String()+"/ssl", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestPollSSLEndpoint(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	expectSiteLookup(mock)
	expectDomainOwnership(mock)
	mock.ExpectQuery("SELECT d.domain_id").
		WillReturnRows(managerDomainRows("SSL_PENDING", "tok", "arn:cert/1"))
	mock.ExpectExec("UPDATE custom_domain").
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := domainsApp(&stubDNS{}).
		Test(jsonRequest("GET", "/api/sites/"+testSiteID.String()+"/domains/"+testDomainID.String()+"/ssl", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "SSL_ISSUED", body["status"])
}

func TestActivateDomainEndpoint(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	expectSiteLookup(mock)
	expectDomainOwnership(mock)
	mock.ExpectQuery("SELECT d.domain_id").
		WillReturnRows(managerDomainRows("SSL_ISSUED", "tok", "arn:cert/1"))
	mock.ExpectExec("UPDATE custom_domain SET attached_to_cdn").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT storage_prefix FROM deployment").
		WillReturnRows(sqlmock.NewRows([]string{"storage_prefix"}))
	mock.ExpectExec("UPDATE custom_domain").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SELECT pg_notify").
		WillReturnResult(sqlmock.NewResult(0, 0))

	// CNAME not published yet: parks in DNS_PENDING with instructions.
	resp, err := domainsApp(&stubDNS{cname: "elsewhere.example.net."}).
		Test(jsonRequest("POST", "/api/sites/"+testSiteID.String()+"/domains/"+testDomainID.String()+"/activate", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "DNS_PENDING", body["status"])
	assert.Equal(t, false, body["active"])
	instructions := body["dnsInstructions"].(map[string]any)
	assert.Equal(t, "CNAME", instructions["type"])
}

func TestDeleteDomainEndpoint(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	expectSiteLookup(mock)
	expectDomainOwnership(mock)
	mock.ExpectQuery("SELECT d.domain_id").
		WillReturnRows(managerDomainRows("PENDING", "tok", nil))
	mock.ExpectExec("DELETE FROM custom_domain").
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := domainsApp(&stubDNS{}).
		Test(jsonRequest("DELETE", "/api/sites/"+testSiteID.String()+"/domains/"+testDomainID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestDomainEndpointUnknownDomain404(t *testing.T) {
	mock, cleanup := withMockDB(t)
	defer cleanup()

	expectSiteLookup(mock)
	mock.ExpectQuery("SELECT 1 FROM custom_domain").
		WillReturnRows(sqlmock.NewRows([]string{"one"}))

	resp, err := domainsApp(&stubDNS{}).
		Test(jsonRequest("POST", "/api/sites/"+testSiteID.String()+"/domains/"+testDomainID.String()+"/verify", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
