package lifecycle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/acm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeACM struct {
	status        types.CertificateStatus
	lastIdemToken string
	requestCalls  int
}

func (f *fakeACM) RequestCertificate(_ context.Context, params *acm.RequestCertificateInput, _ ...func(*acm.Options)) (*acm.RequestCertificateOutput, error) {
	f.requestCalls++
	f.lastIdemToken = aws.ToString(params.IdempotencyToken)
	return &acm.RequestCertificateOutput{
		CertificateArn: aws.String("arn:aws:acm:eu-west-1:123:certificate/abc"),
	}, nil
}

func (f *fakeACM) DescribeCertificate(_ context.Context, params *acm.DescribeCertificateInput, _ ...func(*acm.Options)) (*acm.DescribeCertificateOutput, error) {
	return &acm.DescribeCertificateOutput{
		Certificate: &types.CertificateDetail{
			CertificateArn: params.CertificateArn,
			Status:         f.status,
			DomainValidationOptions: []types.DomainValidation{{
				DomainName: aws.String("www.example.com"),
				ResourceRecord: &types.ResourceRecord{
					Type:  types.RecordTypeCname,
					Name:  aws.String("_abc123.www.example.com."),
					Value: aws.String("_def456.acm-validations.aws."),
				},
			}},
		},
	}, nil
}

func TestACMRequestIsDeterministicPerDomain(t *testing.T) {
	fake := &fakeACM{status: types.CertificateStatusPendingValidation}
	authority := NewACMAuthorityWithClient(fake)

	first, err := authority.Request(t.Context(), "WWW.Example.com")
	require.NoError(t, err)
	firstToken := fake.lastIdemToken

	second, err := authority.Request(t.Context(), "www.example.com")
	require.NoError(t, err)

	assert.Equal(t, firstToken, fake.lastIdemToken, "same domain, same idempotency token")
	assert.Equal(t, first.ARN, second.ARN)
	require.Len(t, first.ValidationRecords, 1)
	assert.Equal(t, "CNAME", first.ValidationRecords[0].Type)
}

func TestACMDescribeReducesStatus(t *testing.T) {
	tests := []struct {
		acmStatus types.CertificateStatus
		want      CertStatus
	}{
		{types.CertificateStatusPendingValidation, CertPending},
		{types.CertificateStatusIssued, CertIssued},
		{types.CertificateStatusFailed, CertFailed},
		{types.CertificateStatusValidationTimedOut, CertFailed},
		{types.CertificateStatusRevoked, CertFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.acmStatus), func(t *testing.T) {
			authority := NewACMAuthorityWithClient(&fakeACM{status: tt.acmStatus})
			info, err := authority.Describe(t.Context(), "arn:aws:acm:eu-west-1:123:certificate/abc")
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Status)
		})
	}
}

func TestHTTPCDNEnsureTenant(t *testing.T) {
	seen := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "Bearer cdn-token", r.Header.Get("Authorization"))
		if seen[r.URL.Path] {
			w.WriteHeader(http.StatusOK)
			return
		}
		seen[r.URL.Path] = true
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	cdn := NewHTTPCDN(srv.URL, "cdn-token", "cdn.sitepilot.dev")

	created, err := cdn.EnsureTenant(t.Context(), "tenant-1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = cdn.EnsureTenant(t.Context(), "tenant-1")
	require.NoError(t, err)
	assert.False(t, created, "existing tenant is success without the flag")
}

func TestHTTPCDNAttachDomainConflictMeansAlreadyAttached(t *testing.T) {
	var status = http.StatusCreated
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(status)
	}))
	defer srv.Close()

	cdn := NewHTTPCDN(srv.URL, "", "cdn.sitepilot.dev")

	already, err := cdn.AttachDomain(t.Context(), "tenant-1", "WWW.Example.com", "arn:cert/1")
	require.NoError(t, err)
	assert.False(t, already)

	status = http.StatusConflict
	already, err = cdn.AttachDomain(t.Context(), "tenant-1", "www.example.com", "arn:cert/1")
	require.NoError(t, err)
	assert.True(t, already)
}

func TestHTTPCDNDetachAbsentDomainIsNoOp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cdn := NewHTTPCDN(srv.URL, "", "cdn.sitepilot.dev")
	assert.NoError(t, cdn.DetachDomain(t.Context(), "tenant-1", "gone.example.com"))
}

func TestHTTPCDNTargetFor(t *testing.T) {
	cdn := NewHTTPCDN("http://cdn.internal", "", ".cdn.sitepilot.dev.")
	assert.Equal(t, "tenant-1.cdn.sitepilot.dev", cdn.TargetFor("tenant-1"))
}
