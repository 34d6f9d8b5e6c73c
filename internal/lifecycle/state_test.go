package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceLegalTransitions(t *testing.T) {
	tests := []struct {
		from   Status
		action Action
		want   Status
	}{
		{StatusPending, ActionVerify, StatusVerified},
		{StatusVerifying, ActionVerify, StatusVerified},
		{StatusVerified, ActionRequestCert, StatusSSLPending},
		{StatusSSLPending, ActionCertValidating, StatusSSLValidating},
		{StatusSSLPending, ActionCertIssued, StatusSSLIssued},
		{StatusSSLValidating, ActionCertValidating, StatusSSLValidating},
		{StatusSSLValidating, ActionCertIssued, StatusSSLIssued},
		{StatusSSLIssued, ActionAttach, StatusAttaching},
		{StatusAttaching, ActionAttached, StatusDNSPending},
		{StatusDNSPending, ActionDNSConfirmed, StatusActive},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.action), func(t *testing.T) {
			got, err := Advance(tt.from, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdvanceRejectsIllegalTransitions(t *testing.T) {
	tests := []struct {
		from   Status
		action Action
	}{
		{StatusPending, ActionRequestCert},
		{StatusPending, ActionAttach},
		{StatusVerified, ActionVerify},
		{StatusVerified, ActionDNSConfirmed},
		{StatusSSLPending, ActionAttach},
		{StatusSSLIssued, ActionCertIssued},
		{StatusActive, ActionVerify},
		{StatusActive, ActionDNSConfirmed},
		{StatusFailed, ActionVerify},
		{StatusFailed, ActionRequestCert},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.action), func(t *testing.T) {
			_, err := Advance(tt.from, tt.action)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestAdvanceFailFromAnyNonTerminal(t *testing.T) {
	nonTerminal := []Status{
		StatusPending, StatusVerifying, StatusVerified,
		StatusSSLPending, StatusSSLValidating, StatusSSLIssued,
		StatusAttaching, StatusDNSPending,
	}
	for _, from := range nonTerminal {
		got, err := Advance(from, ActionFail)
		require.NoError(t, err, "fail from %s", from)
		assert.Equal(t, StatusFailed, got)
	}
}

func TestAdvanceFailFromTerminalRejected(t *testing.T) {
	for _, from := range []Status{StatusActive, StatusFailed} {
		_, err := Advance(from, ActionFail)
		assert.ErrorIs(t, err, ErrInvalidTransition, "fail from %s", from)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{
		StatusPending, StatusVerifying, StatusVerified,
		StatusSSLPending, StatusSSLValidating, StatusSSLIssued,
		StatusAttaching, StatusDNSPending, StatusActive, StatusFailed,
	} {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("REVOKED")
	assert.Error(t, err)
	_, err = ParseStatus("active")
	assert.Error(t, err, "statuses are case-sensitive")
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusActive.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusDNSPending.IsTerminal())
}

func TestAtLeast(t *testing.T) {
	assert.True(t, StatusSSLIssued.AtLeast(StatusVerified))
	assert.True(t, StatusVerified.AtLeast(StatusVerified))
	assert.True(t, StatusActive.AtLeast(StatusDNSPending))
	assert.False(t, StatusPending.AtLeast(StatusVerified))
	assert.False(t, StatusFailed.AtLeast(StatusPending), "FAILED sits outside the forward path")
}
