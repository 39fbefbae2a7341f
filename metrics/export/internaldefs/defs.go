package internaldefs

import (
	jwxt "github.com/campusbox/jwxt"
)

// CounterDef binds an internal counter ID to its exposition name.
type CounterDef struct {
	ID   jwxt.MetricID
	Name string
	Help string
}

// HistogramDef binds an internal histogram ID to its exposition name.
type HistogramDef struct {
	ID   jwxt.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: jwxt.MetricLoginSuccess, Name: "jwxt_login_success_total", Help: "Completed CAS login sequences."},
	{ID: jwxt.MetricLoginFailure, Name: "jwxt_login_failure_total", Help: "Failed CAS login sequences."},
	{ID: jwxt.MetricLoginNoop, Name: "jwxt_login_noop_total", Help: "Logins skipped because the session was still live."},
	{ID: jwxt.MetricLoginRedirectOnly, Name: "jwxt_login_redirect_only_total", Help: "Logins satisfied by redeeming an existing CAS ticket."},
	{ID: jwxt.MetricInvalidCredentials, Name: "jwxt_invalid_credentials_total", Help: "Credential posts rejected by CAS."},
	{ID: jwxt.MetricManualLoginSuccess, Name: "jwxt_manual_login_success_total", Help: "Successful manual logins."},
	{ID: jwxt.MetricManualLoginFailure, Name: "jwxt_manual_login_failure_total", Help: "Failed manual logins."},
	{ID: jwxt.MetricLogout, Name: "jwxt_logout_total", Help: "Logout operations."},
	{ID: jwxt.MetricSessionExpired, Name: "jwxt_session_expired_total", Help: "Session-expired signals observed on fetches."},
	{ID: jwxt.MetricReloginSuccess, Name: "jwxt_relogin_success_total", Help: "Single-flight re-logins that recovered the session."},
	{ID: jwxt.MetricReloginFailure, Name: "jwxt_relogin_failure_total", Help: "Single-flight re-logins that failed."},
	{ID: jwxt.MetricFetchSuccess, Name: "jwxt_fetch_success_total", Help: "Page fetches that returned a valid body."},
	{ID: jwxt.MetricFetchRetry, Name: "jwxt_fetch_retry_total", Help: "Transient fetch attempts that were retried."},
	{ID: jwxt.MetricFetchFailure, Name: "jwxt_fetch_failure_total", Help: "Fetches that exhausted the retry budget."},
	{ID: jwxt.MetricPasswordChangeSuccess, Name: "jwxt_password_change_success_total", Help: "Accepted password changes."},
	{ID: jwxt.MetricPasswordChangeMismatch, Name: "jwxt_password_change_mismatch_total", Help: "Password changes rejected for a wrong old password."},
	{ID: jwxt.MetricPasswordChangeFailure, Name: "jwxt_password_change_failure_total", Help: "Password changes that failed for any other reason."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: jwxt.MetricFetchLatency, Name: "jwxt_fetch_latency_seconds", Help: "Page fetch latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, matching the
// core registry's millisecond buckets.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form the
// exposition format requires.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
