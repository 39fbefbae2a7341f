package jwxt

import "context"

// ISP identifies the campus network carrier tied to an account. The
// portal's captive-portal login needs it; the CAS flow only stores it.
type ISP uint8

const (
	// ISPUnset means no carrier has been selected.
	ISPUnset ISP = iota
	// ISPMobile is China Mobile.
	ISPMobile
	// ISPTelecom is China Telecom.
	ISPTelecom
	// ISPUnicom is China Unicom.
	ISPUnicom
)

// String returns the lowercase carrier name.
func (i ISP) String() string {
	switch i {
	case ISPMobile:
		return "mobile"
	case ISPTelecom:
		return "telecom"
	case ISPUnicom:
		return "unicom"
	default:
		return "unset"
	}
}

// Credentials is the stored account snapshot. The password is plaintext at
// rest and encrypted only in transit, by the portal's own encryption
// endpoint; the Engine reads a snapshot per login attempt and writes back
// only on the first successful manual login.
type Credentials struct {
	StudentID string
	Password  string
	ISP       ISP
}

// Blank reports whether the snapshot is unusable for a login.
func (c Credentials) Blank() bool {
	return c.StudentID == "" || c.Password == ""
}

// CredentialStore is the interface callers implement to persist account
// credentials across restarts. Ready-made Redis and in-memory
// implementations live in the credential/ sub-package.
type CredentialStore interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
	Present(ctx context.Context) (bool, error)
}
