// Package account owns the credential lifecycle of bound OneDrive accounts:
// proactive access-token renewal and the periodic profile probe that decides
// whether an account is usable.
//
// Callers must not refresh the same account from two goroutines at once;
// the vendor invalidates the old refresh token on rotation. KeyedLocker and
// RefreshAll provide that exclusion for in-process callers.
package account

import (
	"time"

	"github.com/tonimelisma/onedrive-index/internal/graph"
)

// Status is the outcome of the most recent profile probe.
type Status int

// Account statuses. The zero value is StatusOff.
const (
	StatusOff Status = 0
	StatusOn  Status = 1
)

func (s Status) String() string {
	if s == StatusOn {
		return "on"
	}

	return "off"
}

// Account is one bound cloud-storage identity.
type Account struct {
	ID           int64
	Cloud        graph.Cloud
	Remark       string
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AccessToken  string
	RefreshToken string
	// AccessTokenExpires is the absolute expiry of AccessToken. The Unix
	// epoch means "already expired".
	AccessTokenExpires time.Time

	Email string
	// Extend is the last profile payload returned by the vendor.
	Extend map[string]any
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credentials returns the application credentials the account is bound to.
func (a *Account) Credentials() graph.Credentials {
	return graph.Credentials{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		RedirectURI:  a.RedirectURI,
		Cloud:        a.Cloud,
	}
}

// Drive decodes the drive payload held in Extend. ok is false when the last
// probe did not return drive info.
func (a *Account) Drive() (drive graph.Drive, ok bool) {
	if a.Status != StatusOn || len(a.Extend) == 0 {
		return graph.Drive{}, false
	}

	d, err := graph.DriveFromData(a.Extend)
	if err != nil {
		return graph.Drive{}, false
	}

	return d, true
}

// Label is a short human identifier: the email when known, else the remark.
func (a *Account) Label() string {
	if a.Email != "" {
		return a.Email
	}

	return a.Remark
}
