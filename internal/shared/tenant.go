package shared

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// TenantHeader names the request header carrying the tenant id. Tenant
// resolution is explicit everywhere: handlers read the header once and pass
// the id down as a parameter, services never consult ambient state.
const TenantHeader = "X-Tenant-ID"

var (
	// ErrTenantRequired indicates the tenant header was absent.
	ErrTenantRequired = errors.New("tenant id required")
	// ErrTenantInvalid indicates the tenant header was not a UUID.
	ErrTenantInvalid = errors.New("tenant id invalid")
)

// TenantFromRequest extracts and validates the tenant id of a request.
func TenantFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(TenantHeader))
	if raw == "" {
		return uuid.Nil, ErrTenantRequired
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrTenantInvalid
	}
	return id, nil
}
