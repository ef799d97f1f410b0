package observability

import (
	"errors"

	"github.com/tibialabs/tibia-houses/internal/httpx"
	"github.com/tibialabs/tibia-houses/internal/tibia"
)

const (
	ErrorUnreachable       = "unreachable"
	ErrorUpstreamRejected  = "upstream_rejected"
	ErrorBadContentType    = "unexpected_content_type"
	ErrorMaintenance       = "maintenance"
	ErrorMalformed         = "malformed_document"
	ErrorContainerNotFound = "container_not_found"
	ErrorNotFound          = "not_found"
	ErrorUnknown           = "unknown"
)

// ClassifyPageError maps a page-level pipeline error onto a stable
// metric/storage label. Drift kinds (container_not_found,
// malformed_document) are deliberately distinct from transport kinds so
// "site redesigned" never hides inside "site down".
func ClassifyPageError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case httpx.ErrUpstreamRejected:
			return ErrorUpstreamRejected
		case httpx.ErrUnexpectedContentType:
			return ErrorBadContentType
		default:
			return ErrorUnreachable
		}
	}
	var cnf *tibia.ContainerNotFoundError
	var nf *tibia.NotFoundError
	switch {
	case errors.Is(err, tibia.ErrMaintenance):
		return ErrorMaintenance
	case errors.Is(err, tibia.ErrMalformedDocument):
		return ErrorMalformed
	case errors.As(err, &cnf):
		return ErrorContainerNotFound
	case errors.As(err, &nf):
		return ErrorNotFound
	}
	return ErrorUnknown
}

// IsDrift reports whether the error indicates the upstream markup
// changed shape, as opposed to the upstream being unreachable.
func IsDrift(err error) bool {
	kind := ClassifyPageError(err)
	return kind == ErrorContainerNotFound || kind == ErrorMalformed
}
