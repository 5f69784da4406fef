package validators

import (
	"encoding/json"
	"io"
	"net/http"

	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	pkgvalidators "github.com/propnest/propnest-client/pkg/validators"
)

// DecodeJSONBody decodes a strict JSON body into dest and validates its tags.
func DecodeJSONBody(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
	}
	return pkgvalidators.Struct(dest)
}
