package helpers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// PathUUID reads the named path value and checks that it is a UUID. On
// failure it writes a 400 and returns false.
func PathUUID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if id == "" {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "missing "+name)
		return "", false
	}
	if err := uuid.Validate(id); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("%s must be a UUID", name))
		return "", false
	}
	return id, true
}
