package v1

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// pathID binds a positive integer path parameter.
func pathID(r *http.Request, name string) (uint, error) {
	var id uint
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return 0, fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("parameter %s must be positive", name)
	}
	return id, nil
}

// pathIDs binds several path parameters, stopping at the first failure.
func pathIDs(r *http.Request, names ...string) ([]uint, error) {
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		id, err := pathID(r, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
