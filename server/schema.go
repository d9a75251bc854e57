package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/stackhpc/reductionist-go/internal/cmn"
)

var (
	schemaOnce sync.Once
	schemaBody []byte
)

// schemaHandler serves the JSON schema for RequestData at the well-known
// path clients use to validate requests before sending them, generated
// once and cached since the type is fixed at compile time.
func (s *AppState) schemaHandler(w http.ResponseWriter, r *http.Request) {
	schemaOnce.Do(func() {
		reflector := &jsonschema.Reflector{DoNotReference: true}
		schema := reflector.Reflect(&cmn.RequestData{})
		body, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			panic(err) // schema reflection of a fixed type cannot fail at runtime
		}
		schemaBody = body
	})
	w.Header().Set("Content-Type", "application/json")
	w.Write(schemaBody)
}
