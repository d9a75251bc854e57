package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/stackhpc/reductionist-go/internal/cmn"
	"github.com/stackhpc/reductionist-go/internal/filters"
	"github.com/stackhpc/reductionist-go/internal/reduce"
)

// operationHandler returns the handler for one of the six /v1/* reduction
// endpoints, closing over the already-resolved reduce.Operation so the hot
// path never re-does the operation registry lookup.
func (s *AppState) operationHandler(op reduce.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.Stats.RecordRequest(r.Method, r.URL.Path)
		status := s.serveOperation(op, w, r)
		s.Stats.RecordResponse(status, time.Since(start))
	}
}

func (s *AppState) serveOperation(op reduce.Operation, w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodPost {
		return writeErrf(w, http.StatusMethodNotAllowed, "method %s not allowed, expected POST", r.Method)
	}
	defer r.Body.Close()

	var req cmn.RequestData
	if err := jsoniter.NewDecoder(r.Body).Decode(&req); err != nil {
		return writeErrf(w, http.StatusBadRequest, "invalid JSON body: %v", err)
	}
	if err := req.Validate(); err != nil {
		return writeErr(w, err)
	}

	creds := credentialsFromRequest(r)

	raw, err := s.Store.Get(r.Context(), &req, creds)
	if err != nil {
		return writeErr(w, err)
	}

	decompressed, err := filters.Decompress(req.Compression, raw)
	if err != nil {
		return writeErr(w, err)
	}
	unfiltered, err := filters.ApplyFilters(decompressed, req.Filters)
	if err != nil {
		return writeErr(w, err)
	}

	taskPermit, err := s.Resources.AcquireTask(r.Context())
	if err != nil {
		return writeErr(w, err)
	}
	defer taskPermit.Release()

	resp, err := op.Execute(&req, unfiltered)
	if err != nil {
		return writeErr(w, err)
	}

	writeResponse(w, resp)
	return http.StatusOK
}

// credentialsFromRequest extracts HTTP basic auth, forwarded unchanged to
// the storage origin; absent credentials are the zero value, treated as
// anonymous access.
func credentialsFromRequest(r *http.Request) cmn.Credentials {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return cmn.Credentials{}
	}
	return cmn.Credentials{Username: user, Password: pass}
}

func writeResponse(w http.ResponseWriter, resp *cmn.Response) {
	shapeJSON, _ := json.Marshal(resp.Shape)
	countJSON, _ := json.Marshal(resp.Count)
	h := w.Header()
	h.Set(cmn.HeaderDType, string(resp.DType))
	h.Set(cmn.HeaderShape, string(shapeJSON))
	h.Set(cmn.HeaderCount, string(countJSON))
	h.Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(resp.Bytes)
}

// healthHandler is the ambient liveness probe SPEC_FULL.md adds alongside
// the reference's operation/schema/metrics endpoints.
func (s *AppState) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}
