package server

import (
	"fmt"
	"net/http"

	"github.com/golang/glog"

	"github.com/stackhpc/reductionist-go/internal/cmn"
)

// writeErr and writeErrf mirror the teacher's t.writeErr/t.writeErrf pair
// (ais/target.go): every failure path writes plain text with the kind's
// mapped status code, never a panic or a silently swallowed error.
func writeErr(w http.ResponseWriter, err error) int {
	status := cmn.StatusOf(err)
	if status >= http.StatusInternalServerError {
		glog.Errorf("server: %v", err)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, err.Error())
	return status
}

func writeErrf(w http.ResponseWriter, status int, format string, args ...any) int {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, format, args...)
	return status
}
