package httpapi

import (
	"net/http"
	"strconv"

	"github.com/jcgurango/meremail/internal/errs"
)

func pathUint(r *http.Request, name string) (uint, error) {
	v := r.PathValue(name)
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, errs.Validation("pathUint", "invalid "+name)
	}
	return uint(n), nil
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
