package render

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gobridge/bridge-points/logging"
)

var ErrBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, res interface{}) {
	blob, err := marshal(r, res)
	if err != nil {
		Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(blob); err != nil {
		logging.LoggerFromContext(r.Context()).WithError(err).Warn("failed to write response")
	}
}

// Error renders err as a JSON error body. Errors wrapping ErrBadRequest are
// reported to the client with status 400, all other errors with status 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.LoggerFromContext(r.Context())
	if errors.Is(err, ErrBadRequest) {
		logger.WithError(err).Warn("rejected invalid request")
		JSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	logger.WithError(err).Error("request handling failed")
	JSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func marshal(r *http.Request, res interface{}) ([]byte, error) {
	if pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty")); pretty {
		return json.MarshalIndent(res, "", "  ")
	}
	return json.Marshal(res)
}
