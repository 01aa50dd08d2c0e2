package network

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/drip/internal/logger"
	"github.com/drip/internal/metrics"
	"github.com/drip/internal/service"
	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

func hdlLogger() *zap.SugaredLogger {
	return logger.Named("handler")
}

// unresolvedMethod labels metrics of calls to methods nobody serves, so
// clients cannot mint label values.
const unresolvedMethod = "unknown"

// Executor runs a "svc.method" call. *service.Registry implements it.
type Executor interface {
	ExecSigned(method string, params []any, auth *service.Auth) any
	Resolve(method string) (string, bool)
}

// Handler serves JSON-RPC 2.0 over HTTP POST.
type Handler struct {
	exec Executor
	cors bool
}

func NewHandler(exec Executor, cors bool) *Handler {
	return &Handler{exec: exec, cors: cors}
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "content-type")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Max-Age", "1800")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if h.cors {
		setCORS(w)
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		metrics.RPCErrors.WithLabelValues("read_body").Inc()
		h.write(w, Response{JSONRPC: "2.0", Error: &Error{Code: CodeInvalidRequest, Message: "failed to read request body"}})
		return
	}

	var request Request
	if err := json.Unmarshal(body, &request); err != nil {
		metrics.RPCErrors.WithLabelValues("parse_body").Inc()
		h.write(w, Response{JSONRPC: "2.0", Error: &Error{Code: CodeParseError, Message: err.Error()}})
		return
	}
	if request.Method == "" {
		metrics.RPCErrors.WithLabelValues("parse_body").Inc()
		h.write(w, Response{JSONRPC: "2.0", ID: request.ID, Error: &Error{Code: CodeInvalidRequest, Message: "missing method"}})
		return
	}

	method, ok := h.exec.Resolve(request.Method)
	if !ok {
		method = unresolvedMethod
	}
	response := Response{JSONRPC: "2.0", ID: request.ID}
	result := h.exec.ExecSigned(request.Method, request.Params, request.Auth)
	if err, ok := result.(error); ok && err != nil {
		code := ErrorCode(err)
		response.Error = &Error{Code: code, Message: err.Error()}
		metrics.RPCErrors.WithLabelValues(method).Inc()
		if code == CodeInternal {
			hdlLogger().Errorw("Request failed", "method", request.Method, "err", err)
		} else {
			hdlLogger().Debugw("Request rejected", "method", request.Method, "code", code, "err", err)
		}
	} else {
		response.Result = result
	}

	if h.write(w, response) {
		metrics.RPCRequests.WithLabelValues(method).Inc()
		metrics.RPCDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}
}

func (h *Handler) write(w http.ResponseWriter, response Response) bool {
	responseData, err := json.Marshal(response)
	if err != nil {
		hdlLogger().Errorw("Failed to serialize response", "err", err)
		http.Error(w, "failed to serialize response", http.StatusInternalServerError)
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(responseData); err != nil {
		hdlLogger().Errorw("Failed to write response", "err", err)
		return false
	}
	return true
}
