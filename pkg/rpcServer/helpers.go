package rpcServer

import (
	"encoding/json"
	"github.com/pkg/errors"
	"net/http"

	"github.com/Layr-Labs/chainwatch/pkg/abiDeclaration"
	"github.com/Layr-Labs/chainwatch/pkg/transactionBuilder"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (rpc *RpcServer) writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rpc.Logger.Sugar().Errorw("Failed to write response", zap.Error(err))
	}
}

func (rpc *RpcServer) writeError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	rpc.writeJson(w, status, &errorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

// badRequestError marks failures caused by the request body itself.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

// classifyError maps domain errors to a status and a stable code.
func classifyError(err error) (int, string) {
	var syntaxErr *abiDeclaration.SyntaxError
	var missingErr *transactionBuilder.MissingParameterError
	var feeErr *transactionBuilder.InsufficientFeeError
	var badRequest *badRequestError

	switch {
	case errors.As(err, &syntaxErr):
		return http.StatusBadRequest, "syntax_error"
	case errors.As(err, &missingErr):
		return http.StatusBadRequest, "missing_parameter"
	case errors.As(err, &feeErr):
		return http.StatusBadRequest, "insufficient_fee"
	case errors.As(err, &badRequest):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, ""
}
