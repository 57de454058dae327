package rpcServer

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Layr-Labs/chainwatch/pkg/abiDeclaration"
	"github.com/Layr-Labs/chainwatch/pkg/transactionBuilder"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

type healthResponse struct {
	Status string `json:"status"`
}

// SubmitRequest is the body of POST /v1/submissions. Amounts follow the
// builder's rules: strings are ether, numbers are wei.
type SubmitRequest struct {
	Key                  string         `json:"key"`
	SessionId            string         `json:"sessionId"`
	ChainId              uint64         `json:"chainId"`
	Contract             string         `json:"contract"`
	Declaration          string         `json:"declaration"`
	Parameters           map[string]any `json:"parameters"`
	MaxFeePerGas         any            `json:"maxFeePerGas"`
	MaxPriorityFeePerGas any            `json:"maxPriorityFeePerGas"`
	GasLimit             any            `json:"gasLimit"`
	Value                any            `json:"value"`
	DryRun               bool           `json:"dryRun"`
}

func (rpc *RpcServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	rpc.writeJson(w, http.StatusOK, &healthResponse{Status: "ok"})
}

// toSubmissionRequest validates the body and parses the declaration.
func (sr *SubmitRequest) toSubmissionRequest() (*transactionBuilder.SubmissionRequest, error) {
	if sr.ChainId == 0 {
		return nil, &badRequestError{err: errors.New("chainId is required")}
	}
	if !common.IsHexAddress(sr.Contract) {
		return nil, &badRequestError{err: errors.Errorf("'%s' is not a valid contract address", sr.Contract)}
	}
	function, err := abiDeclaration.ParseFunction(sr.Declaration)
	if err != nil {
		return nil, err
	}
	params := sr.Parameters
	if params == nil {
		params = map[string]any{}
	}
	return &transactionBuilder.SubmissionRequest{
		Key:                  sr.Key,
		SessionId:            sr.SessionId,
		ChainId:              sr.ChainId,
		Contract:             common.HexToAddress(sr.Contract),
		Function:             function,
		Parameters:           params,
		MaxFeePerGas:         sr.MaxFeePerGas,
		MaxPriorityFeePerGas: sr.MaxPriorityFeePerGas,
		GasLimit:             sr.GasLimit,
		Value:                sr.Value,
		DryRun:               sr.DryRun,
	}, nil
}

func (rpc *RpcServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body SubmitRequest
	decoder := json.NewDecoder(r.Body)
	// keeps large integers exact for the encoder
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		rpc.writeError(w, &badRequestError{err: errors.Wrap(err, "invalid request body")})
		return
	}

	req, err := body.toSubmissionRequest()
	if err != nil {
		rpc.writeError(w, err)
		return
	}

	res, err := rpc.submitter.Submit(r.Context(), req)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	rpc.writeJson(w, http.StatusOK, res)
}

func (rpc *RpcServer) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	if rpc.store == nil {
		rpc.writeJson(w, http.StatusServiceUnavailable, &errorResponse{Error: "notification store is disabled"})
		return
	}
	submissions, err := rpc.store.ListSubmissions(r.PathValue("sessionId"))
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	rpc.writeJson(w, http.StatusOK, submissions)
}

func (rpc *RpcServer) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	if rpc.store == nil {
		rpc.writeJson(w, http.StatusServiceUnavailable, &errorResponse{Error: "notification store is disabled"})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			rpc.writeError(w, &badRequestError{err: errors.Errorf("invalid limit '%s'", raw)})
			return
		}
		limit = parsed
	}
	notifications, err := rpc.store.ListNotifications(r.PathValue("trigger"), limit)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	rpc.writeJson(w, http.StatusOK, notifications)
}
