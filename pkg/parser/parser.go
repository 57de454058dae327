// Package parser holds the decoded forms of confirmed event logs.
package parser

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DecodedLog is the notification emitted for a confirmed, matching log.
type DecodedLog struct {
	EventName       string
	Address         common.Address
	BlockNumber     uint64
	BlockHash       common.Hash
	TransactionHash common.Hash
	LogIndex        uint
	// Fields holds the requested parameters in declaration order
	Fields *orderedmap.OrderedMap[string, any]
	// Log is the raw log as delivered by the node
	Log types.Log
}

func (d *DecodedLog) Field(name string) (any, bool) {
	return d.Fields.Get(name)
}

func (d *DecodedLog) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventName       string                              `json:"eventName"`
		Address         common.Address                      `json:"address"`
		BlockNumber     uint64                              `json:"blockNumber"`
		BlockHash       common.Hash                         `json:"blockHash"`
		TransactionHash common.Hash                         `json:"transactionHash"`
		LogIndex        uint                                `json:"logIndex"`
		Fields          *orderedmap.OrderedMap[string, any] `json:"fields"`
		Log             types.Log                           `json:"log"`
	}{
		EventName:       d.EventName,
		Address:         d.Address,
		BlockNumber:     d.BlockNumber,
		BlockHash:       d.BlockHash,
		TransactionHash: d.TransactionHash,
		LogIndex:        d.LogIndex,
		Fields:          d.Fields,
		Log:             d.Log,
	})
}
