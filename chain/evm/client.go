package evm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

const (
	// FilecoinMainnetRPC is the public Glif mainnet endpoint.
	FilecoinMainnetRPC = "https://api.node.glif.io/rpc/v1"
	// FilecoinCalibrationRPC is the public Glif calibration endpoint.
	FilecoinCalibrationRPC = "https://api.calibration.node.glif.io/rpc/v1"

	// USDFCMainnet is the USDFC token contract on mainnet.
	USDFCMainnet = "0x80B98d3aa09ffff255c3ba4A241111Ff1262F045"
	// USDFCCalibration is the USDFC token contract on calibration.
	USDFCCalibration = "0xb3042734b608a1B16e9e86B374A3f3e389B4cDf0"

	methodTransactionReceipt = "eth_getTransactionReceipt"
	requestTimeout           = 10 * time.Second
)

// Log is one event emitted by a transaction.
type Log struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// Receipt is the subset of a transaction receipt used for settlement.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          string `json:"status"`
	Logs            []Log  `json:"logs"`
}

// Succeeded reports whether the receipt status is 0x1.
func (r *Receipt) Succeeded() bool {
	return r.Status == "0x1"
}

// Client gets receipts from an EVM-compatible JSON-RPC node.
type Client struct {
	endpoint string
	client   *http.Client
	nextID   atomic.Uint64
}

// NewClient returns a new client instance.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

// TransactionReceipt requests the receipt of hash. A nil receipt with a
// nil error means the transaction is not mined yet.
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var r *Receipt
	if err := c.call(ctx, methodTransactionReceipt, []interface{}{hash}, &r); err != nil {
		return nil, err
	}

	return r, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(&rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "call %s", method)
	}

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request evm node failed, status:%d body:%s", resp.StatusCode, raw)
	}

	rr := &rpcResponse{}
	if err := json.Unmarshal(raw, rr); err != nil {
		return errors.Wrapf(err, "decode %s response", method)
	}

	if rr.Error != nil {
		return fmt.Errorf("request evm node failed, code:%d err:%s", rr.Error.Code, rr.Error.Message)
	}

	if len(rr.Result) == 0 {
		return nil
	}

	return json.Unmarshal(rr.Result, result)
}
