// Package evm reads ERC-20 settlement evidence from an EVM-compatible chain.
package evm

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// TransferTopic is keccak256("Transfer(address,address,uint256)").
var TransferTopic = eventTopic("Transfer(address,address,uint256)")

func eventTopic(signature string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// Transfer is a decoded ERC-20 Transfer event.
type Transfer struct {
	Token  string
	From   string
	To     string
	Amount *big.Int
}

// DecodeTransfer decodes l when it is a Transfer event. Addresses are
// returned lowercase.
func DecodeTransfer(l Log) (*Transfer, bool, error) {
	if len(l.Topics) < 3 || !strings.EqualFold(l.Topics[0], TransferTopic) {
		return nil, false, nil
	}

	from, err := topicAddress(l.Topics[1])
	if err != nil {
		return nil, true, err
	}

	to, err := topicAddress(l.Topics[2])
	if err != nil {
		return nil, true, err
	}

	amount, ok := new(big.Int).SetString(strings.TrimPrefix(strings.ToLower(l.Data), "0x"), 16)
	if !ok {
		return nil, true, errors.Errorf("invalid transfer amount %q", l.Data)
	}

	return &Transfer{
		Token:  strings.ToLower(l.Address),
		From:   from,
		To:     to,
		Amount: amount,
	}, true, nil
}

// topicAddress takes the low 20 bytes of a 32-byte topic.
func topicAddress(topic string) (string, error) {
	if len(topic) != 66 {
		return "", errors.Errorf("invalid address topic %q", topic)
	}

	return "0x" + strings.ToLower(topic[26:]), nil
}
