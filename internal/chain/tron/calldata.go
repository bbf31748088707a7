package tron

import (
	"fmt"
	"math/big"
	"strings"
)

// TRC20 call data is Ethereum ABI encoded, but nodes return it as an opaque
// hex string with no decoded arguments. Addresses are 32-byte words holding
// the 20-byte hash left-padded with zeros; a few wallets leave the 0x41
// prefix inside the word.

const (
	selectorTransfer     = "a9059cbb"
	selectorTransferFrom = "23b872dd"

	selectorLen = 8
	wordLen     = 64
)

type tokenCall struct {
	Method string
	// From is set only for transferFrom; for transfer the sender is the
	// transaction owner.
	From  string
	To    string
	Value *big.Int
}

func callSelector(data string) string {
	data = strings.TrimPrefix(data, "0x")
	if len(data) < selectorLen {
		return ""
	}
	return strings.ToLower(data[:selectorLen])
}

// decodeTokenCall parses transfer(address,uint256) and
// transferFrom(address,address,uint256). Returned addresses are in node
// format ("41" + 40 hex).
func decodeTokenCall(data string) (*tokenCall, error) {
	data = strings.ToLower(strings.TrimPrefix(data, "0x"))
	if len(data) < selectorLen {
		return nil, fmt.Errorf("call data too short: %d hex chars", len(data))
	}
	if !isHex(data) {
		return nil, fmt.Errorf("call data is not hex")
	}

	var call tokenCall
	var nargs int
	switch data[:selectorLen] {
	case selectorTransfer:
		call.Method, nargs = "transfer", 2
	case selectorTransferFrom:
		call.Method, nargs = "transferFrom", 3
	default:
		return nil, fmt.Errorf("unsupported selector %s", data[:selectorLen])
	}

	body := data[selectorLen:]
	if len(body) < nargs*wordLen {
		return nil, fmt.Errorf("%s: want %d words, have %d hex chars", call.Method, nargs, len(body))
	}
	words := make([]string, nargs)
	for i := range words {
		words[i] = body[i*wordLen : (i+1)*wordLen]
	}

	addrs := words[:nargs-1]
	if call.Method == "transferFrom" {
		from, err := wordToAddress(addrs[0])
		if err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
		call.From = from
		addrs = addrs[1:]
	}
	to, err := wordToAddress(addrs[0])
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	call.To = to

	value, ok := new(big.Int).SetString(words[nargs-1], 16)
	if !ok {
		return nil, fmt.Errorf("value word %q", words[nargs-1])
	}
	call.Value = value
	return &call, nil
}

func wordToAddress(word string) (string, error) {
	if len(word) != wordLen {
		return "", fmt.Errorf("address word length %d", len(word))
	}
	pad, hash := word[:24], word[24:]
	if strings.Trim(pad, "0") != "" {
		if strings.Trim(pad[:22], "0") != "" || pad[22:] != "41" {
			return "", fmt.Errorf("address word %s has non-zero padding", word)
		}
	}
	if strings.Trim(hash, "0") == "" {
		return "", fmt.Errorf("zero address")
	}
	return "41" + hash, nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
