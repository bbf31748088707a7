package model

import "strings"

// AssetSet is the set of asset symbols the exchange lists. Token handlers
// ignore contracts whose symbol is not listed.
type AssetSet map[string]struct{}

func NewAssetSet(symbols ...string) AssetSet {
	s := make(AssetSet, len(symbols))
	for _, sym := range symbols {
		s[strings.ToUpper(sym)] = struct{}{}
	}
	return s
}

// Contains reports whether symbol is listed. A nil set lists everything.
func (s AssetSet) Contains(symbol string) bool {
	if s == nil {
		return true
	}
	_, ok := s[strings.ToUpper(symbol)]
	return ok
}
