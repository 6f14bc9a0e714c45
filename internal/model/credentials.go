package model

import "strings"

// PaperEndpoint is the trading endpoint of Alpaca paper accounts.
const PaperEndpoint = "https://paper-api.alpaca.markets"

// Credentials holds one key/secret/endpoint triple read from the secrets file.
type Credentials struct {
	Key      string `mapstructure:"key"`
	Secret   string `mapstructure:"secret"`
	Endpoint string `mapstructure:"endpoint"`
}

// IsPaper reports whether the endpoint points at the paper trading API.
func (c Credentials) IsPaper() bool {
	return strings.TrimRight(strings.TrimSpace(c.Endpoint), "/") == PaperEndpoint
}
