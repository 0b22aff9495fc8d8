package models

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// FiatCurrency is the currency the fiat balance is denominated in.
const FiatCurrency = "USD"

// CryptoCurrencies lists the supported crypto codes; every user gets one
// deposit address per entry.
var CryptoCurrencies = []string{"BTC", "ETH", "USDT"}

var cryptoAddressPrefixes = map[string]string{
	"BTC":  "bc1",
	"ETH":  "0x",
	"USDT": "0x",
}

// IsCrypto reports whether a currency code routes to the crypto balance.
func IsCrypto(currency string) bool {
	_, ok := cryptoAddressPrefixes[currency]
	return ok
}

const accountNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewAccountNumber generates a "GB" prefixed 10-character account number.
func NewAccountNumber() string {
	buf := make([]byte, 10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(accountNumberAlphabet))))
		if err != nil {
			panic(err)
		}
		buf[i] = accountNumberAlphabet[n.Int64()]
	}
	return "GB" + string(buf)
}

// NewCryptoAddress generates a mock deposit address for the given currency.
func NewCryptoAddress(currency string) string {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		panic(err)
	}
	return cryptoAddressPrefixes[currency] + hex.EncodeToString(raw)
}

// NewCryptoAddresses generates the full address set for a new user.
func NewCryptoAddresses() map[string]string {
	addrs := make(map[string]string, len(CryptoCurrencies))
	for _, c := range CryptoCurrencies {
		addrs[c] = NewCryptoAddress(c)
	}
	return addrs
}
