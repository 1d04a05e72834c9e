package main

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// maxExponent keeps a^b literals from exhausting memory
const maxExponent = 1 << 16

// parseInt accepts an integer literal (decimal, or 0x/0o/0b prefixed) or a
// sum/difference of products of literals and powers, e.g. 2^255-21 or
// 2^256-2^32-979
func parseInt(s string) (*big.Int, error) {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return nil, errors.New("empty integer expression")
	}

	sum := new(big.Int)
	sign := 1
	start := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] != '+' && s[i] != '-' {
			continue
		}
		if i == 0 && i < len(s) {
			// leading sign
			if s[i] == '-' {
				sign = -1
			}
			start = 1
			continue
		}
		term, err := parseTerm(s[start:i])
		if err != nil {
			return nil, err
		}
		if sign < 0 {
			sum.Sub(sum, term)
		} else {
			sum.Add(sum, term)
		}
		if i < len(s) {
			sign = 1
			if s[i] == '-' {
				sign = -1
			}
		}
		start = i + 1
	}
	return sum, nil
}

// parseTerm parses a product of factors, each a literal or literal^literal
func parseTerm(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing term in integer expression")
	}
	prod := big.NewInt(1)
	for _, f := range strings.Split(s, "*") {
		base, exp, isPow := strings.Cut(f, "^")
		x, ok := new(big.Int).SetString(base, 0)
		if !ok {
			return nil, errors.Errorf("invalid integer literal %q", base)
		}
		if isPow {
			e, err := strconv.Atoi(exp)
			if err != nil || e < 0 || e > maxExponent {
				return nil, errors.Errorf("invalid exponent %q", exp)
			}
			x.Exp(x, big.NewInt(int64(e)), nil)
		}
		prod.Mul(prod, x)
	}
	return prod, nil
}
